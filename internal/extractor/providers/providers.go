package providers

import (
	"invoxtract/internal/config"
	"invoxtract/internal/extractor"
	"invoxtract/internal/extractor/claude"
	"invoxtract/internal/extractor/gemini"
	"invoxtract/internal/extractor/openai"
	"invoxtract/internal/port"
)

// Register adds the openai, claude and gemini factories to the extractor registry.
func Register() {
	extractor.RegisterProvider("openai", func(cfg *config.ProviderConfig) (port.Extractor, error) {
		return openai.NewExtractor(cfg), nil
	})
	extractor.RegisterProvider("claude", func(cfg *config.ProviderConfig) (port.Extractor, error) {
		return claude.NewExtractor(cfg), nil
	})
	extractor.RegisterProvider("gemini", func(cfg *config.ProviderConfig) (port.Extractor, error) {
		return gemini.NewExtractor(cfg), nil
	})
}
