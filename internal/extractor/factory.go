package extractor

import (
	"fmt"
	"sync"

	"invoxtract/internal/config"
	"invoxtract/internal/port"
)

// ProviderFactory creates an Extractor from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (port.Extractor, error)

var (
	providersMu sync.RWMutex
	providers   = map[string]ProviderFactory{}
)

// RegisterProvider registers an extraction provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

// New creates an Extractor from a provider config using the registered factory.
func New(cfg *config.ProviderConfig) (port.Extractor, error) {
	providersMu.RLock()
	factory, ok := providers[cfg.Provider]
	providersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown extractor provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// FromConfig builds the configured provider chain. A single provider is
// returned as-is; two or more are wrapped in a FallbackExtractor in
// primary, secondary, tertiary order.
func FromConfig(cfg *config.ExtractorConfig) (port.Extractor, error) {
	tiers := []*config.ProviderConfig{cfg.PrimaryConfig(), cfg.SecondaryConfig(), cfg.TertiaryConfig()}

	var extractors []port.Extractor
	var names []string
	for _, tier := range tiers {
		if tier == nil {
			continue
		}
		ext, err := New(tier)
		if err != nil {
			return nil, fmt.Errorf("extractor.FromConfig: %w", err)
		}
		extractors = append(extractors, ext)
		names = append(names, tier.Provider)
	}

	if len(extractors) == 1 {
		return extractors[0], nil
	}
	return NewFallbackExtractor(extractors, names), nil
}
