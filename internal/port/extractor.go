package port

import (
	"context"

	"invoxtract/internal/domain"
)

// ExtractInput carries one chunk of formatted page text to the model.
type ExtractInput struct {
	Chunk domain.TextChunk
}

// ExtractOutput contains the raw, unvalidated model response for one chunk.
type ExtractOutput struct {
	RawText    string
	ModelUsed  string
	PromptUsed string
}

// Extractor abstracts the language-model field extraction call.
// A nil output with a nil error never occurs; absence is reported as an error.
type Extractor interface {
	Extract(ctx context.Context, input ExtractInput) (*ExtractOutput, error)
}
