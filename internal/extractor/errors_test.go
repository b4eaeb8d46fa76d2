package extractor_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"invoxtract/internal/extractor"
)

func TestNewRateLimitError_DefaultsTo60s(t *testing.T) {
	err := extractor.NewRateLimitError("openai", errors.New("429"), 0)
	assert.Equal(t, 60*time.Second, err.RetryAfter)
}

func TestRateLimitError_Unwrap(t *testing.T) {
	base := errors.New("upstream")
	err := extractor.NewRateLimitError("claude", base, 5)

	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "claude rate limited (retry after 5s)")
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, extractor.ParseRetryAfterHeader(""))
	assert.Equal(t, 0, extractor.ParseRetryAfterHeader("Wed, 21 Oct 2015 07:28:00 GMT"))
	assert.Equal(t, 42, extractor.ParseRetryAfterHeader("42"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", extractor.Truncate("abc", 5))
	assert.Equal(t, "ab...", extractor.Truncate("abcdef", 2))
}
