package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoxtract/internal/config"
	"invoxtract/internal/domain"
	"invoxtract/internal/extractor"
	"invoxtract/internal/extractor/openai"
	"invoxtract/internal/port"
)

func newTestExtractor(serverURL string) *openai.Extractor {
	cfg := &config.ProviderConfig{
		Provider:     "openai",
		APIKey:       "test-openai-key",
		DefaultModel: "gpt-4o",
		TimeoutSecs:  30,
		Temperature:  0.1,
		MaxTokens:    16000,
	}
	return openai.NewExtractorWithEndpoint(cfg, serverURL)
}

func successResponse(content, finish string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": finish,
			},
		},
	}
}

func input() port.ExtractInput {
	return port.ExtractInput{Chunk: domain.TextChunk{SourcePage: 1, Body: "TEXT CONTENT:\n1:Invoice 00123"}}
}

func TestExtract_Success(t *testing.T) {
	raw := "```json\n[{\"Invoice Number\":\"00123\"}]\n```"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-openai-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "gpt-4o", reqBody["model"])
		assert.Equal(t, float64(16000), reqBody["max_tokens"])
		assert.InDelta(t, 0.1, reqBody["temperature"], 1e-9)

		messages := reqBody["messages"].([]interface{})
		assert.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
		user := messages[1].(map[string]interface{})
		assert.Equal(t, "user", user["role"])
		assert.Contains(t, user["content"], "1:Invoice 00123")

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(successResponse(raw, "stop"))
	}))
	defer server.Close()

	out, err := newTestExtractor(server.URL).Extract(context.Background(), input())

	require.NoError(t, err)
	assert.Equal(t, raw, out.RawText)
	assert.Equal(t, "gpt-4o", out.ModelUsed)
	assert.Contains(t, out.PromptUsed, "INVOICE TEXT TO PROCESS")
}

func TestExtract_TruncatedOutputIsReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(successResponse(`[{"Invoice Number":"1"},{"Invoice Nu`, "length"))
	}))
	defer server.Close()

	out, err := newTestExtractor(server.URL).Extract(context.Background(), input())

	require.NoError(t, err)
	assert.Equal(t, `[{"Invoice Number":"1"},{"Invoice Nu`, out.RawText)
}

func TestExtract_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit exceeded"}}`))
	}))
	defer server.Close()

	out, err := newTestExtractor(server.URL).Extract(context.Background(), input())

	assert.Nil(t, out)
	var rlErr *extractor.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "openai", rlErr.Provider)
	assert.Equal(t, 30.0, rlErr.RetryAfter.Seconds())
}

func TestExtract_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	out, err := newTestExtractor(server.URL).Extract(context.Background(), input())

	assert.Nil(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	var rlErr *extractor.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
}

func TestExtract_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestExtractor(server.URL).Extract(context.Background(), input())

	assert.ErrorContains(t, err, "no choices")
}

func TestExtract_DefaultModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&reqBody)
		assert.Equal(t, "gpt-4o", reqBody["model"])
		_ = json.NewEncoder(w).Encode(successResponse("{}", "stop"))
	}))
	defer server.Close()

	ext := openai.NewExtractorWithEndpoint(&config.ProviderConfig{APIKey: "k"}, server.URL)
	out, err := ext.Extract(context.Background(), input())

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", out.ModelUsed)
}
