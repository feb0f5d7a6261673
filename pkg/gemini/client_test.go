package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestClient(t *testing.T, baseURL string) Client {
	t.Helper()
	c, err := NewClient(context.Background(), Config{APIKey: "test-key", BaseURL: baseURL})
	require.NoError(t, err)
	return c
}

func TestGenerateText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent"), r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		contents := body["contents"].([]any)
		parts := contents[0].(map[string]any)["parts"].([]any)
		assert.Equal(t, "Favorite color?", parts[0].(map[string]any)["text"])
		assert.NotNil(t, body["systemInstruction"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"candidates": []map[string]any{{
				"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": "Green"}}},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 42, "candidatesTokenCount": 2},
			"modelVersion":  "gemini-2.0-flash-001",
		})
	}))
	defer ts.Close()

	temp := float32(0)
	resp, err := newTestClient(t, ts.URL).GenerateText(context.Background(), TextRequest{
		System:      "be precise",
		Prompt:      "Favorite color?",
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "Green", resp.Text)
	assert.Equal(t, "gemini-2.0-flash-001", resp.Model)
	assert.Equal(t, "STOP", resp.FinishReason)
	assert.Equal(t, int64(42), resp.Usage.InputTokens)
	assert.Equal(t, int64(2), resp.Usage.OutputTokens)
}

func TestGenerateText_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).GenerateText(context.Background(), TextRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini: generate content")
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	assert.Error(t, err)
}

func TestFromSDKResponse_Empty(t *testing.T) {
	out := fromSDKResponse(&genai.GenerateContentResponse{}, "m")
	assert.Equal(t, "", out.Text)
	assert.Equal(t, "m", out.Model)
	assert.Zero(t, out.Usage.InputTokens)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 503, StatusCode(genai.APIError{Code: 503}))
	assert.Zero(t, StatusCode(assert.AnError))
}
