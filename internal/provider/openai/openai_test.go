package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcaai/relay/pkg/provider"
)

func TestAdapter_Send(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hello there"}},
			},
			"usage": map[string]any{
				"prompt_tokens":     12,
				"completion_tokens": 7,
			},
		})
	}))
	defer srv.Close()

	a := New(Config{
		Name:    "openai",
		APIKey:  "sk-test",
		BaseURL: srv.URL,
		Model:   "gpt-4",
	})

	resp, err := a.Send(context.Background(), provider.Request{
		Prompt:      "hi",
		MaxTokens:   100,
		Temperature: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "hello there", resp.Text)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 7, resp.OutputTokens)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4", gotBody.Model)
	assert.Equal(t, 100, gotBody.MaxTokens)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "hi", gotBody.Messages[0].Content)
}

func TestAdapter_SendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited", "type": "rate_limit_error"},
		})
	}))
	defer srv.Close()

	a := New(Config{Name: "openai", BaseURL: srv.URL, Model: "gpt-4"})

	_, err := a.Send(context.Background(), provider.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestAdapter_SendNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	a := New(Config{Name: "openai", BaseURL: srv.URL, Model: "gpt-4"})

	_, err := a.Send(context.Background(), provider.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestAdapter_Defaults(t *testing.T) {
	a := New(Config{})
	assert.Equal(t, "openai", a.Name())
	assert.Equal(t, DefaultBaseURL, a.baseURL)
}
