package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/llm"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_Defaults(t *testing.T) {
	p, err := New(llm.OllamaConfig{})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", p.endpoint)
	assert.Equal(t, "qwen2.5:32b", p.Model())

	p, err = New(llm.OllamaConfig{Endpoint: "http://custom:8080/", Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "http://custom:8080", p.endpoint)
	assert.Equal(t, "llama3", p.Model())
}

func TestChat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"{\"score\":0.4}"},"done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":5}`))
	}))
	defer srv.Close()

	p, err := New(llm.OllamaConfig{Endpoint: srv.URL, Model: "llama3"})
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		SystemPrompt: "sys",
		Messages:     []llm.Message{{Role: "user", Content: "headline"}},
		JSONMode:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"score":0.4}`, resp.Content)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 5, resp.Usage.OutputTokens)
	assert.Equal(t, "stop", resp.FinishReason)

	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, 1024, got.Options.NumPredict)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *core.Error
	}{
		{"model missing", http.StatusNotFound, `{"error":"model not found"}`, core.ErrNotFound},
		{"overloaded", http.StatusServiceUnavailable, ``, core.ErrTransient},
		{"garbage", http.StatusOK, `not json`, core.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p, _ := New(llm.OllamaConfig{Endpoint: srv.URL})
			_, err := p.Chat(context.Background(), llm.ChatRequest{Messages: []llm.Message{{Role: "user", Content: "x"}}})
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
