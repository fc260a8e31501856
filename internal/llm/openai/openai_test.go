package openai

import (
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/llm"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(llm.OpenAIConfig{Model: "model"})
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New(llm.OpenAIConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Model() != "gpt-4o" {
		t.Errorf("expected default model gpt-4o, got %s", p.Model())
	}
}

func TestRequest_JSONMode(t *testing.T) {
	p, _ := New(llm.OpenAIConfig{APIKey: "test-key"})
	req := p.request(llm.ChatRequest{
		SystemPrompt: "sys",
		Messages:     []llm.Message{{Role: "user", Content: "hi"}},
		JSONMode:     true,
	})

	if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("expected system + user messages, got %+v", req.Messages)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Error("JSON mode should request a json_object response")
	}
	if req.MaxTokens != 1024 {
		t.Errorf("expected default max tokens 1024, got %d", req.MaxTokens)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *core.Error
	}{
		{"rate limited", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, core.ErrRateLimited},
		{"server", &openai.RequestError{HTTPStatusCode: 503, Err: errors.New("unavailable")}, core.ErrTransient},
		{"bad request", &openai.APIError{HTTPStatusCode: 400, Message: "bad"}, core.ErrMalformed},
		{"network", errors.New("connection reset"), core.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := classify(tt.err); !errors.Is(err, tt.want) {
				t.Errorf("expected %s, got %v", tt.want.Code, err)
			}
		})
	}
}
