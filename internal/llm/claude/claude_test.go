package claude

import (
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/llm"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(llm.ClaudeConfig{Model: "model"})
	if !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected CONFIG_MISSING, got %v", err)
	}
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New(llm.ClaudeConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Model() != defaultModel {
		t.Errorf("expected %s, got %s", defaultModel, p.Model())
	}
}

func TestSystemPrompt_JSONMode(t *testing.T) {
	tests := []struct {
		name string
		req  llm.ChatRequest
		want string
	}{
		{"plain", llm.ChatRequest{SystemPrompt: "rate it"}, "rate it"},
		{"json only", llm.ChatRequest{JSONMode: true}, jsonInstruction},
		{"json appended", llm.ChatRequest{SystemPrompt: "rate it", JSONMode: true}, "rate it\n\n" + jsonInstruction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := systemPrompt(tt.req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessages_Roles(t *testing.T) {
	out := messages([]llm.Message{{Role: "user", Content: "a"}, {Role: "assistant", Content: "b"}})
	if len(out) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out))
	}
	if out[0].Role != anthropic.MessageParamRoleUser || out[1].Role != anthropic.MessageParamRoleAssistant {
		t.Errorf("unexpected roles: %s, %s", out[0].Role, out[1].Role)
	}
}
