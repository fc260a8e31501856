// Package llm is a thin chat abstraction over the hosted and local models
// used for sentiment scoring.
package llm

import (
	"context"
	"errors"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/provider"
)

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Model() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
}

// Message represents a chat message
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Config selects and configures one model backend.
type Config struct {
	Provider string       `mapstructure:"provider" validate:"omitempty,oneof=claude openai ollama"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// ErrNoAPIKey is returned by hosted backends constructed without credentials.
var ErrNoAPIKey = &core.Error{Code: "CONFIG_MISSING", Message: "LLM API key required"}

// Classify maps an HTTP status returned by a model API onto the provider
// error taxonomy so callers can tell rate limits from bad requests.
func Classify(status int, err error) error {
	if err == nil {
		return nil
	}
	if status == 0 {
		return provider.ClassifyErr(err)
	}
	if base := provider.ClassifyStatus(status); base != nil {
		return core.WrapError(base, err)
	}
	return err
}

// IsRateLimited reports whether err came from a throttled model API.
func IsRateLimited(err error) bool {
	return errors.Is(err, core.ErrRateLimited)
}
