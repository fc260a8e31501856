package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/newthinker/meridian/internal/llm"
)

const (
	defaultModel = "claude-sonnet-4-20250514"

	// appended to the system prompt; the Messages API has no JSON response mode
	jsonInstruction = "Respond with a single JSON object and no surrounding text."
)

// Provider implements the LLM interface for Claude/Anthropic.
type Provider struct {
	client anthropic.Client
	model  string
}

// New creates a new Claude provider.
func New(cfg llm.ClaudeConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, llm.ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Provider{client: client, model: cfg.Model}, nil
}

func (p *Provider) Name() string  { return "claude" }
func (p *Provider) Model() string { return p.model }

// Chat sends a chat request to the Claude API.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens(req.MaxTokens),
		Messages:  messages(req.Messages),
	}
	if system := systemPrompt(req); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, llm.Classify(apiErr.StatusCode, fmt.Errorf("claude: %w", err))
		}
		return nil, llm.Classify(0, fmt.Errorf("claude: %w", err))
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &llm.ChatResponse{
		Content: sb.String(),
		Usage: llm.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
		FinishReason: string(resp.StopReason),
	}, nil
}

func messages(in []llm.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, len(in))
	for i, m := range in {
		if m.Role == "assistant" {
			out[i] = anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content))
		} else {
			out[i] = anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content))
		}
	}
	return out
}

func systemPrompt(req llm.ChatRequest) string {
	if !req.JSONMode {
		return req.SystemPrompt
	}
	if req.SystemPrompt == "" {
		return jsonInstruction
	}
	return req.SystemPrompt + "\n\n" + jsonInstruction
}

func maxTokens(n int) int64 {
	if n <= 0 {
		return 1024
	}
	return int64(n)
}
