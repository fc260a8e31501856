package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/newthinker/meridian/internal/llm"
)

const defaultModel = "gpt-4o"

// Provider implements the LLM interface for OpenAI and OpenAI-compatible endpoints.
type Provider struct {
	client *openai.Client
	model  string
}

// New creates a new OpenAI provider. A BaseURL points the client at a
// compatible gateway.
func New(cfg llm.OpenAIConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, llm.ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Provider{client: openai.NewClientWithConfig(clientCfg), model: cfg.Model}, nil
}

func (p *Provider) Name() string  { return "openai" }
func (p *Provider) Model() string { return p.model }

// Chat sends a chat request to the OpenAI API.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.request(req))
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return &llm.ChatResponse{}, nil
	}

	choice := resp.Choices[0]
	return &llm.ChatResponse{
		Content: choice.Message.Content,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		FinishReason: string(choice.FinishReason),
	}, nil
}

func (p *Provider) request(req llm.ChatRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return chatReq
}

func classify(err error) error {
	wrapped := fmt.Errorf("openai: %w", err)
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return llm.Classify(apiErr.HTTPStatusCode, wrapped)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llm.Classify(reqErr.HTTPStatusCode, wrapped)
	}
	return llm.Classify(0, wrapped)
}
