package factory

import (
	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/llm"
	"github.com/newthinker/meridian/internal/llm/claude"
	"github.com/newthinker/meridian/internal/llm/ollama"
	"github.com/newthinker/meridian/internal/llm/openai"
)

// New creates an LLM provider based on configuration.
func New(cfg llm.Config) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude)
	case "openai":
		return openai.New(cfg.OpenAI)
	case "ollama":
		return ollama.New(cfg.Ollama)
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown LLM provider: %q", cfg.Provider)
	}
}

// NewAll builds one provider per entry, in order.
func NewAll(cfgs []llm.Config) ([]llm.Provider, error) {
	out := make([]llm.Provider, 0, len(cfgs))
	for _, cfg := range cfgs {
		p, err := New(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
