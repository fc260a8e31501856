package strategy

import (
	"github.com/newthinker/meridian/internal/core"
)

// Config holds strategy configuration
type Config struct {
	Enabled bool           `mapstructure:"enabled"`
	Params  map[string]any `mapstructure:"params"`
}

// Evaluator turns one series into zero or more directional signals.
// Implementations are stateless and deterministic; with fewer than MinBars
// bars they return nil.
type Evaluator interface {
	Name() string
	MinBars() int
	Evaluate(s core.Series) []core.Signal
}
