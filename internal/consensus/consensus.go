// Package consensus folds per-source strategy signals into one decision.
package consensus

import (
	"sort"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/newthinker/meridian/internal/core"
)

// Config holds vote multipliers. A missing entry counts as 1.
type Config struct {
	StrategyWeights map[string]float64 `mapstructure:"strategy_weights" validate:"dive,gte=0"`
	SourceWeights   map[string]float64 `mapstructure:"source_weights" validate:"dive,gte=0"`
}

// Engine produces deterministic buy/sell/hold decisions.
type Engine struct {
	cfg   Config
	clock clock.Clock
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to stamp DecidedAt.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDFunc replaces the uuid generator.
func WithIDFunc(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates a consensus engine.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:   cfg,
		clock: clock.New(),
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weight returns the vote weight of one signal.
func (e *Engine) Weight(sig core.Signal) float64 {
	w := 1.0
	if v, ok := e.cfg.StrategyWeights[sig.Strategy]; ok {
		w *= v
	}
	if v, ok := e.cfg.SourceWeights[sig.Source]; ok {
		w *= v
	}
	return w
}

// Consensus counts every signal across sources. Buy wins when its weighted
// count exceeds sell and vice versa; a tie or no votes is hold.
func (e *Engine) Consensus(symbol string, perSource map[string][]core.Signal) core.ConsensusDecision {
	d := core.ConsensusDecision{
		ID:        e.newID(),
		Symbol:    symbol,
		Action:    core.ActionHold,
		Sources:   make([]string, 0, len(perSource)),
		DecidedAt: e.clock.Now().UTC(),
	}

	for src, signals := range perSource {
		d.Sources = append(d.Sources, src)
		for _, sig := range signals {
			if sig.Source == "" {
				sig.Source = src
			}
			d.Signals = append(d.Signals, sig)
		}
	}
	sort.Strings(d.Sources)
	sortSignals(d.Signals)

	var buy, sell float64
	for _, sig := range d.Signals {
		switch sig.Direction {
		case core.DirectionBuy:
			d.BuyCount++
			buy += e.Weight(sig)
		case core.DirectionSell:
			d.SellCount++
			sell += e.Weight(sig)
		}
	}
	d.TotalSignals = d.BuyCount + d.SellCount

	total := buy + sell
	if total <= 0 {
		return d
	}
	switch {
	case buy > sell:
		d.Action = core.ActionBuy
		d.Confidence = buy / total
	case sell > buy:
		d.Action = core.ActionSell
		d.Confidence = sell / total
	default:
		d.Confidence = buy / total
	}
	return d
}

func sortSignals(signals []core.Signal) {
	sort.SliceStable(signals, func(i, j int) bool {
		a, b := signals[i], signals[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Strategy != b.Strategy {
			return a.Strategy < b.Strategy
		}
		return a.Direction < b.Direction
	})
}
