package strategy

import (
	"sort"

	"go.uber.org/zap"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/strategy/bollinger"
	"github.com/newthinker/meridian/internal/strategy/ema_crossover"
	"github.com/newthinker/meridian/internal/strategy/macd"
	"github.com/newthinker/meridian/internal/strategy/rsi"
	"github.com/newthinker/meridian/internal/strategy/sma_crossover"
)

// Names lists the built-in evaluators in registration order.
var Names = []string{
	sma_crossover.Name,
	ema_crossover.Name,
	macd.Name,
	rsi.Name,
	bollinger.Name,
}

// Build constructs an engine holding every enabled evaluator.
func Build(cfg map[string]Config, logger *zap.Logger) (*Engine, error) {
	known := make(map[string]bool, len(Names))
	for _, n := range Names {
		known[n] = true
	}
	var unknown []string
	for name := range cfg {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown strategies %v", unknown)
	}

	engine := NewEngine(logger)
	for _, name := range Names {
		c, ok := cfg[name]
		if !ok || !c.Enabled {
			continue
		}
		ev, err := build(name, c.Params)
		if err != nil {
			return nil, wrapParam(name, err)
		}
		engine.Register(ev)
	}
	return engine, nil
}

func build(name string, params map[string]any) (Evaluator, error) {
	switch name {
	case sma_crossover.Name, ema_crossover.Name:
		defFast, defSlow := 20, 50
		if name == ema_crossover.Name {
			defFast, defSlow = 12, 26
		}
		fast, err := intParam(params, "fast_period", defFast)
		if err != nil {
			return nil, err
		}
		slow, err := intParam(params, "slow_period", defSlow)
		if err != nil {
			return nil, err
		}
		if err := positive("fast_period", fast); err != nil {
			return nil, err
		}
		if err := ordered("fast_period", fast, "slow_period", slow); err != nil {
			return nil, err
		}
		if name == sma_crossover.Name {
			return sma_crossover.New(fast, slow), nil
		}
		return ema_crossover.New(fast, slow), nil

	case macd.Name:
		fast, err := intParam(params, "fast_period", 12)
		if err != nil {
			return nil, err
		}
		slow, err := intParam(params, "slow_period", 26)
		if err != nil {
			return nil, err
		}
		signal, err := intParam(params, "signal_period", 9)
		if err != nil {
			return nil, err
		}
		if fast < 2 {
			return nil, core.Errorf(core.ErrConfigInvalid, "fast_period must be at least 2, got %d", fast)
		}
		if err := ordered("fast_period", fast, "slow_period", slow); err != nil {
			return nil, err
		}
		if err := positive("signal_period", signal); err != nil {
			return nil, err
		}
		return macd.New(fast, slow, signal), nil

	case rsi.Name:
		period, err := intParam(params, "period", 14)
		if err != nil {
			return nil, err
		}
		oversold, err := floatParam(params, "oversold", 30)
		if err != nil {
			return nil, err
		}
		overbought, err := floatParam(params, "overbought", 70)
		if err != nil {
			return nil, err
		}
		if period < 2 {
			return nil, core.Errorf(core.ErrConfigInvalid, "period must be at least 2, got %d", period)
		}
		if oversold <= 0 || overbought >= 100 || oversold >= overbought {
			return nil, core.Errorf(core.ErrConfigInvalid, "need 0 < oversold (%v) < overbought (%v) < 100", oversold, overbought)
		}
		return rsi.New(period, oversold, overbought), nil

	case bollinger.Name:
		period, err := intParam(params, "period", 20)
		if err != nil {
			return nil, err
		}
		k, err := floatParam(params, "k", 2.0)
		if err != nil {
			return nil, err
		}
		if period < 2 {
			return nil, core.Errorf(core.ErrConfigInvalid, "period must be at least 2, got %d", period)
		}
		if k <= 0 {
			return nil, core.Errorf(core.ErrConfigInvalid, "k must be positive, got %v", k)
		}
		return bollinger.New(period, k), nil
	}
	return nil, core.Errorf(core.ErrConfigInvalid, "unknown strategy %s", name)
}
