package ema_crossover

import (
	"fmt"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/indicator"
)

const Name = "ema_crossover"

// EMACrossover is the exponential variant of the moving-average crossover.
type EMACrossover struct {
	fastPeriod int
	slowPeriod int
}

func New(fastPeriod, slowPeriod int) *EMACrossover {
	return &EMACrossover{fastPeriod: fastPeriod, slowPeriod: slowPeriod}
}

func (e *EMACrossover) Name() string { return Name }

// MinBars leaves one slow window of warm-up for the EMA seed to wash out.
func (e *EMACrossover) MinBars() int { return 2 * e.slowPeriod }

func (e *EMACrossover) Evaluate(s core.Series) []core.Signal {
	if s.Len() < e.MinBars() {
		return nil
	}

	prices := s.Closes()
	fast := indicator.EMA(prices, e.fastPeriod)
	slow := indicator.EMA(prices, e.slowPeriod)

	var dir core.Direction
	var verb string
	switch {
	case indicator.CrossedAbove(fast, slow):
		dir, verb = core.DirectionBuy, "above"
	case indicator.CrossedBelow(fast, slow):
		dir, verb = core.DirectionSell, "below"
	default:
		return nil
	}

	last, _ := s.Last()
	_, f, _ := indicator.LastTwo(fast)
	_, sl, _ := indicator.LastTwo(slow)
	return []core.Signal{{
		Symbol:    s.Instrument.Symbol,
		Strategy:  Name,
		Direction: dir,
		Strength:  indicator.Strength(f, sl),
		Price:     last.Close.InexactFloat64(),
		Reason:    fmt.Sprintf("EMA%d (%.2f) crossed %s EMA%d (%.2f)", e.fastPeriod, f, verb, e.slowPeriod, sl),
		Time:      last.Time,
	}}
}
