package rsi

import (
	"fmt"
	"math"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/indicator"
)

const Name = "rsi"

// RSI buys on a recovery through the oversold level and sells on a
// roll-over through the overbought level.
type RSI struct {
	period     int
	oversold   float64
	overbought float64
}

func New(period int, oversold, overbought float64) *RSI {
	return &RSI{period: period, oversold: oversold, overbought: overbought}
}

func (r *RSI) Name() string { return Name }

func (r *RSI) MinBars() int { return 2*r.period + 1 }

func (r *RSI) Evaluate(s core.Series) []core.Signal {
	if s.Len() < r.MinBars() {
		return nil
	}

	prev, curr, ok := indicator.LastTwo(indicator.RSI(s.Closes(), r.period))
	if !ok {
		return nil
	}

	var dir core.Direction
	var reason string
	switch {
	case prev < r.oversold && curr >= r.oversold:
		dir = core.DirectionBuy
		reason = fmt.Sprintf("RSI%d rose through %.0f (%.1f -> %.1f)", r.period, r.oversold, prev, curr)
	case prev > r.overbought && curr <= r.overbought:
		dir = core.DirectionSell
		reason = fmt.Sprintf("RSI%d fell through %.0f (%.1f -> %.1f)", r.period, r.overbought, prev, curr)
	default:
		return nil
	}

	last, _ := s.Last()
	return []core.Signal{{
		Symbol:    s.Instrument.Symbol,
		Strategy:  Name,
		Direction: dir,
		Strength:  math.Min(0.9, 0.5+math.Abs(prev-curr)/100),
		Price:     last.Close.InexactFloat64(),
		Reason:    reason,
		Time:      last.Time,
	}}
}
