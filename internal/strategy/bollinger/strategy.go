package bollinger

import (
	"fmt"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/indicator"
)

const Name = "bollinger"

// Bollinger treats a close breaking out of the bands as a mean-reversion
// entry: below the lower band buys, above the upper band sells.
type Bollinger struct {
	period int
	k      float64
}

func New(period int, k float64) *Bollinger {
	return &Bollinger{period: period, k: k}
}

func (b *Bollinger) Name() string { return Name }

func (b *Bollinger) MinBars() int { return 2 * b.period }

func (b *Bollinger) Evaluate(s core.Series) []core.Signal {
	if s.Len() < b.MinBars() {
		return nil
	}

	closes := s.Closes()
	upper, _, lower := indicator.Bollinger(closes, b.period, b.k)
	tail := closes[len(closes)-len(upper):]

	last, _ := s.Last()
	price := last.Close.InexactFloat64()
	_, lo, _ := indicator.LastTwo(lower)
	_, up, _ := indicator.LastTwo(upper)

	switch {
	case indicator.CrossedBelow(tail, lower):
		return []core.Signal{{
			Symbol:    s.Instrument.Symbol,
			Strategy:  Name,
			Direction: core.DirectionBuy,
			Strength:  indicator.Strength(price, lo),
			Price:     price,
			Reason:    fmt.Sprintf("close %.2f broke below lower band %.2f", price, lo),
			Time:      last.Time,
		}}
	case indicator.CrossedAbove(tail, upper):
		return []core.Signal{{
			Symbol:    s.Instrument.Symbol,
			Strategy:  Name,
			Direction: core.DirectionSell,
			Strength:  indicator.Strength(price, up),
			Price:     price,
			Reason:    fmt.Sprintf("close %.2f broke above upper band %.2f", price, up),
			Time:      last.Time,
		}}
	}
	return nil
}
