package sma_crossover

import (
	"fmt"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/indicator"
)

const Name = "sma_crossover"

// SMACrossover signals when the fast simple moving average crosses the slow one.
type SMACrossover struct {
	fastPeriod int
	slowPeriod int
}

// New creates a new SMA Crossover strategy
func New(fastPeriod, slowPeriod int) *SMACrossover {
	return &SMACrossover{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
	}
}

func (m *SMACrossover) Name() string {
	return Name
}

func (m *SMACrossover) MinBars() int {
	return 2 * m.slowPeriod
}

func (m *SMACrossover) Evaluate(s core.Series) []core.Signal {
	if s.Len() < m.MinBars() {
		return nil
	}

	prices := s.Closes()
	fastMA := indicator.SMA(prices, m.fastPeriod)
	slowMA := indicator.SMA(prices, m.slowPeriod)

	last, _ := s.Last()
	_, currFast, _ := indicator.LastTwo(fastMA)
	_, currSlow, _ := indicator.LastTwo(slowMA)

	// Golden Cross: fast crosses above slow
	if indicator.CrossedAbove(fastMA, slowMA) {
		return []core.Signal{{
			Symbol:    s.Instrument.Symbol,
			Strategy:  Name,
			Direction: core.DirectionBuy,
			Strength:  indicator.Strength(currFast, currSlow),
			Price:     last.Close.InexactFloat64(),
			Reason:    fmt.Sprintf("Golden Cross: SMA%d (%.2f) crossed above SMA%d (%.2f)", m.fastPeriod, currFast, m.slowPeriod, currSlow),
			Time:      last.Time,
		}}
	}

	// Death Cross: fast crosses below slow
	if indicator.CrossedBelow(fastMA, slowMA) {
		return []core.Signal{{
			Symbol:    s.Instrument.Symbol,
			Strategy:  Name,
			Direction: core.DirectionSell,
			Strength:  indicator.Strength(currFast, currSlow),
			Price:     last.Close.InexactFloat64(),
			Reason:    fmt.Sprintf("Death Cross: SMA%d (%.2f) crossed below SMA%d (%.2f)", m.fastPeriod, currFast, m.slowPeriod, currSlow),
			Time:      last.Time,
		}}
	}

	return nil
}
