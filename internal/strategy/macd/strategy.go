package macd

import (
	"fmt"
	"math"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/indicator"
)

const Name = "macd"

// MACD signals when the MACD line crosses its signal line.
type MACD struct {
	fast, slow, signal int
}

func New(fast, slow, signal int) *MACD {
	return &MACD{fast: fast, slow: slow, signal: signal}
}

func (m *MACD) Name() string { return Name }

func (m *MACD) MinBars() int { return 2 * (m.slow + m.signal) }

func (m *MACD) Evaluate(s core.Series) []core.Signal {
	if s.Len() < m.MinBars() {
		return nil
	}

	line, sig, hist := indicator.MACD(s.Closes(), m.fast, m.slow, m.signal)

	var dir core.Direction
	switch {
	case indicator.CrossedAbove(line, sig):
		dir = core.DirectionBuy
	case indicator.CrossedBelow(line, sig):
		dir = core.DirectionSell
	default:
		return nil
	}

	last, _ := s.Last()
	price := last.Close.InexactFloat64()
	_, h, _ := indicator.LastTwo(hist)
	_, l, _ := indicator.LastTwo(line)

	// histogram relative to price, scaled like the crossover strength
	strength := 0.5
	if price > 0 {
		strength = math.Min(0.9, 0.5+math.Abs(h)/price*100)
	}
	return []core.Signal{{
		Symbol:    s.Instrument.Symbol,
		Strategy:  Name,
		Direction: dir,
		Strength:  strength,
		Price:     price,
		Reason:    fmt.Sprintf("MACD(%d,%d,%d) %.4f crossed signal, histogram %.4f", m.fast, m.slow, m.signal, l, h),
		Time:      last.Time,
	}}
}
