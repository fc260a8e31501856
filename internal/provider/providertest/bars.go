package providertest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/meridian/internal/core"
)

// Daily returns one bar per calendar day from start, one per close.
func Daily(start time.Time, closes ...float64) []core.Bar {
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar(start.AddDate(0, 0, i), c)
	}
	return bars
}

// Flat returns n daily bars with a slowly rising close.
func Flat(start time.Time, n int, price float64) []core.Bar {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price + float64(i)*0.01
	}
	return Daily(start, closes...)
}

// Bar builds a valid bar around close.
func Bar(t time.Time, close float64) core.Bar {
	c := decimal.NewFromFloat(close)
	return core.Bar{
		Time:   t.UTC(),
		Open:   c,
		High:   c.Add(decimal.NewFromFloat(0.5)),
		Low:    c.Sub(decimal.NewFromFloat(0.5)),
		Close:  c,
		Volume: 1000,
	}
}
