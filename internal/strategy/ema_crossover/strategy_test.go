package ema_crossover

import (
	"testing"
	"time"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/provider/providertest"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func series(closes ...float64) core.Series {
	return core.NewSeries(core.ParseInstrument("TEST"), core.Interval1d, providertest.Daily(start, closes...))
}

func TestEMACrossover(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   core.Direction
	}{
		// fast EMA2 82.47 -> 107.49, slow EMA4 86.69 -> 100.01
		{"bullish", []float64{100, 100, 100, 95, 90, 85, 80, 120}, core.DirectionBuy},
		{"bearish", []float64{100, 100, 100, 105, 110, 115, 120, 80}, core.DirectionSell},
		{"no crossing", []float64{100, 101, 102, 103, 104, 105, 106, 107}, ""},
		{"too short", []float64{100, 95, 90, 120}, ""},
	}

	e := New(2, 4)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := e.Evaluate(series(tt.closes...))
			if tt.want == "" {
				if len(signals) != 0 {
					t.Errorf("expected no signal, got %+v", signals)
				}
				return
			}
			if len(signals) != 1 {
				t.Fatalf("expected 1 signal, got %d", len(signals))
			}
			if signals[0].Direction != tt.want {
				t.Errorf("expected %s, got %s", tt.want, signals[0].Direction)
			}
			if signals[0].Strength < 0.5 || signals[0].Strength > 0.9 {
				t.Errorf("strength out of range: %f", signals[0].Strength)
			}
		})
	}
}
