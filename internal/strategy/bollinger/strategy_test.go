package bollinger

import (
	"testing"
	"time"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/provider/providertest"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// alternating 100/101 keeps the bands at 99.5 and 101.5
func quiet(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i%2)
	}
	return closes
}

func series(closes []float64) core.Series {
	return core.NewSeries(core.ParseInstrument("TEST"), core.Interval1d, providertest.Daily(start, closes...))
}

func TestBollinger(t *testing.T) {
	tests := []struct {
		name string
		last float64
		want core.Direction
	}{
		{"break below lower band", 90, core.DirectionBuy},
		{"break above upper band", 111, core.DirectionSell},
		{"inside the bands", 100.5, ""},
	}

	b := New(20, 2)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := b.Evaluate(series(append(quiet(45), tt.last)))
			if tt.want == "" {
				if len(signals) != 0 {
					t.Errorf("expected no signal, got %+v", signals)
				}
				return
			}
			if len(signals) != 1 || signals[0].Direction != tt.want {
				t.Fatalf("expected one %s signal, got %+v", tt.want, signals)
			}
			if signals[0].Price != tt.last {
				t.Errorf("expected price %v, got %v", tt.last, signals[0].Price)
			}
		})
	}
}

func TestBollinger_OneShot(t *testing.T) {
	b := New(20, 2)

	// still below the band on the next bar; the crossing already happened
	signals := b.Evaluate(series(append(quiet(45), 90, 85)))
	if len(signals) != 0 {
		t.Errorf("expected no repeat signal, got %+v", signals)
	}
}

func TestBollinger_NotEnoughData(t *testing.T) {
	b := New(20, 2)
	if b.Evaluate(series(quiet(39))) != nil {
		t.Error("expected nil below MinBars")
	}
}
