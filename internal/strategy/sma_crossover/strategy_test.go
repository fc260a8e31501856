package sma_crossover

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

func TestSMACrossover_Name(t *testing.T) {
	s := New(20, 50)
	if s.Name() != "sma_crossover" {
		t.Errorf("expected 'sma_crossover', got '%s'", s.Name())
	}
	if s.MinBars() != 100 {
		t.Errorf("expected MinBars 100, got %d", s.MinBars())
	}
}

func TestSMACrossover_GoldenCross(t *testing.T) {
	s := New(2, 4)

	// prevFast = (85+80)/2 = 82.5   prevSlow = (95+90+85+80)/4 = 87.5
	// currFast = (80+120)/2 = 100   currSlow = (90+85+80+120)/4 = 93.75
	signals := s.Evaluate(series(100, 100, 100, 95, 90, 85, 80, 120))

	if len(signals) != 1 {
		t.Fatalf("expected 1 signal for golden cross, got %d", len(signals))
	}
	sig := signals[0]
	if sig.Direction != core.DirectionBuy {
		t.Errorf("expected buy for golden cross, got %s", sig.Direction)
	}
	if sig.Symbol != "TEST" || sig.Price != 120 {
		t.Errorf("unexpected signal fields: %+v", sig)
	}
	if !sig.Time.Equal(start.AddDate(0, 0, 7)) {
		t.Errorf("signal should carry the last bar time, got %v", sig.Time)
	}
}

func TestSMACrossover_DeathCross(t *testing.T) {
	s := New(2, 4)

	signals := s.Evaluate(series(100, 100, 100, 105, 110, 115, 120, 80))

	if len(signals) != 1 || signals[0].Direction != core.DirectionSell {
		t.Fatalf("expected one sell signal, got %+v", signals)
	}
}

func TestSMACrossover_FiresOncePerCrossing(t *testing.T) {
	s := New(2, 4)

	// one more rising bar after the golden cross: fast stays above slow
	signals := s.Evaluate(series(100, 100, 100, 95, 90, 85, 80, 120, 125))

	if len(signals) != 0 {
		t.Errorf("expected no repeat signal after the crossing bar, got %d", len(signals))
	}
}

func TestSMACrossover_NotEnoughData(t *testing.T) {
	s := New(2, 4)

	signals := s.Evaluate(series(100, 95, 90, 85, 80, 120))

	if signals != nil {
		t.Errorf("expected nil below MinBars, got %d signals", len(signals))
	}
}
