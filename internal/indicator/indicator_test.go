package indicator

import (
	"math"
	"testing"
)

func TestSMA_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}

	sma := SMA(prices, 3)

	expected := []float64{11, 12, 13, 14}

	if len(sma) != len(expected) {
		t.Fatalf("expected %d values, got %d", len(expected), len(sma))
	}

	for i, v := range expected {
		if math.Abs(sma[i]-v) > 1e-9 {
			t.Errorf("sma[%d] = %f, want %f", i, sma[i], v)
		}
	}
}

func TestSMA_NotEnoughData(t *testing.T) {
	prices := []float64{10, 11}
	sma := SMA(prices, 5)

	if len(sma) != 0 {
		t.Errorf("expected empty slice, got %d values", len(sma))
	}
}

func TestEMA_SeededWithSMA(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}

	ema := EMA(prices, 3)

	if len(ema) != 4 {
		t.Fatalf("expected 4 values, got %d", len(ema))
	}
	if math.Abs(ema[0]-11) > 1e-9 {
		t.Errorf("first EMA should equal SMA 11, got %f", ema[0])
	}
	// k = 0.5: 11 + (13-11)*0.5 = 12
	if math.Abs(ema[1]-12) > 1e-9 {
		t.Errorf("ema[1] = %f, want 12", ema[1])
	}
}

func TestRSI_AllLossesIsZero(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 - float64(i)
	}

	rsi := RSI(prices, 14)

	if len(rsi) != 16 {
		t.Fatalf("expected 16 values, got %d", len(rsi))
	}
	for i, v := range rsi {
		if v != 0 {
			t.Errorf("rsi[%d] = %f, want 0 for a pure decline", i, v)
		}
	}
}

func TestRSI_AllGainsIsHundred(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}

	rsi := RSI(prices, 14)
	last := rsi[len(rsi)-1]
	if math.Abs(last-100) > 1e-9 {
		t.Errorf("expected RSI 100 for a pure rally, got %f", last)
	}
}

func TestMACD_LengthsAligned(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i%7)
	}

	m, s, h := MACD(prices, 12, 26, 9)

	want := 60 - (25 + 8)
	if len(m) != want || len(s) != want || len(h) != want {
		t.Fatalf("expected %d aligned values, got %d/%d/%d", want, len(m), len(s), len(h))
	}
	for i := range h {
		if math.Abs(h[i]-(m[i]-s[i])) > 1e-9 {
			t.Errorf("hist[%d] = %f, want macd-signal %f", i, h[i], m[i]-s[i])
		}
	}
}

func TestMACD_NotEnoughData(t *testing.T) {
	m, _, _ := MACD([]float64{1, 2, 3}, 12, 26, 9)
	if len(m) != 0 {
		t.Errorf("expected empty output, got %d", len(m))
	}
}

func TestBollinger_ConstantWidth(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i%2)
	}

	upper, middle, lower := Bollinger(prices, 20, 2)

	if len(middle) != 21 {
		t.Fatalf("expected 21 values, got %d", len(middle))
	}
	last := len(middle) - 1
	if math.Abs(middle[last]-100.5) > 1e-9 {
		t.Errorf("middle = %f, want 100.5", middle[last])
	}
	if math.Abs(upper[last]-101.5) > 1e-6 || math.Abs(lower[last]-99.5) > 1e-6 {
		t.Errorf("bands = %f/%f, want 101.5/99.5", upper[last], lower[last])
	}
}

func TestCrossings(t *testing.T) {
	tests := []struct {
		name  string
		a, b  []float64
		above bool
		below bool
	}{
		{"cross up", []float64{1, 3}, []float64{2, 2}, true, false},
		{"touch then up", []float64{2, 3}, []float64{2, 2}, true, false},
		{"cross down", []float64{3, 1}, []float64{2, 2}, false, true},
		{"stays above", []float64{3, 4}, []float64{2, 2}, false, false},
		{"too short", []float64{3}, []float64{2}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CrossedAbove(tt.a, tt.b); got != tt.above {
				t.Errorf("CrossedAbove = %v, want %v", got, tt.above)
			}
			if got := CrossedBelow(tt.a, tt.b); got != tt.below {
				t.Errorf("CrossedBelow = %v, want %v", got, tt.below)
			}
		})
	}
}

func TestStrength(t *testing.T) {
	if s := Strength(100, 100); s != 0.5 {
		t.Errorf("equal values should give 0.5, got %f", s)
	}
	if s := Strength(200, 100); s != 0.9 {
		t.Errorf("large gap should cap at 0.9, got %f", s)
	}
	if s := Strength(1, 0); s != 0.5 {
		t.Errorf("zero reference should give 0.5, got %f", s)
	}
}
