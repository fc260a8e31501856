// Package indicator wraps go-talib and trims each output to the values past
// the indicator's lookback, so index i of a result lines up with the tail of
// the input.
package indicator

import (
	"github.com/markcheno/go-talib"
)

// SMA calculates Simple Moving Average.
// Returns slice of length: len(prices) - period + 1
func SMA(prices []float64, period int) []float64 {
	if period < 1 || len(prices) < period {
		return []float64{}
	}
	if period == 1 {
		return append([]float64(nil), prices...)
	}
	return talib.Sma(prices, period)[period-1:]
}

// EMA calculates Exponential Moving Average seeded with the SMA of the first period.
func EMA(prices []float64, period int) []float64 {
	if period < 1 || len(prices) < period {
		return []float64{}
	}
	if period == 1 {
		return append([]float64(nil), prices...)
	}
	return talib.Ema(prices, period)[period-1:]
}

// RSI calculates Wilder's Relative Strength Index.
// Returns slice of length: len(prices) - period
func RSI(prices []float64, period int) []float64 {
	if period < 2 || len(prices) <= period {
		return []float64{}
	}
	return talib.Rsi(prices, period)[period:]
}

// MACD returns the MACD line, its signal line and the histogram.
func MACD(prices []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	lookback := (slow - 1) + (signal - 1)
	if fast < 2 || slow <= fast || signal < 1 || len(prices) <= lookback {
		return []float64{}, []float64{}, []float64{}
	}
	m, s, h := talib.Macd(prices, fast, slow, signal)
	return m[lookback:], s[lookback:], h[lookback:]
}

// Bollinger returns upper, middle and lower bands at k population standard
// deviations around the SMA.
func Bollinger(prices []float64, period int, k float64) (upper, middle, lower []float64) {
	if period < 2 || len(prices) < period {
		return []float64{}, []float64{}, []float64{}
	}
	u, m, l := talib.BBands(prices, period, k, k, talib.SMA)
	return u[period-1:], m[period-1:], l[period-1:]
}

// LastTwo returns the previous and current values of xs.
func LastTwo(xs []float64) (prev, curr float64, ok bool) {
	if len(xs) < 2 {
		return 0, 0, false
	}
	return xs[len(xs)-2], xs[len(xs)-1], true
}

// CrossedAbove reports a crosses from at-or-below b to above it between the
// last two aligned values.
func CrossedAbove(a, b []float64) bool {
	pa, ca, ok1 := LastTwo(a)
	pb, cb, ok2 := LastTwo(b)
	return ok1 && ok2 && pa <= pb && ca > cb
}

// CrossedBelow reports a crosses from at-or-above b to below it.
func CrossedBelow(a, b []float64) bool {
	pa, ca, ok1 := LastTwo(a)
	pb, cb, ok2 := LastTwo(b)
	return ok1 && ok2 && pa >= pb && ca < cb
}

// Strength maps the relative gap between two values into [0.5, 0.9].
func Strength(value, reference float64) float64 {
	if reference == 0 {
		return 0.5
	}
	diff := (value - reference) / reference
	if diff < 0 {
		diff = -diff
	}
	s := 0.5 + diff*10
	if s > 0.9 {
		s = 0.9
	}
	return s
}
