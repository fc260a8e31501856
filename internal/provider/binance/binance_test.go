package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/provider"
	"github.com/newthinker/meridian/internal/provider/providertest"
)

func TestBinance_Name(t *testing.T) {
	b := New(provider.Config{})
	if b.Name() != "binance" {
		t.Errorf("expected 'binance', got '%s'", b.Name())
	}
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"BTC", "BTCUSDT"},
		{"btc-usdt", "BTCUSDT"},
		{"ETH/BTC", "ETHBTC"},
		{"sol_usdc", "SOLUSDC"},
		{"BTCUSDT", "BTCUSDT"},
	}
	for _, tc := range tests {
		got := normalizeSymbol(tc.input)
		if got != tc.expected {
			t.Errorf("normalizeSymbol(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func TestToInterval(t *testing.T) {
	tests := []struct {
		input    core.Interval
		expected string
	}{
		{core.Interval1m, "1m"},
		{core.Interval15m, "15m"},
		{core.Interval1h, "1h"},
		{core.Interval1d, "1d"},
		{core.Interval("3d"), "1d"},
	}
	for _, tc := range tests {
		got := toInterval(tc.input)
		if got != tc.expected {
			t.Errorf("toInterval(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func klinesServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("symbol") {
		case "NOPEUSDT":
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
			return
		case "SPAMUSDT":
			w.WriteHeader(http.StatusTeapot)
			fmt.Fprint(w, `{"code":-1003,"msg":"Too many requests."}`)
			return
		}
		start, _ := strconv.ParseInt(q.Get("startTime"), 10, 64)
		end, _ := strconv.ParseInt(q.Get("endTime"), 10, 64)
		var rows []string
		for ts := start; ts <= end; ts += int64(24 * time.Hour / time.Millisecond) {
			rows = append(rows, fmt.Sprintf(`[%d,"100.0","110.5","95.25","105.0","12.7",%d,"0",1,"0","0","0"]`, ts, ts+1))
		}
		fmt.Fprintf(w, "[%s]", strings.Join(rows, ","))
	}))
}

func TestBinance_Conformance(t *testing.T) {
	srv := klinesServer(t)
	defer srv.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	providertest.Run(t, New(provider.Config{BaseURL: srv.URL}), providertest.Case{
		Interval: core.Interval1d,
		Range:    core.NewTimeRange(start, start.AddDate(0, 0, 5)),
		Known:    []core.Instrument{core.ParseInstrument("BTC"), core.ParseInstrument("ETH-USDT")},
		Unknown:  core.ParseInstrument("NOPE"),
	})
}

func TestBinance_Fetch(t *testing.T) {
	srv := klinesServer(t)
	defer srv.Close()

	b := New(provider.Config{BaseURL: srv.URL})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := b.Fetch(context.Background(), core.ParseInstrument("BTC"), core.Interval1d, core.NewTimeRange(start, start.AddDate(0, 0, 5)))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if s.Len() != 5 {
		t.Fatalf("expected 5 bars, got %d", s.Len())
	}
	if s.Instrument.AssetClass != core.AssetCrypto {
		t.Errorf("expected crypto asset class, got %s", s.Instrument.AssetClass)
	}
	if s.Bars[0].Low.String() != "95.25" {
		t.Errorf("expected low 95.25, got %s", s.Bars[0].Low)
	}
	if s.Bars[0].Volume != 12 {
		t.Errorf("expected volume 12, got %d", s.Bars[0].Volume)
	}
}

func TestBinance_RateLimited(t *testing.T) {
	srv := klinesServer(t)
	defer srv.Close()

	b := New(provider.Config{BaseURL: srv.URL})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := b.Fetch(context.Background(), core.ParseInstrument("SPAM"), core.Interval1d, core.NewTimeRange(start, start.AddDate(0, 0, 5)))
	if !errors.Is(err, core.ErrRateLimited) {
		t.Errorf("expected RATE_LIMITED, got %v", err)
	}
}
