package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/source"
)

var _ source.Observer = (*Registry)(nil)

// Ensure the registry implements prometheus.Gatherer interface
var _ prometheus.Gatherer = (*Registry)(nil)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	// Should have go runtime metrics at minimum
	if len(mfs) == 0 {
		t.Error("expected some metrics to be registered")
	}
}

func TestRegistry_ObserveFetch(t *testing.T) {
	reg := NewRegistry()

	reg.ObserveFetch("yahoo", "ok", 120*time.Millisecond)
	reg.ObserveFetch("yahoo", "rate_limited", 10*time.Millisecond)
	reg.ObserveFetch("yahoo", "ok", 80*time.Millisecond)

	if got := testutil.ToFloat64(reg.fetchAttempts.WithLabelValues("yahoo", "ok")); got != 2 {
		t.Errorf("expected 2 ok attempts, got %v", got)
	}
	if got := testutil.ToFloat64(reg.fetchAttempts.WithLabelValues("yahoo", "rate_limited")); got != 1 {
		t.Errorf("expected 1 rate_limited attempt, got %v", got)
	}
	if n := testutil.CollectAndCount(reg.fetchDuration, "meridian_fetch_duration_seconds"); n != 1 {
		t.Errorf("expected one histogram series, got %d", n)
	}
}

func TestRegistry_CacheAndDelay(t *testing.T) {
	reg := NewRegistry()

	reg.ObserveCache(source.CacheHit)
	reg.ObserveCache(source.CacheHit)
	reg.ObserveCache(source.CacheMiss)
	reg.ObserveDelay("polygon", 1500*time.Millisecond)

	if got := testutil.ToFloat64(reg.cacheLookups.WithLabelValues(source.CacheHit)); got != 2 {
		t.Errorf("expected 2 hits, got %v", got)
	}
	if got := testutil.ToFloat64(reg.sourceDelay.WithLabelValues("polygon")); got != 1.5 {
		t.Errorf("expected delay 1.5s, got %v", got)
	}
}

func TestRegistry_RecordDecision(t *testing.T) {
	reg := NewRegistry()

	reg.RecordDecision(core.ConsensusDecision{
		Action: core.ActionBuy,
		Signals: []core.Signal{
			{Strategy: "rsi", Direction: core.DirectionBuy},
			{Strategy: "rsi", Direction: core.DirectionBuy},
			{Strategy: "macd", Direction: core.DirectionSell},
		},
	})
	reg.RecordDecision(core.ConsensusDecision{Action: core.ActionHold})

	if got := testutil.ToFloat64(reg.decisionsTotal.WithLabelValues("buy")); got != 1 {
		t.Errorf("expected 1 buy decision, got %v", got)
	}
	if got := testutil.ToFloat64(reg.decisionsTotal.WithLabelValues("hold")); got != 1 {
		t.Errorf("expected 1 hold decision, got %v", got)
	}
	if got := testutil.ToFloat64(reg.signalsTotal.WithLabelValues("rsi", "buy")); got != 2 {
		t.Errorf("expected 2 rsi buys, got %v", got)
	}
}

func TestRegistry_CycleCounters(t *testing.T) {
	reg := NewRegistry()

	reg.RecordSkipped()
	reg.RecordSkipped()
	reg.SetWatchlistSize(7)
	reg.RecordAnalysisCycle(2 * time.Second)
	reg.RecordNews([]core.NewsItem{{Symbol: "AAPL"}, {Symbol: "AAPL"}, {Symbol: "MSFT"}})
	reg.RecordSentiment(4)

	if got := testutil.ToFloat64(reg.instrumentsSkipped); got != 2 {
		t.Errorf("expected 2 skipped, got %v", got)
	}
	if got := testutil.ToFloat64(reg.watchlistSymbols); got != 7 {
		t.Errorf("expected watchlist 7, got %v", got)
	}
	if got := testutil.ToFloat64(reg.newsInserted.WithLabelValues("AAPL")); got != 2 {
		t.Errorf("expected 2 AAPL news, got %v", got)
	}
	if got := testutil.ToFloat64(reg.sentimentScored); got != 4 {
		t.Errorf("expected 4 scores, got %v", got)
	}
}

func TestRegistry_RecordRequest_StatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			reg := NewRegistry()
			reg.RecordRequest("GET", "/metrics", tt.status, 0.01)

			if got := testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("GET", "/metrics", tt.expected)); got != 1 {
				t.Errorf("expected status label %s for status code %d", tt.expected, tt.status)
			}
		})
	}
}

func TestRegistry_InFlight(t *testing.T) {
	reg := NewRegistry()

	reg.InFlightInc()
	reg.InFlightInc()
	reg.InFlightDec()

	if got := testutil.ToFloat64(reg.httpRequestsInFlight); got != 1 {
		t.Errorf("expected in-flight gauge to be 1, got %v", got)
	}
}
