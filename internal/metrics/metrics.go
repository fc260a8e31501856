package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/newthinker/meridian/internal/core"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics for the metrics listener itself
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Source manager
	fetchAttempts *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	sourceDelay   *prometheus.GaugeVec

	// Analysis
	signalsTotal       *prometheus.CounterVec
	decisionsTotal     *prometheus.CounterVec
	analysisDuration   prometheus.Histogram
	instrumentsSkipped prometheus.Counter
	watchlistSymbols   prometheus.Gauge

	// News
	newsInserted    *prometheus.CounterVec
	sentimentScored prometheus.Counter
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),

		fetchAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_fetch_attempts_total",
				Help: "Provider calls by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meridian_fetch_duration_seconds",
				Help:    "Provider call latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_cache_lookups_total",
				Help: "Cache lookups by result",
			},
			[]string{"result"},
		),
		sourceDelay: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "meridian_source_delay_seconds",
				Help: "Current adaptive delay per source",
			},
			[]string{"source"},
		),

		signalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_signals_total",
				Help: "Strategy signals by strategy and direction",
			},
			[]string{"strategy", "direction"},
		),
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_decisions_total",
				Help: "Consensus decisions by action",
			},
			[]string{"action"},
		),
		analysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "meridian_analysis_duration_seconds",
				Help:    "Analysis cycle duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		instrumentsSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "meridian_instruments_skipped_total",
				Help: "Instruments skipped because every source was exhausted",
			},
		),
		watchlistSymbols: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "meridian_watchlist_symbols",
				Help: "Number of symbols in watchlist",
			},
		),

		newsInserted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_news_inserted_total",
				Help: "News items appended by symbol",
			},
			[]string{"symbol"},
		),
		sentimentScored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "meridian_sentiment_scores_total",
				Help: "Sentiment scores appended",
			},
		),
	}

	reg.MustRegister(
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.httpRequestsInFlight,
		r.fetchAttempts,
		r.fetchDuration,
		r.cacheLookups,
		r.sourceDelay,
		r.signalsTotal,
		r.decisionsTotal,
		r.analysisDuration,
		r.instrumentsSkipped,
		r.watchlistSymbols,
		r.newsInserted,
		r.sentimentScored,
	)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	r.httpRequestsTotal.WithLabelValues(method, path, statusToString(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() { r.httpRequestsInFlight.Inc() }

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() { r.httpRequestsInFlight.Dec() }

// ObserveFetch records one provider call.
func (r *Registry) ObserveFetch(source, outcome string, elapsed time.Duration) {
	r.fetchAttempts.WithLabelValues(source, outcome).Inc()
	r.fetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveCache records one cache lookup result.
func (r *Registry) ObserveCache(result string) {
	r.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveDelay publishes the adaptive delay of a source.
func (r *Registry) ObserveDelay(source string, delay time.Duration) {
	r.sourceDelay.WithLabelValues(source).Set(delay.Seconds())
}

// RecordDecision counts a decision and every signal behind it.
func (r *Registry) RecordDecision(d core.ConsensusDecision) {
	r.decisionsTotal.WithLabelValues(string(d.Action)).Inc()
	for _, s := range d.Signals {
		r.signalsTotal.WithLabelValues(s.Strategy, string(s.Direction)).Inc()
	}
}

// RecordSkipped counts an instrument dropped from a cycle.
func (r *Registry) RecordSkipped() { r.instrumentsSkipped.Inc() }

// RecordAnalysisCycle records an analysis cycle completion.
func (r *Registry) RecordAnalysisCycle(duration time.Duration) {
	r.analysisDuration.Observe(duration.Seconds())
}

// SetWatchlistSize sets the watchlist size.
func (r *Registry) SetWatchlistSize(size int) {
	r.watchlistSymbols.Set(float64(size))
}

// RecordNews counts appended news items per symbol.
func (r *Registry) RecordNews(items []core.NewsItem) {
	for _, it := range items {
		r.newsInserted.WithLabelValues(it.Symbol).Inc()
	}
}

// RecordSentiment counts appended sentiment scores.
func (r *Registry) RecordSentiment(n int) {
	r.sentimentScored.Add(float64(n))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
