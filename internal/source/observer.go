package source

import "time"

// Observer receives per-call measurements. metrics.Metrics implements it.
type Observer interface {
	ObserveFetch(source, outcome string, elapsed time.Duration)
	ObserveCache(result string)
	ObserveDelay(source string, delay time.Duration)
}

// Cache lookup results passed to ObserveCache.
const (
	CacheHit     = "hit"
	CachePartial = "partial"
	CacheStale   = "stale"
	CacheMiss    = "miss"
	CacheError   = "error"
)

type nopObserver struct{}

func (nopObserver) ObserveFetch(string, string, time.Duration) {}
func (nopObserver) ObserveCache(string)                        {}
func (nopObserver) ObserveDelay(string, time.Duration)         {}
