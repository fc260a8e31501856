// Package health tracks per-provider call outcomes and the adaptive delay
// inserted before each request.
package health

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newthinker/meridian/internal/core"
)

// minFailureDelay seeds the delay on the first failure when it is zero, so
// growth has something to multiply.
const minFailureDelay = 10 * time.Millisecond

// DefaultWindow is the number of recent outcomes SuccessRate is computed over.
const DefaultWindow = 100

// Config controls the adaptive delay.
type Config struct {
	BaseDelay time.Duration `mapstructure:"base_delay" default:"100ms" validate:"gte=0"`
	MaxDelay  time.Duration `mapstructure:"max_delay" default:"30s" validate:"gtefield=BaseDelay"`
	Growth    float64       `mapstructure:"growth" default:"1.5" validate:"gt=1"`
	Decay     float64       `mapstructure:"decay" default:"0.9" validate:"gt=0,lt=1"`
	// Window bounds the rolling success rate; zero means DefaultWindow.
	Window    int           `mapstructure:"window" default:"100" validate:"gte=0"`
}

type record struct {
	mu                   sync.Mutex
	successes            int64
	failures             int64
	consecutiveFailures  int
	consecutiveSuccesses int

	// ring of recent outcomes, true for success
	recent []bool
	head   int
	filled int

	// nanoseconds, read without mu
	delay atomic.Int64
}

// Registry holds one record per provider. Updates to a record are
// serialized by its own mutex; Delay reads are lock-free.
type Registry struct {
	cfg     Config
	records sync.Map // name -> *record
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Registry{cfg: cfg}
}

func (r *Registry) get(source string) *record {
	if rec, ok := r.records.Load(source); ok {
		return rec.(*record)
	}
	rec := &record{recent: make([]bool, r.cfg.Window)}
	rec.delay.Store(int64(r.cfg.BaseDelay))
	actual, _ := r.records.LoadOrStore(source, rec)
	return actual.(*record)
}

// Delay returns the wait to apply before the next request to source.
func (r *Registry) Delay(source string) time.Duration {
	return time.Duration(r.get(source).delay.Load())
}

// RecordSuccess shrinks the delay by Decay, floored at BaseDelay.
func (r *Registry) RecordSuccess(source string) time.Duration {
	rec := r.get(source)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.successes++
	rec.consecutiveSuccesses++
	rec.consecutiveFailures = 0
	rec.push(true)

	next := time.Duration(float64(rec.delay.Load()) * r.cfg.Decay)
	if next < r.cfg.BaseDelay {
		next = r.cfg.BaseDelay
	}
	rec.delay.Store(int64(next))
	return next
}

// RecordFailure grows the delay by Growth, capped at MaxDelay. A zero delay
// is first seeded with minFailureDelay.
func (r *Registry) RecordFailure(source string) time.Duration {
	rec := r.get(source)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.failures++
	rec.consecutiveFailures++
	rec.consecutiveSuccesses = 0
	rec.push(false)

	cur := time.Duration(rec.delay.Load())
	next := time.Duration(float64(cur) * r.cfg.Growth)
	if cur <= 0 {
		next = minFailureDelay
	}
	if next < r.cfg.BaseDelay {
		next = r.cfg.BaseDelay
	}
	if r.cfg.MaxDelay > 0 && next > r.cfg.MaxDelay {
		next = r.cfg.MaxDelay
	}
	rec.delay.Store(int64(next))
	return next
}

// Snapshot returns a copy of the current counters for source.
func (r *Registry) Snapshot(source string) core.SourceHealth {
	rec := r.get(source)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	h := core.SourceHealth{
		Source:               source,
		Successes:            rec.successes,
		Failures:             rec.failures,
		ConsecutiveFailures:  rec.consecutiveFailures,
		ConsecutiveSuccesses: rec.consecutiveSuccesses,
		Delay:                time.Duration(rec.delay.Load()),
	}
	h.SuccessRate = rec.rate()
	return h
}

func (rec *record) push(ok bool) {
	rec.recent[rec.head] = ok
	rec.head = (rec.head + 1) % len(rec.recent)
	if rec.filled < len(rec.recent) {
		rec.filled++
	}
}

// rate is the success ratio over the last filled outcomes.
func (rec *record) rate() float64 {
	if rec.filled == 0 {
		return 0
	}
	ok := 0
	for i := 0; i < rec.filled; i++ {
		if rec.recent[i] {
			ok++
		}
	}
	return float64(ok) / float64(rec.filled)
}

// All returns snapshots for every known provider sorted by name.
func (r *Registry) All() []core.SourceHealth {
	var names []string
	r.records.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)

	out := make([]core.SourceHealth, 0, len(names))
	for _, n := range names {
		out = append(out, r.Snapshot(n))
	}
	return out
}
