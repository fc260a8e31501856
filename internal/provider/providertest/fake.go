// Package providertest provides a scripted provider and a conformance
// harness for provider adapters.
package providertest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/provider"
)

// Step scripts one Fetch call.
type Step struct {
	Err   error
	Delay time.Duration
}

// Fake serves bars from a fixed universe, sliced to the requested range.
// Calls follow the script in order; calls past the end of the script use the
// fallback error (nil means success).
type Fake struct {
	name     string
	bars     []core.Bar
	latency  time.Duration
	fallback error

	mu     sync.Mutex
	steps  []Step
	ranges []core.TimeRange
	calls  atomic.Int32
}

var _ provider.Provider = (*Fake)(nil)

// NewFake creates a fake named name that serves bars.
func NewFake(name string, bars []core.Bar) *Fake {
	return &Fake{name: name, bars: bars}
}

// Script appends per-call steps.
func (f *Fake) Script(steps ...Step) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, steps...)
	return f
}

// Always makes every unscripted call fail with err.
func (f *Fake) Always(err error) *Fake {
	f.fallback = err
	return f
}

// WithLatency adds a delay to every call.
func (f *Fake) WithLatency(d time.Duration) *Fake {
	f.latency = d
	return f
}

func (f *Fake) Name() string { return f.name }

// Calls returns how many times Fetch was invoked.
func (f *Fake) Calls() int { return int(f.calls.Load()) }

// Ranges returns the ranges requested so far, in call order.
func (f *Fake) Ranges() []core.TimeRange {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.TimeRange, len(f.ranges))
	copy(out, f.ranges)
	return out
}

func (f *Fake) Fetch(ctx context.Context, inst core.Instrument, interval core.Interval, rng core.TimeRange) (core.Series, error) {
	n := int(f.calls.Add(1)) - 1

	f.mu.Lock()
	f.ranges = append(f.ranges, rng)
	step := Step{Err: f.fallback}
	if n < len(f.steps) {
		step = f.steps[n]
	}
	f.mu.Unlock()

	if d := f.latency + step.Delay; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return core.Series{}, provider.ClassifyErr(ctx.Err())
		case <-timer.C:
		}
	}
	if step.Err != nil {
		return core.Series{}, step.Err
	}

	out := make([]core.Bar, 0, len(f.bars))
	for _, b := range f.bars {
		if rng.Contains(b.Time) {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return core.Series{}, core.Errorf(core.ErrNotFound, "%s: no bars for %s in range", f.name, inst.Symbol)
	}
	return core.NewSeries(inst, interval, out), nil
}
