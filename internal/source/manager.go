// Package source decides which providers to call for a series, in what
// order, with what retries, and which result to keep.
package source

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/health"
	"github.com/newthinker/meridian/internal/provider"
	"github.com/newthinker/meridian/internal/quality"
	"github.com/newthinker/meridian/internal/storage/ohlcv"
)

// ErrBelowThreshold marks a result that arrived but failed MinPoints or MinQuality.
var ErrBelowThreshold = &core.Error{Code: "BELOW_THRESHOLD", Message: "result below quality threshold"}

// gapTolerance is the gap a cached equity series may have before its first
// bar or after its last (weekend plus a holiday) and still count as covering
// the range. Crypto trades every day, so it only tolerates one bar.
const gapTolerance = 4 * 24 * time.Hour

// Manager resolves series across providers.
type Manager struct {
	providers *provider.Registry
	gateway   ohlcv.Gateway
	analyzer  *quality.Analyzer
	health    *health.Registry
	clock     clock.Clock
	logger    *zap.Logger
	observer  Observer

	sems sync.Map // source -> *semaphore.Weighted
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// NewManager creates a manager over the registered providers.
func NewManager(providers *provider.Registry, gateway ohlcv.Gateway, analyzer *quality.Analyzer, healthReg *health.Registry, opts ...Option) *Manager {
	m := &Manager{
		providers: providers,
		gateway:   gateway,
		analyzer:  analyzer,
		health:    healthReg,
		clock:     clock.New(),
		logger:    zap.NewNop(),
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Health returns the registry the manager records call outcomes in.
func (m *Manager) Health() *health.Registry {
	return m.health
}

// outcome is one source's answer within a fan-out.
type outcome struct {
	idx    int
	source string
	series core.Series
	report core.QualityReport
	err    error
}

// Resolve returns the best acceptable series for inst over rng.
func (m *Manager) Resolve(ctx context.Context, inst core.Instrument, interval core.Interval, rng core.TimeRange, p Policy) (core.FetchResult, error) {
	if err := p.Normalize(); err != nil {
		return core.FetchResult{}, err
	}
	cands, causes := m.candidates(p.Sources)

	if !p.ForceRefresh {
		var partial *core.FetchResult
		for _, src := range cands {
			hit, part := m.lookup(ctx, src, inst, interval, rng, p)
			if hit != nil {
				m.logger.Debug("served from cache",
					zap.String("symbol", inst.Symbol),
					zap.String("source", src),
					zap.Float64("quality", hit.Quality.Overall))
				return *hit, nil
			}
			if partial == nil && part != nil {
				partial = part
			}
		}
		if partial != nil {
			r, err := m.complete(ctx, *partial, inst, interval, rng, p)
			if err == nil {
				return r, nil
			}
			if ctx.Err() == nil {
				m.logger.Debug("incremental completion failed",
					zap.String("symbol", inst.Symbol),
					zap.String("source", partial.Source),
					zap.Error(err))
			}
		}
	}

	var chosen *outcome
	switch p.Mode {
	case ModeRace:
		var errs []error
		chosen, errs = m.race(ctx, cands, inst, interval, rng, p)
		causes = append(causes, errs...)
	case ModeAll:
		outs := m.all(ctx, cands, inst, interval, rng, p)
		chosen = best(outs)
		for _, o := range outs {
			if o.err != nil {
				causes = append(causes, o.err)
			}
		}
	default:
		var errs []error
		chosen, errs = m.sequential(ctx, cands, inst, interval, rng, p)
		causes = append(causes, errs...)
	}

	if chosen == nil {
		if err := ctx.Err(); err != nil {
			return core.FetchResult{}, err
		}
		return core.FetchResult{}, exhausted(causes)
	}

	r := m.persist(ctx, m.result(*chosen, p))
	m.logger.Info("resolved",
		zap.String("symbol", inst.Symbol),
		zap.String("interval", string(interval)),
		zap.String("source", r.Source),
		zap.String("mode", string(p.Mode)),
		zap.Int("points", r.Series.Len()),
		zap.Float64("quality", r.Quality.Overall))
	return r, nil
}

// ResolveAll returns every acceptable per-source result in policy order.
// Each source is served from its own cache entry when fresh, otherwise
// fetched concurrently; fetched results are all persisted.
func (m *Manager) ResolveAll(ctx context.Context, inst core.Instrument, interval core.Interval, rng core.TimeRange, p Policy) ([]core.FetchResult, error) {
	if err := p.Normalize(); err != nil {
		return nil, err
	}
	cands, causes := m.candidates(p.Sources)

	results := make([]*core.FetchResult, len(cands))
	errs := make([]error, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range cands {
		g.Go(func() error {
			r, err := m.resolveOne(gctx, i, src, inst, interval, rng, p)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = &r
			return nil
		})
	}
	_ = g.Wait()

	out := make([]core.FetchResult, 0, len(cands))
	for i := range cands {
		if results[i] != nil {
			out = append(out, *results[i])
		} else if errs[i] != nil {
			causes = append(causes, errs[i])
		}
	}
	if len(out) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, exhausted(causes)
	}
	return out, nil
}

func (m *Manager) resolveOne(ctx context.Context, idx int, src string, inst core.Instrument, interval core.Interval, rng core.TimeRange, p Policy) (core.FetchResult, error) {
	if !p.ForceRefresh {
		hit, part := m.lookup(ctx, src, inst, interval, rng, p)
		if hit != nil {
			return *hit, nil
		}
		if part != nil {
			if r, err := m.complete(ctx, *part, inst, interval, rng, p); err == nil {
				return r, nil
			}
		}
	}
	o := m.evaluate(ctx, idx, src, inst, interval, rng, p)
	if o.err != nil {
		return core.FetchResult{}, o.err
	}
	return m.persist(ctx, m.result(o, p)), nil
}

// candidates keeps registered sources in policy order; unknown names become causes.
func (m *Manager) candidates(sources []string) ([]string, []error) {
	var (
		cands  []string
		causes []error
		seen   = make(map[string]bool, len(sources))
	)
	for _, src := range sources {
		if seen[src] {
			continue
		}
		seen[src] = true
		if _, ok := m.providers.Get(src); !ok {
			causes = append(causes, fmt.Errorf("%s: provider not registered", src))
			continue
		}
		cands = append(cands, src)
	}
	return cands, causes
}

// lookup returns a fresh cached result covering rng, or a fresh partial one
// worth completing.
func (m *Manager) lookup(ctx context.Context, src string, inst core.Instrument, interval core.Interval, rng core.TimeRange, p Policy) (hit, partial *core.FetchResult) {
	cached, ok, err := m.gateway.GetLatest(ctx, inst, src, interval)
	if err != nil {
		m.observer.ObserveCache(CacheError)
		m.logger.Warn("cache read failed, fetching live",
			zap.String("symbol", inst.Symbol),
			zap.String("source", src),
			zap.Error(err))
		return nil, nil
	}
	if !ok {
		m.observer.ObserveCache(CacheMiss)
		return nil, nil
	}
	if !cached.Fresh(m.clock.Now()) {
		m.observer.ObserveCache(CacheStale)
		return nil, nil
	}

	tolerance := gapTolerance
	if inst.AssetClass == core.AssetCrypto {
		tolerance = interval.Duration()
	}
	if !cached.Series.Covers(rng, tolerance, tolerance) {
		m.observer.ObserveCache(CachePartial)
		return nil, &cached
	}

	report := m.analyzer.Analyze(cached.Series, rng)
	if err := accept(report, p); err != nil {
		m.observer.ObserveCache(CacheMiss)
		return nil, nil
	}
	m.observer.ObserveCache(CacheHit)
	cached.Series = cached.Series.Slice(rng)
	cached.Quality = report
	cached.FromCache = true
	return &cached, nil
}

// complete fetches only the sub-ranges a cached series lacks from the same
// source and merges them in. A NotFound gap means nothing was published
// there. If a gap fetch fails otherwise, the fresh cached bars are still
// served when they pass the thresholds on their own, with the gap error
// attached as a warning.
func (m *Manager) complete(ctx context.Context, cached core.FetchResult, inst core.Instrument, interval core.Interval, rng core.TimeRange, p Policy) (core.FetchResult, error) {
	merged := cached.Series
	fetched := false
	var gapErr error
	for _, gap := range rng.Missing(cached.Series.Span()) {
		s, err := m.fetch(ctx, cached.Source, inst, interval, gap, p)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return core.FetchResult{}, err
			}
			gapErr = fmt.Errorf("%s: gap %s..%s: %w", cached.Source,
				gap.Start.Format(time.RFC3339), gap.End.Format(time.RFC3339), err)
			break
		}
		merged = core.Merge(merged, s)
		fetched = true
	}

	if gapErr != nil {
		report := m.analyzer.Analyze(cached.Series, rng)
		if err := accept(report, p); err != nil {
			return core.FetchResult{}, errors.Join(gapErr, err)
		}
		m.logger.Warn("gap fetch failed, serving cached series",
			zap.String("symbol", inst.Symbol),
			zap.String("source", cached.Source),
			zap.Error(gapErr))
		cached.Series = cached.Series.Slice(rng)
		cached.Quality = report
		cached.FromCache = true
		cached.Warnings = append(slices.Clone(cached.Warnings), gapErr)
		return cached, nil
	}

	report := m.analyzer.Analyze(merged, rng)
	if err := accept(report, p); err != nil {
		return core.FetchResult{}, err
	}

	if !fetched {
		cached.Series = merged.Slice(rng)
		cached.Quality = report
		cached.FromCache = true
		return cached, nil
	}

	r := m.persist(ctx, core.FetchResult{
		Series:    merged,
		Source:    cached.Source,
		FetchedAt: m.clock.Now(),
		Quality:   report,
		FreshFor:  p.Freshness,
	})
	r.Series = r.Series.Slice(rng)
	m.logger.Debug("completed cached series",
		zap.String("symbol", inst.Symbol),
		zap.String("source", r.Source),
		zap.Int("points", r.Series.Len()))
	return r, nil
}

func (m *Manager) sequential(ctx context.Context, cands []string, inst core.Instrument, interval core.Interval, rng core.TimeRange, p Policy) (*outcome, []error) {
	var causes []error
	for i, src := range cands {
		o := m.evaluate(ctx, i, src, inst, interval, rng, p)
		if o.err == nil {
			return &o, causes
		}
		causes = append(causes, o.err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, causes
}

// race runs every candidate at once and keeps the first acceptable arrival.
// Arrivals observed together are ranked by policy position.
func (m *Manager) race(ctx context.Context, cands []string, inst core.Instrument, interval core.Interval, rng core.TimeRange, p Policy) (*outcome, []error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan outcome, len(cands))
	var g errgroup.Group
	for i, src := range cands {
		g.Go(func() error {
			ch <- m.evaluate(raceCtx, i, src, inst, interval, rng, p)
			return nil
		})
	}

	var (
		winner *outcome
		causes []error
	)
	for received := 0; received < len(cands) && winner == nil; {
		batch := []outcome{<-ch}
		received++
	drain:
		for received < len(cands) {
			select {
			case o := <-ch:
				batch = append(batch, o)
				received++
			default:
				break drain
			}
		}
		sort.Slice(batch, func(i, j int) bool { return batch[i].idx < batch[j].idx })
		for _, o := range batch {
			if o.err != nil {
				causes = append(causes, o.err)
				continue
			}
			if winner == nil {
				w := o
				winner = &w
			}
		}
	}

	cancel()
	_ = g.Wait()
	return winner, causes
}

func (m *Manager) all(ctx context.Context, cands []string, inst core.Instrument, interval core.Interval, rng core.TimeRange, p Policy) []outcome {
	outs := make([]outcome, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range cands {
		g.Go(func() error {
			outs[i] = m.evaluate(gctx, i, src, inst, interval, rng, p)
			return nil
		})
	}
	_ = g.Wait()
	return outs
}

// best picks the highest Overall; earlier policy position wins ties.
func best(outs []outcome) *outcome {
	var chosen *outcome
	for i := range outs {
		o := &outs[i]
		if o.err != nil {
			continue
		}
		if chosen == nil || o.report.Overall > chosen.report.Overall {
			chosen = o
		}
	}
	return chosen
}

// evaluate fetches from one source and scores the result.
func (m *Manager) evaluate(ctx context.Context, idx int, src string, inst core.Instrument, interval core.Interval, rng core.TimeRange, p Policy) outcome {
	o := outcome{idx: idx, source: src}
	s, err := m.fetch(ctx, src, inst, interval, rng, p)
	if err != nil {
		o.err = fmt.Errorf("%s: %w", src, err)
		return o
	}
	o.series = s
	o.report = m.analyzer.Analyze(s, rng)
	if err := accept(o.report, p); err != nil {
		m.logger.Debug("result rejected",
			zap.String("symbol", inst.Symbol),
			zap.String("source", src),
			zap.Error(err))
		o.err = fmt.Errorf("%s: %w", src, err)
	}
	return o
}

func accept(r core.QualityReport, p Policy) error {
	if r.Observed < p.MinPoints {
		return core.Errorf(ErrBelowThreshold, "%d points, need %d", r.Observed, p.MinPoints)
	}
	if r.Overall < p.MinQuality {
		return core.Errorf(ErrBelowThreshold, "quality %.3f, need %.3f", r.Overall, p.MinQuality)
	}
	return nil
}

// fetch calls one provider with retries. RateLimited and Transient are
// retried with exponential backoff; everything else is permanent.
func (m *Manager) fetch(ctx context.Context, src string, inst core.Instrument, interval core.Interval, rng core.TimeRange, p Policy) (core.Series, error) {
	prov, ok := m.providers.Get(src)
	if !ok {
		return core.Series{}, core.Errorf(core.ErrNotFound, "provider %s not registered", src)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.Backoff.Initial
	eb.MaxInterval = p.Backoff.Max
	eb.Multiplier = p.Backoff.Multiplier
	eb.MaxElapsedTime = 0
	eb.Clock = m.clock
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxRetries)), ctx)

	var (
		series  core.Series
		attempt int
	)
	op := func() error {
		attempt++
		s, err := m.call(ctx, prov, inst, interval, rng, p.CallTimeout)
		if err == nil {
			series = s
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if !core.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		m.logger.Debug("retrying provider",
			zap.String("source", src),
			zap.String("symbol", inst.Symbol),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", next),
			zap.Error(err))
	}

	err := backoff.RetryNotifyWithTimer(op, b, notify, &clockTimer{clock: m.clock})
	return series, err
}

// call makes one provider request: adaptive delay, concurrency ceiling, deadline.
func (m *Manager) call(ctx context.Context, prov provider.Provider, inst core.Instrument, interval core.Interval, rng core.TimeRange, timeout time.Duration) (core.Series, error) {
	src := prov.Name()

	delay := m.health.Delay(src)
	m.observer.ObserveDelay(src, delay)
	if err := m.sleep(ctx, delay); err != nil {
		return core.Series{}, err
	}

	sem := m.semaphore(src)
	if err := sem.Acquire(ctx, 1); err != nil {
		return core.Series{}, err
	}
	defer sem.Release(1)

	callCtx, cancel := m.clock.WithTimeout(ctx, timeout)
	defer cancel()

	start := m.clock.Now()
	s, err := prov.Fetch(callCtx, inst, interval, rng)
	elapsed := m.clock.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			// cancelled by the caller or a race sibling; not the source's fault
			return core.Series{}, ctx.Err()
		}
		err = provider.ClassifyErr(err)
		if !errors.Is(err, core.ErrNotFound) {
			m.health.RecordFailure(src)
		}
		m.observer.ObserveFetch(src, outcomeLabel(err), elapsed)
		m.logger.Debug("provider call failed",
			zap.String("source", src),
			zap.String("symbol", inst.Symbol),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return core.Series{}, err
	}

	m.health.RecordSuccess(src)
	m.observer.ObserveFetch(src, "ok", elapsed)
	return s, nil
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := m.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Manager) semaphore(src string) *semaphore.Weighted {
	if s, ok := m.sems.Load(src); ok {
		return s.(*semaphore.Weighted)
	}
	s, _ := m.sems.LoadOrStore(src, semaphore.NewWeighted(int64(m.providers.MaxConcurrent(src))))
	return s.(*semaphore.Weighted)
}

func (m *Manager) result(o outcome, p Policy) core.FetchResult {
	return core.FetchResult{
		Series:    o.series,
		Source:    o.source,
		FetchedAt: m.clock.Now(),
		Quality:   o.report,
		FreshFor:  p.Freshness,
	}
}

// persist writes r through the gateway; a failed write is attached as a warning.
func (m *Manager) persist(ctx context.Context, r core.FetchResult) core.FetchResult {
	if err := m.gateway.Put(ctx, r); err != nil {
		if !errors.Is(err, core.ErrStorage) {
			err = core.WrapError(core.ErrStorage, err)
		}
		r.Warnings = append(r.Warnings, err)
		m.logger.Warn("failed to persist series",
			zap.String("symbol", r.Series.Instrument.Symbol),
			zap.String("source", r.Source),
			zap.Error(err))
	}
	return r.Clone()
}

func exhausted(causes []error) error {
	if len(causes) == 0 {
		return core.Errorf(core.ErrAllSourcesExhausted, "no candidate sources")
	}
	return core.WrapError(core.ErrAllSourcesExhausted, errors.Join(causes...))
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(core.Kind(err))
}
