package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/meridian/internal/config"
	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/health"
	"github.com/newthinker/meridian/internal/metrics"
	"github.com/newthinker/meridian/internal/news"
	"github.com/newthinker/meridian/internal/pipeline"
	"github.com/newthinker/meridian/internal/sentiment"
	"github.com/newthinker/meridian/internal/source"
	"github.com/newthinker/meridian/internal/storage/archive"
	"github.com/newthinker/meridian/internal/storage/decision"
)

// Components are the collaborators an App drives. Optional ones may be nil.
type Components struct {
	Pipeline  pipeline.Pipeline
	Decisions decision.Store

	// Resolver and Policy back Fetch.
	Resolver pipeline.Resolver
	Policy   source.Policy

	Archiver  *archive.Archiver
	Metrics   *metrics.Registry
	Health    *health.Registry
	News      *news.Collector
	Sentiment *sentiment.Service

	Clock clock.Clock
	NewID func() string
}

// App is the main application orchestrator
type App struct {
	comp   Components
	logger *zap.Logger

	barInterval  core.Interval
	lookbackDays int
	newsInterval time.Duration
	retention    time.Duration

	watchlistItems []config.WatchlistItem
	watchlistSet   map[string]struct{}
	interval       time.Duration

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc

	closers []func() error
}

// New creates a new App instance
func New(cfg *config.Config, comp Components, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if comp.Clock == nil {
		comp.Clock = clock.New()
	}
	if comp.NewID == nil {
		comp.NewID = func() string { return uuid.NewString() }
	}

	a := &App{
		comp:         comp,
		logger:       logger,
		barInterval:  cfg.Engine.BarInterval,
		lookbackDays: cfg.Engine.LookbackDays,
		newsInterval: cfg.News.Interval,
		retention:    time.Duration(cfg.Storage.Archive.RetentionDays) * 24 * time.Hour,
		watchlistSet: make(map[string]struct{}),
		interval:     cfg.Engine.Interval,
	}
	if a.interval <= 0 {
		a.interval = time.Hour
	}
	if a.newsInterval <= 0 {
		a.newsInterval = 30 * time.Minute
	}
	if a.barInterval == "" {
		a.barInterval = core.Interval1d
	}
	if a.lookbackDays <= 0 {
		a.lookbackDays = 365
	}
	a.SetWatchlist(cfg.Watchlist)
	return a
}

// SetWatchlist replaces the instruments to analyze. Duplicate symbols keep
// the first entry.
func (a *App) SetWatchlist(items []config.WatchlistItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchlistItems = make([]config.WatchlistItem, 0, len(items))
	a.watchlistSet = make(map[string]struct{}, len(items))
	for _, item := range items {
		sym := item.Instrument().Symbol
		if _, exists := a.watchlistSet[sym]; exists {
			continue
		}
		a.watchlistSet[sym] = struct{}{}
		a.watchlistItems = append(a.watchlistItems, item)
	}
	if a.comp.Metrics != nil {
		a.comp.Metrics.SetWatchlistSize(len(a.watchlistItems))
	}
}

// AddToWatchlist adds an instrument. It reports false if the symbol is already watched.
func (a *App) AddToWatchlist(item config.WatchlistItem) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	sym := item.Instrument().Symbol
	if _, exists := a.watchlistSet[sym]; exists {
		return false
	}
	a.watchlistSet[sym] = struct{}{}
	a.watchlistItems = append(a.watchlistItems, item)
	if a.comp.Metrics != nil {
		a.comp.Metrics.SetWatchlistSize(len(a.watchlistItems))
	}
	return true
}

// RemoveFromWatchlist removes a symbol from the watchlist.
func (a *App) RemoveFromWatchlist(symbol string) bool {
	sym := core.ParseInstrument(symbol).Symbol
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.watchlistSet[sym]; !exists {
		return false
	}
	delete(a.watchlistSet, sym)
	for i, item := range a.watchlistItems {
		if item.Instrument().Symbol == sym {
			a.watchlistItems = append(a.watchlistItems[:i], a.watchlistItems[i+1:]...)
			break
		}
	}
	if a.comp.Metrics != nil {
		a.comp.Metrics.SetWatchlistSize(len(a.watchlistItems))
	}
	return true
}

// GetWatchlist returns a copy of the watched instruments.
func (a *App) GetWatchlist() []config.WatchlistItem {
	a.mu.RLock()
	defer a.mu.RUnlock()
	result := make([]config.WatchlistItem, len(a.watchlistItems))
	copy(result, a.watchlistItems)
	return result
}

// SetInterval sets the analysis interval
func (a *App) SetInterval(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interval = d
}

// Metrics returns the registry, nil when metrics are off.
func (a *App) Metrics() *metrics.Registry { return a.comp.Metrics }

// Health returns the per-source health registry.
func (a *App) Health() *health.Registry { return a.comp.Health }

// Start runs an analysis cycle immediately and then on every tick until ctx
// is cancelled or Stop is called. News collection runs on its own ticker.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	interval := a.interval

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	a.logger.Info("meridian starting",
		zap.Int("watchlist_count", len(a.GetWatchlist())),
		zap.Duration("interval", interval),
		zap.String("pipeline", a.comp.Pipeline.Name()),
	)

	// Initial run
	a.runNewsCycle(ctx)
	a.runAnalysisCycle(ctx)

	ticker := a.comp.Clock.Ticker(interval)
	defer ticker.Stop()

	var newsC <-chan time.Time
	if a.comp.News != nil {
		newsTicker := a.comp.Clock.Ticker(a.newsInterval)
		defer newsTicker.Stop()
		newsC = newsTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("meridian shutting down")
			return ctx.Err()
		case <-ticker.C:
			a.runAnalysisCycle(ctx)
		case <-newsC:
			a.runNewsCycle(ctx)
		}
	}
}

// Stop stops the monitoring loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// Close releases storage handles opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// RunOnce performs a single analysis cycle and returns its report.
func (a *App) RunOnce(ctx context.Context) (archive.RunReport, error) {
	return a.runAnalysisCycle(ctx)
}

// runAnalysisCycle runs the pipeline for every watched instrument, then
// archives the run report.
func (a *App) runAnalysisCycle(ctx context.Context) (archive.RunReport, error) {
	items := a.GetWatchlist()
	started := a.comp.Clock.Now()
	report := archive.RunReport{
		RunID:     a.comp.NewID(),
		StartedAt: started.UTC(),
		Mode:      a.comp.Pipeline.Name(),
	}

	if len(items) == 0 {
		a.logger.Debug("no symbols in watchlist")
	}
	a.logger.Debug("starting analysis cycle",
		zap.String("run_id", report.RunID),
		zap.Int("symbols", len(items)),
	)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		report.Instruments = append(report.Instruments, a.analyze(ctx, item.Instrument()))
	}

	report.FinishedAt = a.comp.Clock.Now().UTC()
	if a.comp.Metrics != nil {
		a.comp.Metrics.RecordAnalysisCycle(a.comp.Clock.Since(started))
	}

	var skipped int
	for _, o := range report.Instruments {
		if o.Skipped {
			skipped++
		}
	}
	a.logger.Info("analysis cycle complete",
		zap.String("run_id", report.RunID),
		zap.Int("instruments", len(report.Instruments)),
		zap.Int("skipped", skipped),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)

	if err := a.archive(ctx, report); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

// analyze runs the pipeline for one instrument. Failures never abort the cycle.
func (a *App) analyze(ctx context.Context, inst core.Instrument) archive.InstrumentOutcome {
	started := a.comp.Clock.Now()
	out := archive.InstrumentOutcome{
		Symbol:   inst.Symbol,
		Pipeline: a.comp.Pipeline.Name(),
	}

	res, err := a.comp.Pipeline.Run(ctx, inst)
	out.ElapsedMS = a.comp.Clock.Since(started).Milliseconds()
	if err != nil {
		out.Error = err.Error()
		if errors.Is(err, core.ErrAllSourcesExhausted) {
			out.Skipped = true
			if a.comp.Metrics != nil {
				a.comp.Metrics.RecordSkipped()
			}
			a.logger.Warn("skipping instrument, all sources exhausted",
				zap.String("symbol", inst.Symbol),
				zap.Error(err),
			)
			return out
		}
		a.logger.Error("analysis failed",
			zap.String("symbol", inst.Symbol),
			zap.Error(err),
		)
		return out
	}

	d := res.Decision
	out.Decision = &d
	out.Sources = res.Sources()
	out.Quality = d.QualityBySource
	out.Warnings = res.Warnings()

	if a.comp.Metrics != nil {
		a.comp.Metrics.RecordDecision(d)
	}
	if a.comp.Decisions != nil {
		if err := a.comp.Decisions.Save(ctx, d); err != nil {
			a.logger.Error("failed to save decision",
				zap.String("symbol", inst.Symbol),
				zap.String("decision_id", d.ID),
				zap.Error(err),
			)
			out.Warnings = append(out.Warnings, "decision store: "+err.Error())
		}
	}

	if d.Action != core.ActionHold {
		a.logger.Info("decision",
			zap.String("symbol", inst.Symbol),
			zap.String("action", string(d.Action)),
			zap.Float64("confidence", d.Confidence),
			zap.Int("buy", d.BuyCount),
			zap.Int("sell", d.SellCount),
		)
	}
	return out
}

// archive writes the run report and prunes reports past retention.
func (a *App) archive(ctx context.Context, report archive.RunReport) error {
	if a.comp.Archiver == nil {
		return nil
	}
	path, err := a.comp.Archiver.WriteReport(ctx, report)
	if err != nil {
		a.logger.Error("failed to archive run report",
			zap.String("run_id", report.RunID),
			zap.Error(err),
		)
		return err
	}
	a.logger.Debug("run report archived", zap.String("path", path))

	if a.retention <= 0 {
		return nil
	}
	cutoff := a.comp.Clock.Now().Add(-a.retention)
	n, err := a.comp.Archiver.Prune(ctx, cutoff)
	if err != nil {
		a.logger.Warn("failed to prune run reports", zap.Error(err))
		return nil
	}
	if n > 0 {
		a.logger.Info("pruned run reports", zap.Int("count", n), zap.Time("before", cutoff))
	}
	return nil
}

// CollectNews fetches news for the watchlist and scores whatever is pending.
// It returns the number of inserted items and appended scores.
func (a *App) CollectNews(ctx context.Context) (int, int, error) {
	if a.comp.News == nil {
		return 0, 0, core.Errorf(core.ErrConfigMissing, "news collection is disabled")
	}
	items := a.GetWatchlist()
	symbols := make([]string, len(items))
	for i, item := range items {
		symbols[i] = item.Instrument().Symbol
	}

	rep, err := a.comp.News.Collect(ctx, symbols)
	if a.comp.Metrics != nil {
		a.comp.Metrics.RecordNews(rep.Inserted)
	}
	if err != nil {
		return len(rep.Inserted), 0, err
	}

	if a.comp.Sentiment == nil {
		return len(rep.Inserted), 0, nil
	}
	scored, err := a.comp.Sentiment.ScorePending(ctx)
	if a.comp.Metrics != nil {
		a.comp.Metrics.RecordSentiment(scored)
	}
	return len(rep.Inserted), scored, err
}

func (a *App) runNewsCycle(ctx context.Context) {
	if a.comp.News == nil {
		return
	}
	inserted, scored, err := a.CollectNews(ctx)
	if err != nil {
		a.logger.Warn("news cycle failed", zap.Error(err))
	}
	a.logger.Info("news cycle complete",
		zap.Int("inserted", inserted),
		zap.Int("scored", scored),
	)
}

// Fetch resolves one instrument under the configured policy without running
// strategies.
func (a *App) Fetch(ctx context.Context, inst core.Instrument) (core.FetchResult, error) {
	if a.comp.Resolver == nil {
		return core.FetchResult{}, core.Errorf(core.ErrConfigMissing, "no resolver configured")
	}
	width := a.barInterval.Duration()
	end := a.comp.Clock.Now().UTC().Truncate(width).Add(width)
	return a.comp.Resolver.Resolve(ctx, inst, a.barInterval, core.LastDays(end, a.lookbackDays), a.comp.Policy)
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := map[string]any{
		"running":   a.running,
		"watchlist": len(a.watchlistItems),
		"interval":  a.interval.String(),
		"pipeline":  a.comp.Pipeline.Name(),
		"news":      a.comp.News != nil,
		"sentiment": a.comp.Sentiment != nil,
	}
	if a.comp.Health != nil {
		stats["sources"] = a.comp.Health.All()
	}
	return stats
}
