// Package news collects articles for watchlist symbols from news APIs.
package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/meridian/internal/core"
	newsstore "github.com/newthinker/meridian/internal/storage/news"
)

// Provider is one news API. Errors use the provider taxonomy.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbol string, since time.Time, limit int) ([]core.NewsItem, error)
}

// CollectorConfig bounds one collection pass.
type CollectorConfig struct {
	Lookback    time.Duration `mapstructure:"lookback" default:"24h" validate:"gt=0"`
	Limit       int           `mapstructure:"limit" default:"20" validate:"gte=1"`
	Concurrency int           `mapstructure:"concurrency" default:"4" validate:"gte=1"`
}

// Report summarizes one Collect call.
type Report struct {
	Fetched  int
	Inserted []core.NewsItem
	Failures map[string]error // keyed "provider/symbol"
}

// Collector fans symbols out to every provider and appends new articles.
type Collector struct {
	providers []Provider
	store     newsstore.Store
	cfg       CollectorConfig
	clock     clock.Clock
	logger    *zap.Logger
}

// NewCollector creates a collector. A nil logger or clock gets a default.
func NewCollector(store newsstore.Store, providers []Provider, cfg CollectorConfig, clk clock.Clock, logger *zap.Logger) *Collector {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	return &Collector{providers: providers, store: store, cfg: cfg, clock: clk, logger: logger}
}

// Collect fetches recent articles for each symbol. Individual provider
// failures are logged and reported; an error is returned only when every
// call failed or the store rejected the batch.
func (c *Collector) Collect(ctx context.Context, symbols []string) (Report, error) {
	since := c.clock.Now().Add(-c.cfg.Lookback)
	rep := Report{Failures: make(map[string]error)}

	// one slot per (symbol, provider) keeps the merge order deterministic
	slots := make([][]core.NewsItem, len(symbols)*len(c.providers))
	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for si, sym := range symbols {
		for pi, p := range c.providers {
			g.Go(func() error {
				got, err := p.Fetch(gctx, sym, since, c.cfg.Limit)
				if err != nil {
					key := p.Name() + "/" + sym
					c.logger.Warn("news fetch failed",
						zap.String("provider", p.Name()),
						zap.String("symbol", sym),
						zap.Error(err))
					mu.Lock()
					rep.Failures[key] = err
					errs = append(errs, fmt.Errorf("%s: %w", key, err))
					mu.Unlock()
					return nil
				}
				for i := range got {
					got[i].Symbol = sym
					if got[i].Source == "" {
						got[i].Source = p.Name()
					}
				}
				slots[si*len(c.providers)+pi] = got
				return nil
			})
		}
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	var items []core.NewsItem
	for _, slot := range slots {
		items = append(items, slot...)
	}

	calls := len(symbols) * len(c.providers)
	if calls > 0 && len(errs) == calls {
		return rep, errors.Join(errs...)
	}

	unique := Dedupe(items)
	rep.Fetched = len(unique)
	if len(unique) == 0 {
		return rep, nil
	}
	inserted, err := c.store.AppendNews(ctx, unique)
	if err != nil {
		return rep, fmt.Errorf("appending news: %w", err)
	}
	rep.Inserted = inserted

	c.logger.Info("news collected",
		zap.Int("symbols", len(symbols)),
		zap.Int("fetched", rep.Fetched),
		zap.Int("inserted", len(inserted)),
		zap.Int("failures", len(rep.Failures)))
	return rep, nil
}

// Dedupe keeps the first item per normalized URL and drops items without one.
func Dedupe(items []core.NewsItem) []core.NewsItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]core.NewsItem, 0, len(items))
	for _, it := range items {
		key := NormalizeURL(it.URL)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		it.URL = key
		out = append(out, it)
	}
	return out
}

// NormalizeURL trims whitespace, a trailing slash and any fragment.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	return strings.TrimSuffix(u, "/")
}

// Query returns the search term used for a watchlist symbol: the ticker
// without its exchange suffix.
func Query(symbol string) string {
	return core.ParseInstrument(symbol).Root()
}
