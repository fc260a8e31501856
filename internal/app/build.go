package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/newthinker/meridian/internal/config"
	"github.com/newthinker/meridian/internal/consensus"
	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/health"
	"github.com/newthinker/meridian/internal/llm/factory"
	"github.com/newthinker/meridian/internal/metrics"
	"github.com/newthinker/meridian/internal/news"
	"github.com/newthinker/meridian/internal/news/gnews"
	"github.com/newthinker/meridian/internal/news/newsapi"
	"github.com/newthinker/meridian/internal/pipeline"
	"github.com/newthinker/meridian/internal/provider"
	"github.com/newthinker/meridian/internal/provider/alphavantage"
	"github.com/newthinker/meridian/internal/provider/binance"
	"github.com/newthinker/meridian/internal/provider/polygon"
	"github.com/newthinker/meridian/internal/provider/yahoo"
	"github.com/newthinker/meridian/internal/quality"
	"github.com/newthinker/meridian/internal/sentiment"
	"github.com/newthinker/meridian/internal/source"
	"github.com/newthinker/meridian/internal/storage/archive"
	"github.com/newthinker/meridian/internal/storage/db"
	"github.com/newthinker/meridian/internal/storage/decision"
	newsstore "github.com/newthinker/meridian/internal/storage/news"
	"github.com/newthinker/meridian/internal/storage/ohlcv"
	"github.com/newthinker/meridian/internal/strategy"
)

// Build validates cfg and wires every component it enables. The returned
// App owns the opened storage; call Close when done.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (a *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	clk := clock.New()
	reg := metrics.NewRegistry()

	providers := BuildProviders(cfg)

	gdb, err := db.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	closers = append(closers, func() error { return db.Close(gdb) })

	gateway, closeCache, err := buildGateway(ctx, cfg.Storage, gdb, logger)
	if err != nil {
		return nil, err
	}
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	healthReg := health.NewRegistry(cfg.Health)
	mgr := source.NewManager(providers, gateway, quality.NewAnalyzer(cfg.Quality), healthReg,
		source.WithClock(clk),
		source.WithLogger(logger.Named("source")),
		source.WithObserver(reg),
	)

	strategies, err := strategy.Build(cfg.Strategies, logger.Named("strategy"))
	if err != nil {
		return nil, err
	}

	pipe, err := pipeline.New(cfg.Engine.Mode, pipeline.Deps{
		Resolver:     mgr,
		Strategies:   strategies,
		Consensus:    consensus.New(cfg.Consensus, consensus.WithClock(clk)),
		Policy:       analysisPolicy(cfg.Policy, strategies),
		Interval:     cfg.Engine.BarInterval,
		LookbackDays: cfg.Engine.LookbackDays,
		Clock:        clk,
		Logger:       logger.Named("pipeline"),
	})
	if err != nil {
		return nil, err
	}

	decisions, err := decision.NewGormStore(gdb)
	if err != nil {
		return nil, err
	}

	archiver, err := buildArchiver(cfg.Storage.Archive)
	if err != nil {
		return nil, err
	}

	comp := Components{
		Pipeline:  pipe,
		Decisions: decisions,
		Resolver:  mgr,
		Policy:    cfg.Policy,
		Archiver:  archiver,
		Metrics:   reg,
		Health:    healthReg,
		Clock:     clk,
	}

	if cfg.News.Enabled || cfg.Sentiment.Enabled {
		store, err := newsstore.NewGormStore(gdb)
		if err != nil {
			return nil, err
		}
		if cfg.News.Enabled {
			comp.News = news.NewCollector(store, BuildNewsProviders(cfg.News), cfg.News.Collect, clk, logger.Named("news"))
		}
		if cfg.Sentiment.Enabled {
			models, err := factory.NewAll(cfg.SentimentModels())
			if err != nil {
				return nil, err
			}
			scorers := make([]sentiment.Scorer, len(models))
			for i, m := range models {
				scorers[i] = sentiment.NewLLMScorer(m, clk)
			}
			comp.Sentiment = sentiment.NewService(store, scorers, cfg.Sentiment.Batch, logger.Named("sentiment"))
		}
	}

	a = New(cfg, comp, logger)
	a.closers = closers
	return a, nil
}

// analysisPolicy raises MinPoints to the longest warm-up among the enabled
// strategies, so a source too short to evaluate is rejected at selection.
func analysisPolicy(p source.Policy, strategies *strategy.Engine) source.Policy {
	if n := strategies.MinBars(); n > p.MinPoints {
		p.MinPoints = n
	}
	return p
}

// BuildProviders registers an adapter for every source the policy names plus
// any other enabled provider, in preference order.
func BuildProviders(cfg *config.Config) *provider.Registry {
	names := slices.Clone(cfg.Policy.Sources)
	for _, name := range config.MarketProviders {
		if p, ok := cfg.Sources.Providers[name]; ok && p.Enabled && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	reg := provider.NewRegistry()
	for _, name := range names {
		pc := cfg.Sources.Providers[name].Provider()
		var p provider.Provider
		switch name {
		case "yahoo":
			p = yahoo.New(pc)
		case "alphavantage":
			p = alphavantage.New(pc)
		case "polygon":
			p = polygon.New(pc)
		case "binance":
			p = binance.New(pc)
		default:
			continue
		}
		reg.Register(p, pc.MaxConcurrent)
	}
	return reg
}

// BuildNewsProviders returns the enabled news adapters in a fixed order.
func BuildNewsProviders(cfg config.NewsConfig) []news.Provider {
	var out []news.Provider
	for _, name := range config.NewsProviders {
		pc, ok := cfg.Providers[name]
		if !ok || !pc.Enabled {
			continue
		}
		switch name {
		case "newsapi":
			out = append(out, newsapi.New(pc.Provider()))
		case "gnews":
			out = append(out, gnews.New(pc.Provider()))
		}
	}
	return out
}

func buildGateway(ctx context.Context, cfg config.StorageConfig, gdb *gorm.DB, logger *zap.Logger) (ohlcv.Gateway, func() error, error) {
	store, err := ohlcv.NewGormStore(gdb)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Redis.Enabled {
		return store, nil, nil
	}
	client, err := ohlcv.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	layered := ohlcv.NewLayered(client, store, cfg.Redis.Prefix, cfg.Redis.TTL, logger.Named("cache"))
	return layered, client.Close, nil
}

func buildArchiver(cfg config.ArchiveConfig) (*archive.Archiver, error) {
	var store archive.Storage
	switch cfg.Type {
	case "none":
		return nil, nil
	case "s3":
		s, err := archive.NewS3(cfg.S3)
		if err != nil {
			return nil, err
		}
		store = s
	case "localfs", "":
		s, err := archive.NewLocalFS(cfg.Path)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown archive type %q", cfg.Type)
	}
	return archive.NewArchiver(store), nil
}
