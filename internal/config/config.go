package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/newthinker/meridian/internal/consensus"
	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/health"
	"github.com/newthinker/meridian/internal/llm"
	"github.com/newthinker/meridian/internal/logger"
	"github.com/newthinker/meridian/internal/news"
	"github.com/newthinker/meridian/internal/provider"
	"github.com/newthinker/meridian/internal/quality"
	"github.com/newthinker/meridian/internal/source"
	"github.com/newthinker/meridian/internal/storage/archive"
	"github.com/newthinker/meridian/internal/strategy"
	"github.com/newthinker/meridian/internal/validate"
)

// Provider names understood by the app.
var (
	MarketProviders = []string{"yahoo", "alphavantage", "polygon", "binance"}
	NewsProviders   = []string{"newsapi", "gnews"}
)

type Config struct {
	Sources    SourcesConfig              `mapstructure:"sources"`
	Policy     source.Policy              `mapstructure:"policy"`
	Health     health.Config              `mapstructure:"health"`
	Quality    quality.Config             `mapstructure:"quality"`
	Strategies map[string]strategy.Config `mapstructure:"strategies"`
	Consensus  consensus.Config           `mapstructure:"consensus"`
	Engine     EngineConfig               `mapstructure:"engine"`
	Watchlist  []WatchlistItem            `mapstructure:"watchlist" validate:"dive"`
	Storage    StorageConfig              `mapstructure:"storage"`
	News       NewsConfig                 `mapstructure:"news"`
	Sentiment  SentimentConfig            `mapstructure:"sentiment"`
	LLM        llm.Config                 `mapstructure:"llm"`
	Metrics    MetricsConfig              `mapstructure:"metrics"`
	Log        logger.Config              `mapstructure:"log"`
}

// SourcesConfig lists market data providers. Order is the default preference
// order copied into the policy when policy.sources is unset.
type SourcesConfig struct {
	Order     []string                  `mapstructure:"order"`
	Providers map[string]ProviderConfig `mapstructure:"providers" validate:"dive"`
}

type ProviderConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxConcurrent int           `mapstructure:"max_concurrent" validate:"gte=0"`
}

// Provider converts to the adapter config.
func (p ProviderConfig) Provider() provider.Config {
	return provider.Config{
		APIKey:        p.APIKey,
		BaseURL:       p.BaseURL,
		Timeout:       p.Timeout,
		MaxConcurrent: p.MaxConcurrent,
	}
}

type EngineConfig struct {
	Mode         string        `mapstructure:"mode" default:"classic" validate:"oneof=classic multi_source"`
	Interval     time.Duration `mapstructure:"interval" default:"1h" validate:"gt=0"`
	LookbackDays int           `mapstructure:"lookback_days" default:"365" validate:"gte=1"`
	BarInterval  core.Interval `mapstructure:"bar_interval" default:"1d"`
}

type WatchlistItem struct {
	Symbol     string          `mapstructure:"symbol" validate:"required"`
	Name       string          `mapstructure:"name"`
	AssetClass core.AssetClass `mapstructure:"asset_class" validate:"omitempty,oneof=equity etf index crypto"`
}

// Instrument parses the symbol and applies the configured asset class.
func (w WatchlistItem) Instrument() core.Instrument {
	inst := core.ParseInstrument(w.Symbol)
	if w.AssetClass != "" {
		inst = inst.WithAssetClass(w.AssetClass)
	}
	return inst
}

type StorageConfig struct {
	SQLitePath string        `mapstructure:"sqlite_path" default:"data/meridian.db" validate:"required"`
	Redis      RedisConfig   `mapstructure:"redis"`
	Archive    ArchiveConfig `mapstructure:"archive"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr" default:"localhost:6379"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	TTL      time.Duration `mapstructure:"ttl" default:"24h" validate:"gt=0"`
	Prefix   string        `mapstructure:"prefix" default:"meridian"`
}

type ArchiveConfig struct {
	Type          string           `mapstructure:"type" default:"localfs" validate:"oneof=localfs s3 none"`
	Path          string           `mapstructure:"path" default:"data/archive"`
	S3            archive.S3Config `mapstructure:"s3" validate:"-"`
	RetentionDays int              `mapstructure:"retention_days" default:"90" validate:"gte=0"`
}

type NewsConfig struct {
	Enabled   bool                      `mapstructure:"enabled"`
	Interval  time.Duration             `mapstructure:"interval" default:"30m" validate:"gt=0"`
	Collect   news.CollectorConfig      `mapstructure:"collect"`
	Providers map[string]ProviderConfig `mapstructure:"providers" validate:"dive"`
}

type SentimentConfig struct {
	Enabled bool         `mapstructure:"enabled"`
	Models  []llm.Config `mapstructure:"models" validate:"dive"`
	Batch   int          `mapstructure:"batch" default:"50" validate:"gte=1"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" default:":9090"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading config: %w", err))
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := defaults()
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.StringToTimeHookFunc("2006-01-02"),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}
	cfg.fill()

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	cfg := defaults()
	cfg.fill()
	return cfg
}

// defaults applies the struct tags only. Slices and maps stay nil so a
// config file replaces them instead of merging into them.
func defaults() *Config {
	cfg := &Config{}
	// tags are static; Defaults cannot fail on this struct
	_ = validate.Defaults(cfg)
	cfg.Policy.MaxRetries = 3
	return cfg
}

// fill derives values that depend on other fields.
func (c *Config) fill() {
	if len(c.Sources.Order) == 0 {
		c.Sources.Order = []string{"yahoo"}
	}
	if len(c.Policy.Sources) == 0 {
		c.Policy.Sources = slices.Clone(c.Sources.Order)
	}
	if len(c.Strategies) == 0 {
		c.Strategies = make(map[string]strategy.Config, len(strategy.Names))
		for _, name := range strategy.Names {
			c.Strategies[name] = strategy.Config{Enabled: true}
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if !c.Engine.BarInterval.Valid() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine.bar_interval %q is not a known interval", c.Engine.BarInterval))
	}

	for _, name := range c.Policy.Sources {
		if !slices.Contains(MarketProviders, name) {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown source %q in policy.sources", name))
		}
		if p, ok := c.Sources.Providers[name]; ok && !p.Enabled {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("source %q is listed in policy.sources but disabled", name))
		}
	}
	for name := range c.Sources.Providers {
		if !slices.Contains(MarketProviders, name) {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown provider %q in sources.providers", name))
		}
	}
	for _, name := range []string{"alphavantage", "polygon"} {
		if slices.Contains(c.Policy.Sources, name) && c.Sources.Providers[name].APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("%s api_key required when it is a source", name))
		}
	}

	for name := range c.Strategies {
		if !slices.Contains(strategy.Names, name) {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown strategy %q", name))
		}
	}

	if c.Storage.Archive.Type == "s3" {
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.archive.s3.bucket required when archive type is s3"))
		}
		if err := validate.Struct(c.Storage.Archive.S3); err != nil {
			return err
		}
	}

	if c.News.Enabled {
		for name, p := range c.News.Providers {
			if !slices.Contains(NewsProviders, name) {
				return core.WrapError(core.ErrConfigInvalid,
					fmt.Errorf("unknown news provider %q", name))
			}
			if p.Enabled && p.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("news provider %s api_key required when enabled", name))
			}
		}
	}

	// LLM validation - if provider set, check config exists
	if err := validateLLM("llm", c.LLM); err != nil {
		return err
	}
	if c.Sentiment.Enabled {
		if len(c.SentimentModels()) == 0 {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("sentiment.models or llm.provider required when sentiment is enabled"))
		}
		for i, m := range c.Sentiment.Models {
			if m.Provider == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("sentiment.models[%d].provider required", i))
			}
			if err := validateLLM(fmt.Sprintf("sentiment.models[%d]", i), m); err != nil {
				return err
			}
		}
	}

	return nil
}

// SentimentModels returns the configured scoring models, falling back to the
// top-level llm block.
func (c *Config) SentimentModels() []llm.Config {
	if len(c.Sentiment.Models) > 0 {
		return c.Sentiment.Models
	}
	if c.LLM.Provider != "" {
		return []llm.Config{c.LLM}
	}
	return nil
}

func validateLLM(key string, c llm.Config) error {
	switch c.Provider {
	case "claude":
		if c.Claude.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("%s: claude api_key required when provider is claude", key))
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("%s: openai api_key required when provider is openai", key))
		}
	}
	return nil
}
