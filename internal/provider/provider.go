package provider

import (
	"context"
	"time"

	"github.com/newthinker/meridian/internal/core"
)

// Config holds adapter construction options. Credentials are fixed here and
// never passed per call.
type Config struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	MaxConcurrent int
}

// WithDefaults fills zero fields.
func (c Config) WithDefaults(baseURL string) Config {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 1
	}
	return c
}

// Provider is a uniform adapter over one external OHLCV source.
//
// Fetch returns errors from the closed set core.ErrRateLimited,
// core.ErrNotFound, core.ErrTransient and core.ErrMalformed. Adapters never
// retry and must be safe for concurrent use.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, inst core.Instrument, interval core.Interval, rng core.TimeRange) (core.Series, error)
}
