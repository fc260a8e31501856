package source

import (
	"time"

	"github.com/newthinker/meridian/internal/validate"
)

// Mode selects how candidate sources are fanned out.
type Mode string

const (
	ModeSequential Mode = "sequential-fallback"
	ModeRace       Mode = "parallel-race"
	ModeAll        Mode = "parallel-all"
)

// Backoff shapes the retry schedule for RateLimited and Transient errors.
type Backoff struct {
	Initial    time.Duration `mapstructure:"initial" default:"500ms" validate:"gt=0"`
	Max        time.Duration `mapstructure:"max" default:"10s" validate:"gtefield=Initial"`
	Multiplier float64       `mapstructure:"multiplier" default:"2" validate:"gte=1"`
}

// Policy describes one resolution request. Sources are in preference order.
type Policy struct {
	Sources      []string      `mapstructure:"sources" validate:"min=1,dive,required"`
	Mode         Mode          `mapstructure:"mode" default:"sequential-fallback" validate:"oneof=sequential-fallback parallel-race parallel-all"`
	// MaxRetries is the number of retries after the first attempt; zero disables retrying.
	MaxRetries   int           `mapstructure:"max_retries" validate:"gte=0"`
	ForceRefresh bool          `mapstructure:"force_refresh"`
	MinQuality   float64       `mapstructure:"min_quality" default:"0.5" validate:"gte=0,lte=1"`
	MinPoints    int           `mapstructure:"min_points" default:"1" validate:"gte=1"`
	CallTimeout  time.Duration `mapstructure:"call_timeout" default:"10s" validate:"gt=0"`
	Freshness    time.Duration `mapstructure:"freshness" default:"15m" validate:"gte=0"`
	Backoff      Backoff       `mapstructure:"backoff"`
}

// Normalize fills defaults and validates the policy.
func (p *Policy) Normalize() error {
	return validate.Apply(p)
}
