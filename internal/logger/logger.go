package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/newthinker/meridian/internal/core"
)

// Config selects level and encoding. Development switches to a colored
// console encoder at debug level regardless of Level.
type Config struct {
	Level       string `mapstructure:"level" default:"info" validate:"oneof=debug info warn error"`
	Format      string `mapstructure:"format" default:"json" validate:"oneof=json console"`
	Development bool   `mapstructure:"development"`
}

// New creates a new zap logger
func New(cfg Config) (*zap.Logger, error) {
	var zcfg zap.Config

	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zcfg.Build()
	}

	zcfg = zap.NewProductionConfig()
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Format == "console" {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}

// Must creates a logger or panics
func Must(cfg Config) *zap.Logger {
	log, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return log
}
