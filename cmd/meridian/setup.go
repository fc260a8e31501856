package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/newthinker/meridian/internal/app"
	"github.com/newthinker/meridian/internal/config"
	"github.com/newthinker/meridian/internal/logger"
)

// setup loads the config, builds the logger and wires the app.
func setup(ctx context.Context) (*config.Config, *app.App, *zap.Logger, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
	}

	logCfg := cfg.Log
	if debug {
		logCfg.Development = true
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, fmt.Errorf("building app: %w", err)
	}
	return cfg, a, log, nil
}
