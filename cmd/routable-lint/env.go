package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/routable/routable-lint/internal/config"
	"github.com/routable/routable-lint/internal/input"
	"github.com/routable/routable-lint/internal/lint"
	"github.com/routable/routable-lint/internal/metrics"
	"github.com/routable/routable-lint/internal/rules"
	"github.com/routable/routable-lint/internal/telemetry"
)

// environment is the configuration shared by every command that checks files.
type environment struct {
	cfg       *config.Config
	catalogue []rules.Rule
	handler   *input.Handler
	logger    *slog.Logger
	shutdown  func(context.Context) error
}

func machineDir() string {
	return os.ExpandEnv("$HOME/.config/routable-lint")
}

// loadEnvironment loads the tiered config and the rule catalogue and starts
// telemetry. Callers must call close.
func loadEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	catalogue, err := loadCatalogue()
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		// Telemetry is optional; checks still run.
		logger.Warn("telemetry disabled", "error", err)
	}

	return &environment{
		cfg:       cfg,
		catalogue: catalogue,
		handler:   input.NewHandler(input.WithExcludes(cfg.Exclude), input.WithLogger(logger)),
		logger:    logger,
		shutdown:  shutdown,
	}, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadTiered(
		filepath.Join(machineDir(), "config.yaml"),
		filepath.Join(flagConfigDir, "config.yaml"),
	)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func loadCatalogue() ([]rules.Rule, error) {
	catalogue, err := rules.LoadRules(
		filepath.Join(machineDir(), "rules"),
		filepath.Join(flagConfigDir, "rules"),
	)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	return catalogue, nil
}

// newRunner builds a lint runner from the config. jobs overrides cfg.Jobs
// when positive.
func (e *environment) newRunner(collector *metrics.Collector, useCache bool, jobs int) *lint.Runner {
	if jobs <= 0 {
		jobs = e.cfg.Jobs
	}
	opts := []lint.Option{
		lint.WithJobs(jobs),
		lint.WithLogger(e.logger),
		lint.WithRecorder(metrics.NewRecorder(collector)),
	}
	if useCache {
		opts = append(opts, lint.WithCache(lint.NewCache(e.cfg.Cache)))
	}
	return lint.NewRunner(opts...)
}

func (e *environment) close(ctx context.Context) {
	if e.shutdown == nil {
		return
	}
	if err := e.shutdown(ctx); err != nil {
		e.logger.Warn("telemetry shutdown failed", "error", err)
	}
}
