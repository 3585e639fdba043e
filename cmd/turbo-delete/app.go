package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"turbo-delete/internal/config"
	"turbo-delete/internal/database"
	"turbo-delete/internal/engine"
	"turbo-delete/internal/logging"
	"turbo-delete/internal/privilege"
	"turbo-delete/internal/safety"
)

// app carries state shared by all commands
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	verbose    int
	noColor    bool

	cfg    *config.Config
	logger zerolog.Logger
	closer io.Closer
}

func (a *app) setup() error {
	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	path := config.Resolve(a.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	a.cfg = cfg

	opts := logging.FromConfig(cfg, a.errOut)
	opts.NoColor = a.noColor
	switch {
	case a.verbose >= 2:
		opts.Level = zerolog.TraceLevel
	case a.verbose == 1:
		opts.Level = zerolog.DebugLevel
	}
	// The log file failure is reported by the logger itself
	a.logger, a.closer, _ = logging.New(opts)
	a.logger.Debug().Str("config", path).Msg("configuration loaded")
	return nil
}

func (a *app) close() {
	if a.closer != nil {
		_ = a.closer.Close()
		a.closer = nil
	}
}

// quietLogger keeps info lines off the terminal during interactive commands
func (a *app) quietLogger() zerolog.Logger {
	if a.verbose > 0 {
		return a.logger
	}
	return a.logger.Level(zerolog.WarnLevel)
}

func (a *app) guard() *safety.Validator {
	return safety.NewValidator(a.cfg.SystemRoot(), a.cfg.Safety.ExtraProtected)
}

func (a *app) newEngine(logger zerolog.Logger, workers int, skipOwnership bool) *engine.Engine {
	ec := a.cfg.Engine
	if workers > 0 {
		ec.Workers = workers
	}

	return engine.New(engine.Options{
		Workers:         ec.Workers,
		BatchSize:       ec.BatchSize,
		MaxSkippedItems: ec.MaxSkippedItems,
		SkipOwnership:   skipOwnership,
		Guard:           a.guard(),
		Reclaimer:       privilege.New(logger),
		Logger:          logging.Component(logger, "engine"),
	})
}

// openHistory opens the run database. Deletions still run without it.
func (a *app) openHistory() (*database.DeletionDB, error) {
	if a.cfg.DatabasePath == "" {
		return nil, errNoHistory
	}
	db, err := database.NewDeletionDB(a.cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", a.cfg.DatabasePath, err)
	}
	return db, nil
}

var errNoHistory = errors.New("run history is disabled")
