// Package main provides the drop table simulator binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DrumSongOSRS/DropRoller/internal/config"
	"github.com/DrumSongOSRS/DropRoller/internal/dice"
	"github.com/DrumSongOSRS/DropRoller/internal/itemvalue"
	"github.com/DrumSongOSRS/DropRoller/internal/observability"
	"github.com/DrumSongOSRS/DropRoller/internal/simulation"
	"github.com/DrumSongOSRS/DropRoller/internal/storage/postgres"
	"github.com/DrumSongOSRS/DropRoller/internal/storage/sqlite"
	"github.com/DrumSongOSRS/DropRoller/internal/wiki"
)

const usageText = `usage: dropsim [-config path] <table> <trials>

Rolls the named drop table <trials> times and prints the totals.
<trials> must be a positive integer.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	start := time.Now()

	fs := flag.NewFlagSet("dropsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usageText) }
	configPath := fs.String("config", "", "path to configuration file; empty uses defaults and DROPSIM_ environment variables")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() != 2 {
		fmt.Fprintf(stderr, "error: expected 2 arguments, got %d\n\n", fs.NArg())
		fs.Usage()
		return 1
	}
	tableName := fs.Arg(0)
	trials, err := strconv.Atoi(fs.Arg(1))
	if err != nil || trials < 1 {
		fmt.Fprintf(stderr, "error: number of trials must be a positive integer, got %q\n\n", fs.Arg(1))
		fs.Usage()
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: loading config: %v\n", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.Logging, zap.Fields(zap.String("component", "dropsim")))
	if err != nil {
		fmt.Fprintf(stderr, "error: initializing logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	values, closeValues := openValues(ctx, cfg, logger)
	defer closeValues()

	runner := &simulation.Runner{
		Tables: cfg.Tables.Dir,
		Source: newSource(cfg.Simulation, logger),
		Values: values,
		Logger: logger,
	}
	if err := runner.Run(ctx, stdout, tableName, trials); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	logger.Debug("dropsim finished", zap.Duration("elapsed", time.Since(start)))
	return 0
}

// newSource picks crypto/rand unless a seed is configured. Draws are logged
// individually only at debug level.
func newSource(cfg config.SimulationConfig, logger *zap.Logger) dice.Source {
	var src dice.Source
	if cfg.Seed != 0 {
		src = dice.NewSeededSource(cfg.Seed)
		logger.Info("using seeded random source", zap.Int64("seed", cfg.Seed))
	} else {
		src = dice.NewCryptoSource()
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		return dice.NewLoggedSource(src, logger)
	}
	return src
}

// openValues builds the item value provider for the configured backend. Any
// failure is logged once and disables the value summaries; the simulation
// itself still runs.
func openValues(ctx context.Context, cfg config.Config, logger *zap.Logger) (itemvalue.Provider, func()) {
	noop := func() {}
	if !cfg.Values.Enabled {
		return nil, noop
	}

	cache, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		logger.Warn("item value cache unavailable; value summaries are disabled",
			zap.String("backend", cfg.Values.Backend),
			zap.Error(err),
		)
		return nil, noop
	}

	newFetcher := func() (itemvalue.Fetcher, error) {
		logger.Debug("creating wiki client", zap.String("base_url", cfg.Wiki.BaseURL))
		return wiki.NewClient(cfg.Wiki), nil
	}
	store, err := itemvalue.NewStore(ctx, cache, newFetcher, logger,
		itemvalue.WithConcurrency(cfg.Values.PrefetchConcurrency),
	)
	if err != nil {
		closeCache()
		logger.Warn("item value store unavailable; value summaries are disabled",
			zap.String("backend", cfg.Values.Backend),
			zap.Error(err),
		)
		return nil, noop
	}
	logger.Debug("item value store ready",
		zap.String("backend", cfg.Values.Backend),
		zap.Int("cached", store.Len()),
	)
	return store, closeCache
}

func openCache(ctx context.Context, cfg config.Config) (itemvalue.Cache, func(), error) {
	switch cfg.Values.Backend {
	case config.BackendFile:
		return itemvalue.NewFileCache(cfg.Values.Path), func() {}, nil
	case config.BackendMemory:
		return itemvalue.NewMemoryCache(nil), func() {}, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.Values.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return pool.ItemValues(), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown values backend %q", cfg.Values.Backend)
}
