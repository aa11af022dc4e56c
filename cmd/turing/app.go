package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mathieusouflis/turing"
	"github.com/mathieusouflis/turing/internal/config"
	"github.com/mathieusouflis/turing/internal/logging"
	"github.com/mathieusouflis/turing/pkg/adapters/file"
	"github.com/mathieusouflis/turing/pkg/adapters/loam"
	"github.com/mathieusouflis/turing/pkg/adapters/memory"
	"github.com/mathieusouflis/turing/pkg/adapters/redis"
	"github.com/mathieusouflis/turing/pkg/adapters/sqlite"
	"github.com/mathieusouflis/turing/pkg/observability"
	"github.com/mathieusouflis/turing/pkg/ports"
)

// app holds everything a command needs, built from the environment and flags.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	svc     *turing.Service
	catalog ports.TemplateCatalog
	metrics *observability.Metrics

	closers []io.Closer
}

type appOptions struct {
	// persistent switches the memory store to the file store, so commands
	// run one at a time from a shell see each other's machines.
	persistent bool
	// catalogOnly skips the store and the service; only the logger and
	// the template catalog are built.
	catalogOnly bool
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("store"); v != "" {
		cfg.Store = v
	}
	if v, _ := flags.GetString("dir"); v != "" {
		cfg.FileDir = v
	}
	if v, _ := flags.GetString("db"); v != "" {
		cfg.SQLitePath = v
	}
	if v, _ := flags.GetString("redis"); v != "" {
		cfg.RedisAddr = v
	}
	if v, _ := flags.GetString("catalog"); v != "" {
		cfg.CatalogDir = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, cfg.Validate()
}

func newApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if opts.persistent && cfg.Store == config.StoreMemory && !cmd.Flags().Changed("store") {
		cfg.Store = config.StoreFile
	}

	a := &app{cfg: cfg}
	if err := a.setupLogger(); err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a.catalog = memory.NewBuiltinCatalog()
	if cfg.CatalogDir != "" {
		c, err := loam.Open(cfg.CatalogDir, loam.WithFallback(a.catalog), loam.WithLogger(a.logger))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.catalog = c
	}
	if opts.catalogOnly {
		return a, nil
	}

	store, locker, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	svcOpts := []turing.Option{
		turing.WithCatalog(a.catalog),
		turing.WithLogger(a.logger),
		turing.WithStepLimits(cfg.MaxSteps, cfg.MaxStepsLimit),
		turing.WithTapeLimits(cfg.MaxHead, cfg.MaxTape),
	}
	if cfg.Metrics {
		a.metrics = observability.NewMetrics()
		svcOpts = append(svcOpts, turing.WithMetrics(a.metrics))
	}
	if locker != nil {
		svcOpts = append(svcOpts, turing.WithLocker(locker, 0))
	}
	a.svc = turing.New(store, svcOpts...)
	return a, nil
}

func (a *app) setupLogger() error {
	level, err := logging.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	if a.cfg.LogFile == "" {
		a.logger = logging.New(level)
		return nil
	}

	h, closer, err := logging.FileHandler(a.cfg.LogFile, level)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closer)
	a.logger = logging.NewWithSinks(level, os.Stderr, h)
	return nil
}

func (a *app) openStore(ctx context.Context) (ports.MachineStore, ports.DistributedLocker, error) {
	switch a.cfg.Store {
	case config.StoreFile:
		return file.New(a.cfg.FileDir), nil, nil
	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, s)
		return s, nil, nil
	case config.StoreRedis:
		s := redis.New(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB,
			redis.WithPrefix(a.cfg.RedisPrefix),
			redis.WithTTL(a.cfg.RedisTTL),
		)
		a.closers = append(a.closers, s)
		if err := s.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.RedisAddr, err)
		}
		if a.cfg.RedisLock {
			return s, redis.NewLocker(s.Client(), a.cfg.RedisPrefix), nil
		}
		return s, nil, nil
	}
	return memory.NewStore(), nil, nil
}

// Close releases the store and the log file.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
