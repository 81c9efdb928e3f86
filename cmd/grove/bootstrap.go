package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/grove"
	"github.com/aretw0/grove/internal/config"
	"github.com/aretw0/grove/internal/logging"
	"github.com/aretw0/grove/pkg/adapters/file"
	"github.com/aretw0/grove/pkg/adapters/redis"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/observability"
	"github.com/aretw0/grove/pkg/ports"
	"github.com/spf13/cobra"
)

// app is everything a command needs, assembled from the configuration.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	grove   *grove.Grove
	metrics *observability.Metrics
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "err", err)
		}
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, cfg.Validate()
}

// snapshotStore builds the configured backend, or returns nil for memory.
func snapshotStore(cfg config.Config, logger *slog.Logger) (ports.SnapshotStore, ports.DistributedLocker, func() error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		return file.New(cfg.Storage.Path,
			file.WithFormat(file.Format(cfg.Storage.Format)),
			file.WithLogger(logger),
		), nil, nil
	case config.BackendRedis:
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithLogger(logger),
		)
		return store, redis.NewLocker(store.Client(), cfg.Redis.Prefix), store.Close
	default:
		return nil, nil, nil
	}
}

// bootstrap assembles the library from the configuration. The initial tree
// is the seed file if set, else the stored snapshot, else empty.
func bootstrap(ctx context.Context, cfg config.Config, withMetrics bool) (*app, error) {
	level, _ := cfg.Level()
	a := &app{cfg: cfg, logger: logging.New(level, logging.WithFormat(cfg.LogFormat))}

	store, locker, closeStore := snapshotStore(cfg, a.logger)
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	var seed []domain.Collection
	switch {
	case cfg.Seed != "":
		tree, err := grove.LoadSeed(ctx, cfg.Seed)
		if err != nil {
			a.Close()
			return nil, err
		}
		seed = tree
	case store != nil:
		tree, err := store.Load(ctx, cfg.Sync.Key)
		if err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
			a.Close()
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		seed = tree
	}

	opts := []grove.Option{
		grove.WithSeed(seed),
		grove.WithLogger(a.logger),
	}
	if withMetrics && cfg.Metrics.Enabled {
		a.metrics = observability.NewMetrics()
		opts = append(opts, grove.WithMetrics(a.metrics))
	}
	if cfg.Sync.Enabled && store != nil {
		opts = append(opts, grove.WithSnapshotStore(store, cfg.Sync.Key))
		if locker != nil {
			opts = append(opts, grove.WithSyncLocker(locker, defaultLockTTL))
		}
	}

	g, err := grove.New(opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.grove = g
	a.closers = append(a.closers, g.Close)
	return a, nil
}
