package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lox/pokerrating/cmd/pokerrating/shared"
	"github.com/lox/pokerrating/internal/config"
	"github.com/lox/pokerrating/internal/engine"
	"github.com/lox/pokerrating/internal/equity"
	"github.com/lox/pokerrating/internal/rules"
	"github.com/lox/pokerrating/internal/store"
)

// setup loads and validates configuration and builds the logger
func (g *Globals) setup() (*config.Config, zerolog.Logger, error) {
	logger := shared.NewLogger(g.Debug, g.LogJSON)
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, logger, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, logger, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, logger, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store.Service, error) {
	var backend store.Backend
	switch cfg.Store.Driver {
	case "memory":
		backend = store.NewMemory()
	case "sqlite":
		db, err := store.OpenSQLite(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		backend = db
	case "postgres":
		db, err := store.OpenPostgres(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		backend = db
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}

	logger.Info().Str("driver", cfg.Store.Driver).Msg("Rating store opened")
	return store.New(logger, backend,
		store.WithDefaultRating(cfg.Store.DefaultRating),
		store.WithConflictPolicy(cfg.ConflictPolicy()),
	), nil
}

// openCache returns the showdown cache and a function releasing it
func openCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (equity.Cache, func(), error) {
	switch cfg.Cache.Driver {
	case "none":
		return equity.NopCache{}, func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.Cache.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Using redis showdown cache")
		return equity.NewRedisCache(client, config.Duration(cfg.Cache.TTL)), func() { _ = client.Close() }, nil
	default:
		return equity.NewMemoryCache(), func() {}, nil
	}
}

func newEngine(cfg *config.Config, logger zerolog.Logger, cache equity.Cache) (*engine.Engine, error) {
	client := equity.NewClient(cfg.OracleClient(), logger, nil)
	supplier, err := equity.NewCalculator(logger, client,
		equity.WithCache(cache),
		equity.WithExecutor(equity.NewExecutor(cfg.Engine.Parallelism)),
	)
	if err != nil {
		return nil, err
	}
	pipeline := rules.NewPipeline(logger, rules.WithConcurrency(cfg.ConcurrentRules()))
	return engine.New(logger, supplier, pipeline), nil
}
