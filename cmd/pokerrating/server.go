package main

import (
	"context"

	"github.com/lox/pokerrating/cmd/pokerrating/shared"
	"github.com/lox/pokerrating/internal/config"
	"github.com/lox/pokerrating/internal/rating"
	"github.com/lox/pokerrating/internal/server"
)

// ServerCmd runs the REST API
type ServerCmd struct {
	Addr      string `help:"Listen address, overrides the config file"`
	OracleURL string `name:"oracle-url" help:"Holdem calculator base URL, overrides the config file"`
}

func (c *ServerCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.OracleURL != "" {
		cfg.Oracle.URL = c.OracleURL
	}

	ctx, cancel := shared.SignalContext(context.Background(), logger)
	defer cancel()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close store")
		}
	}()

	cache, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	eng, err := newEngine(cfg, logger, cache)
	if err != nil {
		return err
	}

	calc := rating.NewCalculator(logger, eng, st)
	srv := server.New(logger, calc, st)

	logger.Info().
		Str("address", cfg.Server.Address).
		Str("oracle", cfg.Oracle.URL).
		Str("store", cfg.Store.Driver).
		Str("cache", cfg.Cache.Driver).
		Int("parallelism", cfg.Engine.Parallelism).
		Bool("concurrent_rules", cfg.ConcurrentRules()).
		Msg("Starting pokerrating server")

	return srv.ListenAndServe(ctx, cfg.Server.Address, config.Duration(cfg.Server.ShutdownTimeout))
}
