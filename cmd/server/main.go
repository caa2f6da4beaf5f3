// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package main runs the Marquee recommendation server.
//
// Startup order:
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. Logging
//  3. Data feed (JSON files or DuckDB), behind a circuit breaker
//  4. Model store (file or badger)
//  5. Engine
//  6. Supervisor tree: the recommend service in the data layer and the ops
//     HTTP server in the api layer
//
// SIGINT and SIGTERM cancel the tree. The recommend service checkpoints the
// hybrid weights before it stops.
//
// Example:
//
//	FEED_KIND=duckdb \
//	FEED_DUCKDB_LAYOUT=movielens \
//	FEED_DUCKDB_RATINGS=ml-latest-small/ratings.csv \
//	FEED_DUCKDB_MOVIES=ml-latest-small/movies.csv \
//	./marquee
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("addr", cfg.Server.Addr).
		Str("feed", cfg.Feed.Kind).
		Str("storage", cfg.Storage.Backend).
		Msg("Starting Marquee")

	app, err := build(cfg, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := app.tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := app.tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	logging.Info().Msg("Marquee stopped")
}
