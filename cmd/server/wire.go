// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tomtom215/marquee/internal/api"
	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/feed"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/recommend/engine"
	"github.com/tomtom215/marquee/internal/recommend/storage"
	"github.com/tomtom215/marquee/internal/supervisor"
	"github.com/tomtom215/marquee/internal/supervisor/services"
)

// application holds the wired components and the resources to release.
type application struct {
	engine    *engine.Engine
	store     *storage.Store
	recommend *services.RecommendService
	server    *http.Server
	tree      *supervisor.SupervisorTree
	closers   []io.Closer
}

// Close releases the feed and the store in reverse order of creation.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logging.Error().Err(err).Msg("Error releasing resource")
		}
	}
}

// build wires every component from cfg. On error, anything already opened
// is released.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func build(cfg *config.Config, logger zerolog.Logger) (app *application, err error) {
	app = &application{}
	defer func() {
		if err != nil {
			app.Close()
			app = nil
		}
	}()

	provider, closer, err := buildFeed(cfg.Feed, logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	app.store, err = buildStore(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	var opts []engine.Option
	if app.store != nil {
		app.closers = append(app.closers, app.store)
		opts = append(opts, engine.WithStore(app.store))
	}

	modelCfg, err := cfg.ModelConfig()
	if err != nil {
		return nil, fmt.Errorf("model config: %w", err)
	}
	app.engine, err = engine.New(modelCfg, provider, logging.WithComponent("engine"), opts...)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	app.recommend = services.NewRecommendService(app.engine, services.RecommendServiceConfig{
		OnStartup:   modelCfg.Training.OnStartup,
		Interval:    modelCfg.Training.Interval,
		MaxModelAge: modelCfg.Training.MaxModelAge,
		Timeout:     modelCfg.Training.Timeout,
	}, logger)

	var lister api.ModelLister
	if app.store != nil {
		lister = app.store
	}
	handler := api.NewHandler(app.engine, app.recommend, lister)
	app.server = &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewRouter(handler, api.RouterConfig{
			RateLimitRequests: cfg.Server.RateLimitRequests,
			RateLimitWindow:   cfg.Server.RateLimitWindow,
		}),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	app.tree, err = supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}
	app.tree.AddDataService(app.recommend)
	app.tree.AddAPIService(services.NewHTTPServerService(app.server, cfg.Server.ShutdownTimeout, logger))
	return app, nil
}

// buildFeed opens the configured provider and wraps it in the circuit
// breaker when enabled. The closer is nil for providers holding nothing open.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func buildFeed(cfg config.FeedConfig, logger zerolog.Logger) (engine.DataProvider, io.Closer, error) {
	var (
		provider feed.Provider
		closer   io.Closer
	)
	switch cfg.Kind {
	case "json":
		provider = feed.NewJSONProvider(cfg.RatingsPath, cfg.MoviesPath)
	case "duckdb":
		p, err := feed.NewDuckDBProvider(cfg.DuckDBConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("open duckdb feed: %w", err)
		}
		provider, closer = p, p
	default:
		return nil, nil, fmt.Errorf("unknown feed kind %q", cfg.Kind)
	}

	if cfg.Breaker.Enabled {
		provider = feed.NewBreakerProvider(provider, cfg.BreakerSettings(), logger)
	}
	return provider, closer, nil
}

// buildStore opens the model store. The none backend returns a nil store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func buildStore(cfg config.StorageConfig, logger zerolog.Logger) (*storage.Store, error) {
	var (
		backend storage.Backend
		err     error
	)
	switch cfg.Backend {
	case "none":
		logger.Warn().Msg("Model persistence disabled; every start trains from the feed")
		return nil, nil
	case "file":
		backend, err = storage.NewFileBackend(cfg.Dir, cfg.Retain)
	case "badger":
		backend, err = storage.NewBadgerBackend(cfg.Dir, cfg.Retain)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s model store: %w", cfg.Backend, err)
	}
	return storage.NewStore(backend, logging.WithComponent("storage")), nil
}
