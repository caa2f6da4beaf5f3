// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/recommend/engine"
)

// checkpointTimeout bounds the final weight checkpoint after shutdown.
const checkpointTimeout = 10 * time.Second

// RecommendEngine is the engine surface the service drives.
type RecommendEngine interface {
	LoadOrTrain(ctx context.Context) error
	Train(ctx context.Context) error
	SaveState(ctx context.Context) error
	Status() engine.Status
}

// RecommendServiceConfig configures the training lifecycle.
type RecommendServiceConfig struct {
	// OnStartup loads persisted models, or trains, when Serve begins.
	OnStartup bool

	// Interval is how often the loop wakes to checkpoint and check staleness.
	Interval time.Duration

	// MaxModelAge is the age at which the serving snapshot is retrained.
	// Zero retrains on every tick.
	MaxModelAge time.Duration

	// Timeout bounds one training run. Zero means no bound.
	Timeout time.Duration
}

// RecommendService runs the engine's training lifecycle under supervision.
type RecommendService struct {
	engine  RecommendEngine
	config  RecommendServiceConfig
	logger  zerolog.Logger
	trigger chan struct{}
	now     func() time.Time
}

// NewRecommendService creates the service.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRecommendService(eng RecommendEngine, cfg RecommendServiceConfig, logger zerolog.Logger) *RecommendService {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &RecommendService{
		engine:  eng,
		config:  cfg,
		logger:  logger.With().Str("service", "recommend").Logger(),
		trigger: make(chan struct{}, 1),
		now:     time.Now,
	}
}

// TriggerRetrain queues one training run. It returns false when training is
// active or a run is already queued.
func (s *RecommendService) TriggerRetrain() bool {
	if s.engine.Status().Training {
		return false
	}
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Serve implements suture.Service.
func (s *RecommendService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("on_startup", s.config.OnStartup).
		Dur("interval", s.config.Interval).
		Dur("max_model_age", s.config.MaxModelAge).
		Msg("Recommendation service starting")

	if s.config.OnStartup {
		s.run(ctx, "startup", s.engine.LoadOrTrain)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.checkpoint()
			s.logger.Info().Msg("Recommendation service stopped")
			return ctx.Err()

		case <-ticker.C:
			s.tick(ctx)

		case <-s.trigger:
			s.run(ctx, "manual", s.engine.Train)
		}
	}
}

// tick checkpoints the weights, refreshes the age gauge, and retrains a
// stale or missing snapshot.
func (s *RecommendService) tick(ctx context.Context) {
	if err := s.engine.SaveState(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Weight checkpoint failed")
	}

	st := s.engine.Status()
	if st.Trained {
		metrics.UpdateModelAge(st.TrainedAt)
	}
	if s.stale(st) {
		s.run(ctx, "scheduled", s.engine.Train)
	}
}

func (s *RecommendService) stale(st engine.Status) bool {
	if !st.Trained || s.config.MaxModelAge <= 0 {
		return true
	}
	return s.now().Sub(st.TrainedAt) >= s.config.MaxModelAge
}

// run executes one training step. Failures are logged and retried on the
// next tick; the service itself keeps running.
func (s *RecommendService) run(ctx context.Context, reason string, step func(context.Context) error) {
	runCtx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := step(runCtx)
	switch {
	case err == nil:
		s.logger.Info().Str("reason", reason).Dur("duration", time.Since(start)).Msg("Models ready")
	case errors.Is(err, engine.ErrTrainingInProgress):
		s.logger.Debug().Str("reason", reason).Msg("Training already in progress, skipped")
	case ctx.Err() != nil:
		// Shutdown interrupted the run.
	default:
		s.logger.Warn().Err(err).Str("reason", reason).Msg("Training failed, will retry on schedule")
	}
}

// checkpoint saves the weights after the serve context is gone.
func (s *RecommendService) checkpoint() {
	ctx, cancel := context.WithTimeout(context.Background(), checkpointTimeout)
	defer cancel()
	if err := s.engine.SaveState(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Final weight checkpoint failed")
	}
}

// String names the service in supervisor events.
func (s *RecommendService) String() string {
	return "recommend-service"
}
