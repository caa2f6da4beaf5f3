// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/recommend"
)

// BreakerConfig tunes the circuit around a provider.
type BreakerConfig struct {
	Name string

	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval resets the closed-state counts. Zero keeps counts forever.
	Interval time.Duration

	// Timeout is how long the circuit stays open before a trial call.
	Timeout time.Duration

	// MinRequests and FailureRatio decide when the circuit opens.
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerConfig suits feeds fetched a few times an hour.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "feed",
		MaxRequests:  1,
		Interval:     10 * time.Minute,
		Timeout:      2 * time.Minute,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// BreakerProvider stops calling a failing provider until it has had time to
// recover. Both feeds share one circuit since they share an upstream.
type BreakerProvider struct {
	inner  Provider
	cb     *gobreaker.CircuitBreaker[any]
	name   string
	logger zerolog.Logger
}

// NewBreakerProvider wraps inner with a circuit breaker.
func NewBreakerProvider(inner Provider, cfg BreakerConfig, logger zerolog.Logger) *BreakerProvider {
	if cfg.Name == "" {
		cfg.Name = "feed"
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 1
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = 0.6
	}
	bp := &BreakerProvider{
		inner:  inner,
		name:   cfg.Name,
		logger: logger.With().Str("breaker", cfg.Name).Logger(),
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	bp.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			trip := ratio >= cfg.FailureRatio
			if trip {
				bp.logger.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("Opening feed circuit")
			}
			return trip
		},
		// A caller giving up says nothing about the feed's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			bp.logger.Info().
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Feed circuit state transition")
			metrics.RecordCircuitBreakerTransition(name, stateToString(from), stateToString(to), stateToFloat(to))
		},
	})
	return bp
}

// State reports the circuit state: closed, half-open, or open.
func (bp *BreakerProvider) State() string {
	return stateToString(bp.cb.State())
}

func (bp *BreakerProvider) execute(fn func() (any, error)) (any, error) {
	result, err := bp.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordCircuitBreakerRequest(bp.name, "rejected")
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		metrics.RecordCircuitBreakerRequest(bp.name, "failure")
		return nil, err
	}
	metrics.RecordCircuitBreakerRequest(bp.name, "success")
	return result, nil
}

func castResult[T any](result any, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	typed, ok := result.([]T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// Ratings fetches the rating feed through the circuit.
func (bp *BreakerProvider) Ratings(ctx context.Context) ([]recommend.Rating, error) {
	return castResult[recommend.Rating](bp.execute(func() (any, error) {
		return bp.inner.Ratings(ctx)
	}))
}

// Movies fetches the catalog feed through the circuit.
func (bp *BreakerProvider) Movies(ctx context.Context) ([]recommend.Movie, error) {
	return castResult[recommend.Movie](bp.execute(func() (any, error) {
		return bp.inner.Movies(ctx)
	}))
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
