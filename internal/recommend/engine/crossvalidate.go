// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package engine

import (
	"context"
	"fmt"

	"github.com/tomtom215/marquee/internal/recommend"
	"github.com/tomtom215/marquee/internal/recommend/algorithms"
	"github.com/tomtom215/marquee/internal/recommend/evaluation"
)

// CrossValidation compares the neighborhood and ALS rating predictors over
// the same k-fold splits of the rating feed.
type CrossValidation struct {
	Neighborhood *evaluation.CrossValidation `json:"neighborhood"`

	// ALS and Comparison are nil when ALS is disabled.
	ALS        *evaluation.CrossValidation `json:"als,omitempty"`
	Comparison *evaluation.TTestResult     `json:"comparison,omitempty"`
}

// CrossValidate runs k-fold cross-validation of the collaborative model on a
// fresh read of the feeds. It does not touch the serving snapshot. A
// non-positive folds uses evaluation.DefaultFolds.
func (e *Engine) CrossValidate(ctx context.Context, folds int) (*CrossValidation, error) {
	if e.provider == nil {
		return nil, ErrNoDataProvider
	}
	ratings, err := e.provider.Ratings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	movies, err := e.provider.Movies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load movies: %w", err)
	}

	train := func(ctx context.Context, split []recommend.Rating) (*algorithms.Collaborative, error) {
		c := algorithms.NewCollaborative(e.cfg, e.logger)
		if err := c.Prepare(split, movies); err != nil {
			return nil, err
		}
		if err := c.Fit(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
	// Both runs share the seed, so fold i holds the same test ratings in each.
	opts := evaluation.KFoldOptions{Folds: folds, Logger: e.logger}

	out := &CrossValidation{}
	out.Neighborhood, err = evaluation.KFold(ctx, ratings, opts, train,
		func(c *algorithms.Collaborative, user string, movie int) (float64, error) {
			return c.PredictRating(user, movie)
		})
	if err != nil {
		return nil, fmt.Errorf("neighborhood cross-validation: %w", err)
	}
	if !e.cfg.ALS.Enabled {
		return out, nil
	}

	out.ALS, err = evaluation.KFold(ctx, ratings, opts, train,
		func(c *algorithms.Collaborative, user string, movie int) (float64, error) {
			return c.PredictALS(user, movie)
		})
	if err != nil {
		return nil, fmt.Errorf("als cross-validation: %w", err)
	}
	if t, err := evaluation.PairedTTest(out.Neighborhood.RMSEs(), out.ALS.RMSEs()); err == nil {
		out.Comparison = &t
	}

	e.logger.Info().
		Float64("neighborhood_rmse", out.Neighborhood.MeanRMSE).
		Float64("als_rmse", out.ALS.MeanRMSE).
		Msg("Cross-validation complete")
	return out, nil
}
