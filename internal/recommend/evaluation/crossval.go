// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/marquee/internal/recommend"
)

// Cross-validation defaults.
const (
	DefaultFolds = 5
	DefaultSeed  = 42
)

// ErrTooFewRatings is returned when there are fewer ratings than folds.
var ErrTooFewRatings = errors.New("not enough ratings for the requested folds")

// KFoldOptions configures a cross-validation run.
type KFoldOptions struct {
	// Folds is the number of splits. Default: 5.
	Folds int

	// Seed drives the shuffle. Default: 42.
	Seed int64

	// Logger receives per-fold progress. The zero value discards output.
	Logger zerolog.Logger
}

// FoldResult holds the error metrics of one fold.
type FoldResult struct {
	Fold      int     `json:"fold"`
	TrainSize int     `json:"train_size"`
	TestSize  int     `json:"test_size"`
	Scored    int     `json:"scored"`
	RMSE      float64 `json:"rmse"`
	MAE       float64 `json:"mae"`
}

// CrossValidation aggregates fold results.
type CrossValidation struct {
	Folds     []FoldResult `json:"folds"`
	MeanRMSE  float64      `json:"mean_rmse"`
	StdRMSE   float64      `json:"std_rmse"`
	MeanMAE   float64      `json:"mean_mae"`
	StdMAE    float64      `json:"std_mae"`
	TotalTest int          `json:"total_test"`
}

// RMSEs returns the per-fold RMSE values in fold order.
func (cv *CrossValidation) RMSEs() []float64 {
	out := make([]float64, len(cv.Folds))
	for i := range cv.Folds {
		out[i] = cv.Folds[i].RMSE
	}
	return out
}

// KFold shuffles ratings, splits them into folds, trains a model on each
// complement with train, and scores the held-out fold with predict.
//
// Test pairs for which predict fails (for example, an id unseen in the
// training split) are skipped. The first len(ratings) % folds folds receive
// one extra rating.
func KFold[M any](
	ctx context.Context,
	ratings []recommend.Rating,
	opts KFoldOptions,
	train func(ctx context.Context, train []recommend.Rating) (M, error),
	predict func(model M, userID string, movieID int) (float64, error),
) (*CrossValidation, error) {
	folds := opts.Folds
	if folds <= 0 {
		folds = DefaultFolds
	}
	if folds < 2 {
		return nil, fmt.Errorf("folds must be at least 2, got %d", folds)
	}
	if len(ratings) < folds {
		return nil, fmt.Errorf("%w: %d ratings, %d folds", ErrTooFewRatings, len(ratings), folds)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = DefaultSeed
	}

	order := make([]int, len(ratings))
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // determinism, not security
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	base, extra := len(ratings)/folds, len(ratings)%folds
	cv := &CrossValidation{Folds: make([]FoldResult, 0, folds)}

	start := 0
	for f := 0; f < folds; f++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		size := base
		if f < extra {
			size++
		}
		end := start + size

		testSet := make([]recommend.Rating, 0, size)
		trainSet := make([]recommend.Rating, 0, len(ratings)-size)
		for pos, idx := range order {
			if pos >= start && pos < end {
				testSet = append(testSet, ratings[idx])
			} else {
				trainSet = append(trainSet, ratings[idx])
			}
		}
		start = end

		model, err := train(ctx, trainSet)
		if err != nil {
			return nil, fmt.Errorf("train fold %d: %w", f+1, err)
		}

		predicted := make([]float64, 0, len(testSet))
		actual := make([]float64, 0, len(testSet))
		for i := range testSet {
			p, err := predict(model, testSet[i].UserID, testSet[i].MovieID)
			if err != nil {
				continue
			}
			predicted = append(predicted, p)
			actual = append(actual, testSet[i].Value)
		}

		res := FoldResult{
			Fold:      f + 1,
			TrainSize: len(trainSet),
			TestSize:  len(testSet),
			Scored:    len(predicted),
			RMSE:      RMSE(predicted, actual),
			MAE:       MAE(predicted, actual),
		}
		cv.Folds = append(cv.Folds, res)
		cv.TotalTest += len(testSet)

		opts.Logger.Info().
			Int("fold", res.Fold).
			Int("folds", folds).
			Int("scored", res.Scored).
			Float64("rmse", res.RMSE).
			Float64("mae", res.MAE).
			Msg("Cross-validation fold complete")
	}

	rmses := cv.RMSEs()
	maes := make([]float64, len(cv.Folds))
	for i := range cv.Folds {
		maes[i] = cv.Folds[i].MAE
	}
	cv.MeanRMSE, cv.StdRMSE = stat.PopMeanStdDev(rmses, nil)
	cv.MeanMAE, cv.StdMAE = stat.PopMeanStdDev(maes, nil)

	opts.Logger.Info().
		Float64("mean_rmse", cv.MeanRMSE).
		Float64("std_rmse", cv.StdRMSE).
		Float64("mean_mae", cv.MeanMAE).
		Float64("std_mae", cv.StdMAE).
		Msg("Cross-validation complete")
	return cv, nil
}
