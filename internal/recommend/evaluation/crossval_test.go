// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package evaluation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tomtom215/marquee/internal/recommend"
)

// meanModel predicts the global mean of its training ratings.
type meanModel struct {
	mean float64
}

func trainMean(_ context.Context, train []recommend.Rating) (meanModel, error) {
	var sum float64
	for i := range train {
		sum += train[i].Value
	}
	return meanModel{mean: sum / float64(len(train))}, nil
}

func predictMean(m meanModel, _ string, _ int) (float64, error) {
	return m.mean, nil
}

func makeRatings(n int, value func(i int) float64) []recommend.Rating {
	out := make([]recommend.Rating, n)
	for i := range out {
		out[i] = recommend.Rating{UserID: fmt.Sprintf("u%d", i%4), MovieID: i, Value: value(i)}
	}
	return out
}

func TestKFold_FoldSizes(t *testing.T) {
	t.Parallel()

	ratings := makeRatings(11, func(i int) float64 { return float64(1 + i%5) })
	cv, err := KFold(context.Background(), ratings, KFoldOptions{Folds: 3}, trainMean, predictMean)
	if err != nil {
		t.Fatalf("KFold: %v", err)
	}

	if len(cv.Folds) != 3 {
		t.Fatalf("len(Folds) = %d, want 3", len(cv.Folds))
	}
	wantSizes := []int{4, 4, 3}
	for i, f := range cv.Folds {
		if f.TestSize != wantSizes[i] {
			t.Errorf("fold %d TestSize = %d, want %d", i+1, f.TestSize, wantSizes[i])
		}
		if f.TrainSize != 11-wantSizes[i] {
			t.Errorf("fold %d TrainSize = %d, want %d", i+1, f.TrainSize, 11-wantSizes[i])
		}
	}
	if cv.TotalTest != 11 {
		t.Errorf("TotalTest = %d, want 11", cv.TotalTest)
	}
}

func TestKFold_PerfectPredictor(t *testing.T) {
	t.Parallel()

	ratings := makeRatings(10, func(int) float64 { return 4 })
	cv, err := KFold(context.Background(), ratings, KFoldOptions{}, trainMean, predictMean)
	if err != nil {
		t.Fatalf("KFold: %v", err)
	}
	if len(cv.Folds) != DefaultFolds {
		t.Errorf("len(Folds) = %d, want %d", len(cv.Folds), DefaultFolds)
	}
	if cv.MeanRMSE != 0 || cv.StdRMSE != 0 {
		t.Errorf("RMSE mean/std = %v/%v, want 0/0", cv.MeanRMSE, cv.StdRMSE)
	}
	if cv.MeanMAE != 0 {
		t.Errorf("MeanMAE = %v, want 0", cv.MeanMAE)
	}
}

func TestKFold_Deterministic(t *testing.T) {
	t.Parallel()

	ratings := makeRatings(25, func(i int) float64 { return float64(1 + (i*7)%5) })
	opts := KFoldOptions{Folds: 5, Seed: 7}

	a, err := KFold(context.Background(), ratings, opts, trainMean, predictMean)
	if err != nil {
		t.Fatalf("KFold: %v", err)
	}
	b, err := KFold(context.Background(), ratings, opts, trainMean, predictMean)
	if err != nil {
		t.Fatalf("KFold: %v", err)
	}
	for i := range a.Folds {
		if a.Folds[i].RMSE != b.Folds[i].RMSE {
			t.Errorf("fold %d RMSE differs between runs: %v vs %v", i+1, a.Folds[i].RMSE, b.Folds[i].RMSE)
		}
	}
}

func TestKFold_SkipsUnscorable(t *testing.T) {
	t.Parallel()

	ratings := makeRatings(6, func(int) float64 { return 3 })
	fail := func(meanModel, string, int) (float64, error) { return 0, recommend.ErrUnknownUser }

	cv, err := KFold(context.Background(), ratings, KFoldOptions{Folds: 2}, trainMean, fail)
	if err != nil {
		t.Fatalf("KFold: %v", err)
	}
	for _, f := range cv.Folds {
		if f.Scored != 0 || f.RMSE != 0 {
			t.Errorf("fold %d scored=%d rmse=%v, want 0/0", f.Fold, f.Scored, f.RMSE)
		}
	}
}

func TestKFold_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := KFold(ctx, makeRatings(2, func(int) float64 { return 3 }), KFoldOptions{Folds: 5}, trainMean, predictMean)
	if !errors.Is(err, ErrTooFewRatings) {
		t.Errorf("too few ratings error = %v, want ErrTooFewRatings", err)
	}

	if _, err := KFold(ctx, makeRatings(5, func(int) float64 { return 3 }), KFoldOptions{Folds: 1}, trainMean, predictMean); err == nil {
		t.Error("folds=1: expected error")
	}

	boom := errors.New("boom")
	failTrain := func(context.Context, []recommend.Rating) (meanModel, error) { return meanModel{}, boom }
	if _, err := KFold(ctx, makeRatings(5, func(int) float64 { return 3 }), KFoldOptions{Folds: 2}, failTrain, predictMean); !errors.Is(err, boom) {
		t.Errorf("train failure error = %v, want wrapped boom", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := KFold(canceled, makeRatings(5, func(int) float64 { return 3 }), KFoldOptions{Folds: 2}, trainMean, predictMean); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled context error = %v, want context.Canceled", err)
	}
}
