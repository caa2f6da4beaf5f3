// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package algorithms

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/marquee/internal/recommend"
)

// BaseAlgorithm provides the fitted-state bookkeeping shared by the models.
type BaseAlgorithm struct {
	name          string
	trained       bool
	version       int
	lastTrainedAt time.Time
	mu            sync.RWMutex
}

// NewBaseAlgorithm creates a new base algorithm with the given name.
func NewBaseAlgorithm(name string) BaseAlgorithm {
	return BaseAlgorithm{
		name: name,
	}
}

// Name returns the model identifier.
func (b *BaseAlgorithm) Name() string {
	return b.name
}

// IsTrained returns whether the model has been fitted.
func (b *BaseAlgorithm) IsTrained() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trained
}

// Version returns how many times the model has been fitted.
func (b *BaseAlgorithm) Version() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// LastTrainedAt returns when the model was last fitted.
func (b *BaseAlgorithm) LastTrainedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastTrainedAt
}

// markTrained updates the trained state.
// Must be called while holding the training lock (acquireTrainLock).
func (b *BaseAlgorithm) markTrained() {
	b.trained = true
	b.version++
	b.lastTrainedAt = time.Now()
}

// restoreTrained marks a model rebuilt from persisted state.
// Must be called while holding the training lock.
func (b *BaseAlgorithm) restoreTrained(version int, at time.Time) {
	b.trained = true
	b.version = version
	b.lastTrainedAt = at
}

func (b *BaseAlgorithm) acquireTrainLock()   { b.mu.Lock() }
func (b *BaseAlgorithm) releaseTrainLock()   { b.mu.Unlock() }
func (b *BaseAlgorithm) acquirePredictLock() { b.mu.RLock() }
func (b *BaseAlgorithm) releasePredictLock() { b.mu.RUnlock() }

// checkContext returns the context error if the context is done.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// clampRating bounds a prediction to the rating scale.
func clampRating(v float64) float64 {
	if math.IsNaN(v) {
		return recommend.NeutralRating
	}
	return math.Max(recommend.MinRating, math.Min(recommend.MaxRating, v))
}

// cosineSimilarity computes the cosine of the angle between a and b.
// Zero vectors have similarity 0 to everything.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// cosineMatrix returns the row-by-row cosine similarity of x.
//
// The result is symmetric with a unit diagonal. Rows with zero norm have
// similarity 0 to every other row. Values are clamped to [-1, 1] to absorb
// floating point drift.
func cosineMatrix(x mat.Matrix) *mat.Dense {
	rows, cols := x.Dims()
	normed := mat.NewDense(rows, cols, nil)
	normed.Copy(x)
	for i := 0; i < rows; i++ {
		row := normed.RawRowView(i)
		if n := floats.Norm(row, 2); n > 0 {
			floats.Scale(1/n, row)
		}
	}

	sim := mat.NewDense(rows, rows, nil)
	sim.Mul(normed, normed.T())
	for i := 0; i < rows; i++ {
		row := sim.RawRowView(i)
		for j := range row {
			row[j] = math.Max(-1, math.Min(1, row[j]))
		}
		row[i] = 1
	}
	return sim
}

// rankScores converts a score map to at most n entries sorted by descending
// score, breaking ties by ascending movie id.
func rankScores(scores map[int]float64, n int) []recommend.ScoredMovie {
	if n <= 0 || len(scores) == 0 {
		return []recommend.ScoredMovie{}
	}
	out := make([]recommend.ScoredMovie, 0, len(scores))
	for id, s := range scores {
		out = append(out, recommend.ScoredMovie{MovieID: id, Score: s})
	}
	sortScored(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// sortScored orders by descending score, then ascending movie id.
func sortScored(s []recommend.ScoredMovie) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].MovieID < s[j].MovieID
	})
}

// WithoutRated drops the movies in rated from recs, keeping order.
func WithoutRated(recs []recommend.ScoredMovie, rated map[int]struct{}) []recommend.ScoredMovie {
	if len(rated) == 0 {
		return recs
	}
	out := make([]recommend.ScoredMovie, 0, len(recs))
	for _, r := range recs {
		if _, ok := rated[r.MovieID]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// blendInto adds weight*score for every entry of recs into dst.
func blendInto(dst map[int]float64, recs []recommend.ScoredMovie, weight float64) {
	for _, r := range recs {
		dst[r.MovieID] += r.Score * weight
	}
}

// finiteOrZero maps NaN and infinities to 0.
func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
