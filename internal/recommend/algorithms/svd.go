// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package algorithms

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/marquee/internal/recommend"
)

// ErrFactorization is returned when an SVD fails to converge.
var ErrFactorization = errors.New("matrix factorization failed")

// svdFactors holds the top-k right singular vectors (movies x k).
type svdFactors struct {
	k     int
	items *mat.Dense
}

// FitSVD fits a truncated SVD of rank k on the uncentered rating matrix.
// k is clamped to min(users, movies).
func (c *Collaborative) FitSVD(k int) error {
	c.acquireTrainLock()
	defer c.releaseTrainLock()

	if c.matrix == nil {
		return ErrNotPrepared
	}
	if k <= 0 {
		return fmt.Errorf("svd components must be positive, got %d", k)
	}

	users, movies := c.matrix.Dims()
	if limit := min(users, movies); k > limit {
		c.logger.Debug().Int("requested", k).Int("clamped", limit).Msg("SVD rank clamped to matrix size")
		k = limit
	}

	start := time.Now()
	var svd mat.SVD
	if ok := svd.Factorize(c.matrix.Dense(), mat.SVDThin); !ok {
		return fmt.Errorf("%w: svd did not converge", ErrFactorization)
	}

	var v mat.Dense
	svd.VTo(&v)
	items := mat.DenseCopyOf(v.Slice(0, movies, 0, k))

	c.svd = &svdFactors{k: k, items: items}
	c.markTrained()

	values := svd.Values(nil)
	var total, kept float64
	for idx, s := range values {
		total += s * s
		if idx < k {
			kept += s * s
		}
	}
	explained := 0.0
	if total > 0 {
		explained = kept / total
	}

	c.logger.Info().
		Int("components", k).
		Float64("explained_variance", explained).
		Dur("duration", time.Since(start)).
		Msg("SVD model fitted")
	return nil
}

// SVDRecommendations projects the user's rating row into the latent space,
// reconstructs every column, and ranks the unrated ones.
func (c *Collaborative) SVDRecommendations(userID string, n int) []recommend.ScoredMovie {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if c.svd == nil || n <= 0 {
		return []recommend.ScoredMovie{}
	}
	i, ok := c.matrix.UserIndex(userID)
	if !ok {
		return []recommend.ScoredMovie{}
	}

	recon := c.reconstructSVD(i)
	movieIDs := c.matrix.MovieIDs()
	scores := make(map[int]float64)
	c.unrated(i, func(j int) {
		scores[movieIDs[j]] = clampRating(recon.AtVec(j))
	})
	return rankScores(scores, n)
}

// reconstructSVD returns x V_k V_kᵀ for user row i.
// Must be called with the predict lock held.
func (c *Collaborative) reconstructSVD(i int) *mat.VecDense {
	row := mat.NewVecDense(c.matrix.Cols(), c.matrix.Row(i))

	var latent mat.VecDense
	latent.MulVec(c.svd.items.T(), row)

	var recon mat.VecDense
	recon.MulVec(c.svd.items, &latent)
	return &recon
}
