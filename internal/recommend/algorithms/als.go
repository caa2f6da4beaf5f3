// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package algorithms

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/marquee/internal/recommend"
)

// alsFactors holds fitted ALS latent factors.
type alsFactors struct {
	k     int
	users *mat.Dense // users x k
	items *mat.Dense // movies x k
	rmse  float64
}

// FitALS fits explicit-feedback alternating least squares.
//
// Each iteration solves a ridge regression per user over that user's rated
// movies with item factors fixed, then the symmetric problem per movie:
//
//	(FᵀF + λI) x = Fᵀr
//
// When dropout > 0 a fresh Bernoulli(1-dropout) mask is applied to the fixed
// factors at every half-step and surviving entries are scaled by 1/(1-dropout).
// Singular systems fall back to the pseudo-inverse. Training RMSE over rated
// cells is logged every RMSEEvery iterations and is diagnostic only; the
// iteration count is fixed.
func (c *Collaborative) FitALS(ctx context.Context, k, iterations int, reg, dropout float64) error {
	if k <= 0 {
		return fmt.Errorf("als factors must be positive, got %d", k)
	}
	if iterations <= 0 {
		return fmt.Errorf("als iterations must be positive, got %d", iterations)
	}
	if reg < 0 {
		return fmt.Errorf("als regularization must be non-negative, got %f", reg)
	}
	if dropout < 0 || dropout >= 1 {
		return fmt.Errorf("als dropout must be in [0, 1), got %f", dropout)
	}

	c.acquireTrainLock()
	defer c.releaseTrainLock()

	if c.matrix == nil {
		return ErrNotPrepared
	}

	start := time.Now()
	users, movies := c.matrix.Dims()
	rng := rand.New(rand.NewSource(c.cfg.Seed)) //nolint:gosec // determinism, not security

	stddev := c.cfg.ALS.InitStdDev
	if stddev <= 0 {
		stddev = 0.1
	}
	userFactors := randomNormal(rng, users, k, stddev)
	itemFactors := randomNormal(rng, movies, k, stddev)

	// Rated-entry indexes for both half-steps
	userRated := make([][]int, users)
	itemRated := make([][]int, movies)
	for i := 0; i < users; i++ {
		for j, v := range c.matrix.Row(i) {
			if v != 0 {
				userRated[i] = append(userRated[i], j)
				itemRated[j] = append(itemRated[j], i)
			}
		}
	}

	every := c.cfg.ALS.RMSEEvery
	if every <= 0 {
		every = 2
	}

	var rmse float64
	var fallbacks int
	for iter := 0; iter < iterations; iter++ {
		if err := checkContext(ctx); err != nil {
			return err
		}

		fixedItems := applyDropout(rng, itemFactors, dropout)
		userFactors, fallbacks = alsStep(userRated, func(u, j int) float64 { return c.matrix.At(u, j) }, fixedItems, k, reg)

		fixedUsers := applyDropout(rng, userFactors, dropout)
		var itemFallbacks int
		itemFactors, itemFallbacks = alsStep(itemRated, func(j, u int) float64 { return c.matrix.At(u, j) }, fixedUsers, k, reg)
		fallbacks += itemFallbacks

		if iter%every == 0 || iter == iterations-1 {
			rmse = alsTrainingRMSE(userRated, c.matrix, userFactors, itemFactors)
			c.logger.Info().
				Int("iteration", iter+1).
				Int("iterations", iterations).
				Float64("rmse", rmse).
				Int("pinv_fallbacks", fallbacks).
				Msg("ALS iteration")
		}
	}

	c.als = &alsFactors{k: k, users: userFactors, items: itemFactors, rmse: rmse}
	c.markTrained()

	c.logger.Info().
		Int("factors", k).
		Int("iterations", iterations).
		Float64("regularization", reg).
		Float64("dropout", dropout).
		Float64("rmse", rmse).
		Dur("duration", time.Since(start)).
		Msg("ALS model fitted")
	return nil
}

// ALSRecommendations ranks the user's unrated movies by ALS predicted rating.
func (c *Collaborative) ALSRecommendations(userID string, n int) []recommend.ScoredMovie {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if c.als == nil || n <= 0 {
		return []recommend.ScoredMovie{}
	}
	i, ok := c.matrix.UserIndex(userID)
	if !ok {
		return []recommend.ScoredMovie{}
	}

	uf := c.als.users.RawRowView(i)
	movieIDs := c.matrix.MovieIDs()
	scores := make(map[int]float64)
	c.unrated(i, func(j int) {
		scores[movieIDs[j]] = clampRating(floats.Dot(uf, c.als.items.RawRowView(j)))
	})
	return rankScores(scores, n)
}

// PredictALS returns the clamped ALS prediction for one user and movie.
func (c *Collaborative) PredictALS(userID string, movieID int) (float64, error) {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if c.als == nil {
		return 0, ErrNotPrepared
	}
	i, ok := c.matrix.UserIndex(userID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", recommend.ErrUnknownUser, userID)
	}
	j, ok := c.matrix.MovieIndex(movieID)
	if !ok {
		return 0, fmt.Errorf("%w: %d", recommend.ErrUnknownMovie, movieID)
	}
	return clampRating(floats.Dot(c.als.users.RawRowView(i), c.als.items.RawRowView(j))), nil
}

// alsStep solves one half of an ALS iteration.
//
// rated[r] lists the columns of the fixed matrix observed for row r, and
// value(r, col) returns the observed rating. Rows without observations get
// zero factors. Returns the new factors and how many solves needed the
// pseudo-inverse.
func alsStep(rated [][]int, value func(r, col int) float64, fixed *mat.Dense, k int, reg float64) (*mat.Dense, int) {
	out := mat.NewDense(len(rated), k, nil)
	a := mat.NewSymDense(k, nil)
	b := mat.NewVecDense(k, nil)
	x := mat.NewVecDense(k, nil)
	var fallbacks int

	for r, cols := range rated {
		if len(cols) == 0 {
			continue
		}

		// A = FᵀF + λI, b = Fᵀr over observed columns
		a.Zero()
		b.Zero()
		for _, col := range cols {
			f := fixed.RawRowView(col)
			rating := value(r, col)
			for p := 0; p < k; p++ {
				b.SetVec(p, b.AtVec(p)+f[p]*rating)
				for q := p; q < k; q++ {
					a.SetSym(p, q, a.At(p, q)+f[p]*f[q])
				}
			}
		}
		for p := 0; p < k; p++ {
			a.SetSym(p, p, a.At(p, p)+reg)
		}

		if !solveCholesky(a, b, x) {
			pinvSolve(a, b, x)
			fallbacks++
		}
		copy(out.RawRowView(r), x.RawVector().Data)
	}
	return out, fallbacks
}

// solveCholesky solves a x = b for symmetric positive definite a.
func solveCholesky(a *mat.SymDense, b, x *mat.VecDense) bool {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return false
	}
	if err := chol.SolveVecTo(x, b); err != nil {
		return false
	}
	for _, v := range x.RawVector().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// pinvSolve sets x to the minimum-norm least-squares solution of a x = b
// using the SVD pseudo-inverse. Singular values below the numpy-style
// cutoff max(dims) * eps * σmax are treated as zero.
func pinvSolve(a mat.Matrix, b, x *mat.VecDense) {
	x.Zero()

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)
	if len(values) == 0 {
		return
	}

	rows, cols := a.Dims()
	cutoff := float64(max(rows, cols)) * 2.220446049250313e-16 * values[0]

	// x = V Σ⁺ Uᵀ b
	var utb mat.VecDense
	utb.MulVec(u.T(), b)
	for i, s := range values {
		if s > cutoff {
			utb.SetVec(i, utb.AtVec(i)/s)
		} else {
			utb.SetVec(i, 0)
		}
	}
	x.MulVec(&v, &utb)
}

// applyDropout returns factors masked by Bernoulli(1-p) and rescaled by 1/(1-p).
// p == 0 returns the factors unchanged.
func applyDropout(rng *rand.Rand, factors *mat.Dense, p float64) *mat.Dense {
	if p <= 0 {
		return factors
	}
	rows, cols := factors.Dims()
	out := mat.NewDense(rows, cols, nil)
	scale := 1 / (1 - p)
	for i := 0; i < rows; i++ {
		src := factors.RawRowView(i)
		dst := out.RawRowView(i)
		for j := range src {
			if rng.Float64() < 1-p {
				dst[j] = src[j] * scale
			}
		}
	}
	return out
}

// randomNormal returns a rows x cols matrix drawn from N(0, stddev²).
func randomNormal(rng *rand.Rand, rows, cols int, stddev float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64() * stddev
	}
	return mat.NewDense(rows, cols, data)
}

// alsTrainingRMSE is the RMSE of the unclamped factor product over rated cells.
func alsTrainingRMSE(userRated [][]int, m *recommend.RatingMatrix, users, items *mat.Dense) float64 {
	var sum float64
	var n int
	for u, cols := range userRated {
		uf := users.RawRowView(u)
		for _, j := range cols {
			d := m.At(u, j) - floats.Dot(uf, items.RawRowView(j))
			sum += d * d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
