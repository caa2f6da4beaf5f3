// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package algorithms

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/marquee/internal/recommend"
	"github.com/tomtom215/marquee/internal/recommend/evaluation"
)

// ErrNotPrepared is returned when a fit step runs before Prepare.
var ErrNotPrepared = errors.New("rating matrix not prepared")

// Collaborative is the collaborative filtering engine.
//
// It owns one rating matrix and every model derived from it: the user
// similarity matrix, the truncated SVD item components, and the ALS factors.
// The index lists of the matrix stay in lock-step with every derived model for
// the lifetime of the instance. Fit methods take the exclusive lock; getters
// take the shared lock, so a fitted instance serves concurrent readers.
type Collaborative struct {
	BaseAlgorithm
	cfg    *recommend.Config
	logger zerolog.Logger

	matrix     *recommend.RatingMatrix
	similarity *mat.Dense
	svd        *svdFactors
	als        *alsFactors
}

// NewCollaborative creates an unfitted collaborative engine.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewCollaborative(cfg *recommend.Config, logger zerolog.Logger) *Collaborative {
	if cfg == nil {
		cfg = recommend.DefaultConfig()
	}
	return &Collaborative{
		BaseAlgorithm: NewBaseAlgorithm("collaborative"),
		cfg:           cfg.Clone(),
		logger:        logger.With().Str("component", "collaborative").Logger(),
	}
}

// Prepare builds the rating matrix. Derived models from a previous fit are discarded.
func (c *Collaborative) Prepare(ratings []recommend.Rating, movies []recommend.Movie) error {
	m, err := recommend.BuildMatrix(ratings, movies)
	if err != nil {
		return fmt.Errorf("prepare collaborative: %w", err)
	}

	c.acquireTrainLock()
	defer c.releaseTrainLock()

	c.matrix = m
	c.similarity = nil
	c.svd = nil
	c.als = nil

	c.logger.Info().
		Int("users", m.Rows()).
		Int("movies", m.Cols()).
		Int("ratings", m.NumRatings()).
		Msg("Rating matrix prepared")
	return nil
}

// Fit runs every configured fit step in order: similarity, SVD, then ALS when enabled.
func (c *Collaborative) Fit(ctx context.Context) error {
	if err := c.FitSimilarity(); err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}
	if err := c.FitSVD(c.cfg.SVD.Components); err != nil {
		return err
	}
	if !c.cfg.ALS.Enabled {
		return nil
	}
	als := c.cfg.ALS
	return c.FitALS(ctx, als.Factors, als.Iterations, als.Regularization, als.Dropout)
}

// FitSimilarity computes the user x user cosine similarity over full rating rows.
func (c *Collaborative) FitSimilarity() error {
	c.acquireTrainLock()
	defer c.releaseTrainLock()

	if c.matrix == nil {
		return ErrNotPrepared
	}

	start := time.Now()
	c.similarity = cosineMatrix(c.matrix.Dense())
	c.markTrained()

	c.logger.Info().
		Int("users", c.matrix.Rows()).
		Dur("duration", time.Since(start)).
		Msg("User similarity computed")
	return nil
}

// Matrix returns the prepared rating matrix, or nil before Prepare.
func (c *Collaborative) Matrix() *recommend.RatingMatrix {
	c.acquirePredictLock()
	defer c.releasePredictLock()
	return c.matrix
}

// RatedMovies returns the movies the user rated in the training matrix.
func (c *Collaborative) RatedMovies(userID string) map[int]struct{} {
	c.acquirePredictLock()
	defer c.releasePredictLock()
	if c.matrix == nil {
		return map[int]struct{}{}
	}
	return c.matrix.RatedMovies(userID)
}

// HasALS reports whether ALS factors are fitted.
func (c *Collaborative) HasALS() bool {
	c.acquirePredictLock()
	defer c.releasePredictLock()
	return c.als != nil
}

// TrainingRMSE returns the last ALS training RMSE, or 0 when ALS is not fitted.
func (c *Collaborative) TrainingRMSE() float64 {
	c.acquirePredictLock()
	defer c.releasePredictLock()
	if c.als == nil {
		return 0
	}
	return c.als.rmse
}

// unrated calls fn for every column user i has not rated.
func (c *Collaborative) unrated(i int, fn func(j int)) {
	for j, v := range c.matrix.Row(i) {
		if v == 0 {
			fn(j)
		}
	}
}

// HybridRecommendations blends the neighborhood, SVD and ALS getters with fixed weights.
//
// Each source contributes up to 2n candidates. A movie missing from one source
// keeps only the terms of the sources that ranked it.
func (c *Collaborative) HybridRecommendations(userID string, n int) []recommend.ScoredMovie {
	if n <= 0 {
		return []recommend.ScoredMovie{}
	}

	combined := make(map[int]float64)
	blend := c.cfg.Blend
	userBased := c.UserRecommendations(userID, 2*n)
	svdBased := c.SVDRecommendations(userID, 2*n)

	if c.HasALS() {
		blendInto(combined, userBased, blend.Neighborhood)
		blendInto(combined, svdBased, blend.SVD)
		blendInto(combined, c.ALSRecommendations(userID, 2*n), blend.ALS)
	} else {
		blendInto(combined, userBased, blend.NoALSNeighborhood)
		blendInto(combined, svdBased, blend.NoALSSVD)
	}

	return rankScores(combined, n)
}

// SimilarUsers returns up to n other users ranked by descending similarity.
func (c *Collaborative) SimilarUsers(userID string, n int) []recommend.ScoredUser {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	out := []recommend.ScoredUser{}
	if c.similarity == nil || n <= 0 {
		return out
	}
	i, ok := c.matrix.UserIndex(userID)
	if !ok {
		return out
	}

	ids := c.matrix.UserIDs()
	for v, id := range ids {
		if v == i {
			continue
		}
		out = append(out, recommend.ScoredUser{UserID: id, Similarity: c.similarity.At(i, v)})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Similarity != out[b].Similarity {
			return out[a].Similarity > out[b].Similarity
		}
		return out[a].UserID < out[b].UserID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Similarity returns the cosine similarity of two users.
func (c *Collaborative) Similarity(a, b string) (float64, bool) {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if c.similarity == nil {
		return 0, false
	}
	i, ok := c.matrix.UserIndex(a)
	if !ok {
		return 0, false
	}
	j, ok := c.matrix.UserIndex(b)
	if !ok {
		return 0, false
	}
	return c.similarity.At(i, j), true
}

// Evaluate scores the neighborhood predictor on held-out ratings.
// Pairs outside the trained index are skipped; no scorable pair yields zeros.
func (c *Collaborative) Evaluate(test []recommend.Rating) evaluation.ErrorMetrics {
	predicted := make([]float64, 0, len(test))
	actual := make([]float64, 0, len(test))
	for i := range test {
		p, err := c.PredictRating(test[i].UserID, test[i].MovieID)
		if err != nil {
			continue
		}
		predicted = append(predicted, p)
		actual = append(actual, test[i].Value)
	}

	metrics := evaluation.ErrorMetrics{
		RMSE: evaluation.RMSE(predicted, actual),
		MAE:  evaluation.MAE(predicted, actual),
		N:    len(predicted),
	}
	c.logger.Info().
		Float64("rmse", metrics.RMSE).
		Float64("mae", metrics.MAE).
		Int("pairs", metrics.N).
		Msg("Collaborative model evaluated")
	return metrics
}

// CollaborativeSchemaVersion identifies the layout of CollaborativeState.
const CollaborativeSchemaVersion = 1

// CollaborativeState is the persisted form of a fitted Collaborative.
// Similarity is derived and recomputed on restore.
type CollaborativeState struct {
	SchemaVersion int
	Version       int
	TrainedAt     time.Time

	UserIDs  []string
	MovieIDs []int
	Ratings  []float64

	SVDComponents  int
	SVDItemFactors []float64

	ALSFactors      int
	ALSUserFactors  []float64
	ALSItemFactors  []float64
	ALSTrainingRMSE float64
}

// Validate checks that every array matches the index lengths.
func (s *CollaborativeState) Validate() error {
	if s.SchemaVersion != CollaborativeSchemaVersion {
		return fmt.Errorf("collaborative schema version %d, want %d", s.SchemaVersion, CollaborativeSchemaVersion)
	}
	users, movies := len(s.UserIDs), len(s.MovieIDs)
	if users == 0 || movies == 0 {
		return errors.New("collaborative state has empty index")
	}
	if len(s.Ratings) != users*movies {
		return fmt.Errorf("ratings length %d does not match %d x %d", len(s.Ratings), users, movies)
	}
	if s.SVDComponents > 0 && len(s.SVDItemFactors) != movies*s.SVDComponents {
		return fmt.Errorf("svd factors length %d does not match %d x %d", len(s.SVDItemFactors), movies, s.SVDComponents)
	}
	if s.ALSFactors > 0 {
		if len(s.ALSUserFactors) != users*s.ALSFactors {
			return fmt.Errorf("als user factors length %d does not match %d x %d", len(s.ALSUserFactors), users, s.ALSFactors)
		}
		if len(s.ALSItemFactors) != movies*s.ALSFactors {
			return fmt.Errorf("als item factors length %d does not match %d x %d", len(s.ALSItemFactors), movies, s.ALSFactors)
		}
	}
	return nil
}

// Snapshot captures the fitted state for persistence.
func (c *Collaborative) Snapshot() (*CollaborativeState, error) {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if c.matrix == nil {
		return nil, ErrNotPrepared
	}
	s := &CollaborativeState{
		SchemaVersion: CollaborativeSchemaVersion,
		Version:       c.version,
		TrainedAt:     c.lastTrainedAt,
		UserIDs:       append([]string(nil), c.matrix.UserIDs()...),
		MovieIDs:      append([]int(nil), c.matrix.MovieIDs()...),
		Ratings:       c.matrix.Values(),
	}
	if c.svd != nil {
		s.SVDComponents = c.svd.k
		s.SVDItemFactors = rawCopy(c.svd.items)
	}
	if c.als != nil {
		s.ALSFactors = c.als.k
		s.ALSUserFactors = rawCopy(c.als.users)
		s.ALSItemFactors = rawCopy(c.als.items)
		s.ALSTrainingRMSE = c.als.rmse
	}
	return s, nil
}

// RestoreCollaborative rebuilds a fitted engine from persisted state.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func RestoreCollaborative(state *CollaborativeState, cfg *recommend.Config, logger zerolog.Logger) (*Collaborative, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	m, err := recommend.NewRatingMatrix(state.UserIDs, state.MovieIDs, state.Ratings)
	if err != nil {
		return nil, fmt.Errorf("restore rating matrix: %w", err)
	}

	c := NewCollaborative(cfg, logger)
	c.acquireTrainLock()
	defer c.releaseTrainLock()

	c.matrix = m
	c.similarity = cosineMatrix(m.Dense())
	if state.SVDComponents > 0 {
		c.svd = &svdFactors{
			k:     state.SVDComponents,
			items: mat.NewDense(m.Cols(), state.SVDComponents, append([]float64(nil), state.SVDItemFactors...)),
		}
	}
	if state.ALSFactors > 0 {
		c.als = &alsFactors{
			k:     state.ALSFactors,
			users: mat.NewDense(m.Rows(), state.ALSFactors, append([]float64(nil), state.ALSUserFactors...)),
			items: mat.NewDense(m.Cols(), state.ALSFactors, append([]float64(nil), state.ALSItemFactors...)),
			rmse:  state.ALSTrainingRMSE,
		}
	}
	c.restoreTrained(state.Version, state.TrainedAt)
	return c, nil
}

// rawCopy returns a row-major copy of d.
func rawCopy(d *mat.Dense) []float64 {
	rows, cols := d.Dims()
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		out = append(out, d.RawRowView(i)...)
	}
	return out
}
