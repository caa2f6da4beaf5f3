// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/recommend"
	"github.com/tomtom215/marquee/internal/recommend/algorithms"
	"github.com/tomtom215/marquee/internal/recommend/reranking"
)

// strategy produces up to n recommendations for a user from one snapshot.
type strategy func(snap *Snapshot, userID string, n int) []recommend.ScoredMovie

// buildStrategies maps every Algorithm to its model call.
func (e *Engine) buildStrategies() map[recommend.Algorithm]strategy {
	return map[recommend.Algorithm]strategy{
		recommend.AlgorithmHybrid: func(s *Snapshot, user string, n int) []recommend.ScoredMovie {
			return s.hybrid.Recommend(user, n, e.cfg.Hybrid.Adaptive, recommend.RequestContext{})
		},
		recommend.AlgorithmCollaborative: func(s *Snapshot, user string, n int) []recommend.ScoredMovie {
			return s.Collaborative.UserRecommendations(user, n)
		},
		recommend.AlgorithmContent: func(s *Snapshot, user string, n int) []recommend.ScoredMovie {
			recs := s.Content.RecommendForUser(s.Liked(user), n*e.cfg.Training.ContentMultiplier)
			recs = algorithms.WithoutRated(recs, s.Collaborative.RatedMovies(user))
			if len(recs) > n {
				recs = recs[:n]
			}
			return recs
		},
		recommend.AlgorithmSVD: func(s *Snapshot, user string, n int) []recommend.ScoredMovie {
			return s.Collaborative.SVDRecommendations(user, n)
		},
		recommend.AlgorithmALS: func(s *Snapshot, user string, n int) []recommend.ScoredMovie {
			return s.Collaborative.ALSRecommendations(user, n)
		},
	}
}

func resultLabel(recs []recommend.ScoredMovie, err error) string {
	switch {
	case err != nil:
		return "error"
	case len(recs) == 0:
		return "empty"
	default:
		return "success"
	}
}

// Recommend returns up to n movies for the user from the chosen algorithm.
// An unknown user yields an empty list.
func (e *Engine) Recommend(ctx context.Context, userID string, algorithm recommend.Algorithm, n int) (recs []recommend.ScoredMovie, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordRecommendation(algorithm.String(), resultLabel(recs, err), time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	run, ok := e.strategies[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %d", recommend.ErrUnknownAlgorithm, algorithm)
	}
	snap, err := e.current()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []recommend.ScoredMovie{}, nil
	}

	key := cacheKey{snapshot: snap.ID, user: userID, algorithm: algorithm, n: n}
	if e.cache != nil {
		cached, hit := e.cache.Get(key)
		metrics.RecordCacheLookup(hit)
		if hit {
			return append([]recommend.ScoredMovie(nil), cached...), nil
		}
	}

	recs = run(snap, userID, n)
	if e.cache != nil {
		e.cache.Add(key, append([]recommend.ScoredMovie(nil), recs...))
	}

	e.logger.Debug().
		Str("user_id", userID).
		Str("algorithm", algorithm.String()).
		Int("results", len(recs)).
		Msg("Recommendations generated")
	return recs, nil
}

// RecommendIDs returns only the movie ids of Recommend, best first.
func (e *Engine) RecommendIDs(ctx context.Context, userID string, algorithm recommend.Algorithm, n int) ([]int, error) {
	recs, err := e.Recommend(ctx, userID, algorithm, n)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(recs))
	for i, r := range recs {
		ids[i] = r.MovieID
	}
	return ids, nil
}

// RecommendWithContext runs the hybrid with context rules applied to the
// user's blend. Results are not cached.
func (e *Engine) RecommendWithContext(ctx context.Context, userID string, n int, rc recommend.RequestContext) (recs []recommend.ScoredMovie, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordRecommendation("hybrid_context", resultLabel(recs, err), time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := e.current()
	if err != nil {
		return nil, err
	}
	return snap.hybrid.Recommend(userID, n, e.cfg.Hybrid.Adaptive, rc), nil
}

// RecommendDiverse reranks the algorithm's candidates with MMR over content
// similarity. lambda 1 keeps the model order; lower values spread the list
// across dissimilar movies. Results are not cached.
func (e *Engine) RecommendDiverse(ctx context.Context, userID string, algorithm recommend.Algorithm, n int, lambda float64) ([]recommend.ScoredMovie, error) {
	return e.recommendReranked(ctx, userID, algorithm, n, func(snap *Snapshot) reranking.Reranker {
		return reranking.NewMMR(lambda, snap.Content.Similarity)
	})
}

// RecommendCalibrated reranks the algorithm's candidates so their genre and
// decade mix follows the user's liked movies. Results are not cached.
func (e *Engine) RecommendCalibrated(ctx context.Context, userID string, algorithm recommend.Algorithm, n int, lambda float64) ([]recommend.ScoredMovie, error) {
	return e.recommendReranked(ctx, userID, algorithm, n, func(snap *Snapshot) reranking.Reranker {
		liked := snap.Liked(userID)
		movies := make([]recommend.Movie, 0, len(liked))
		for _, id := range liked {
			if m, ok := snap.Content.Movie(id); ok {
				movies = append(movies, m)
			}
		}
		cfg := reranking.DefaultCalibrationConfig()
		cfg.Lambda = lambda
		return reranking.NewCalibration(cfg, reranking.Profile(movies), snap.Content.Movie)
	})
}

func (e *Engine) recommendReranked(ctx context.Context, userID string, algorithm recommend.Algorithm, n int, build func(*Snapshot) reranking.Reranker) (recs []recommend.ScoredMovie, err error) {
	start := time.Now()
	label := "rerank"
	defer func() {
		metrics.RecordRecommendation(algorithm.String()+"_"+label, resultLabel(recs, err), time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	run, ok := e.strategies[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %d", recommend.ErrUnknownAlgorithm, algorithm)
	}
	snap, err := e.current()
	if err != nil {
		return nil, err
	}
	r := build(snap)
	label = r.Name()
	if n <= 0 {
		return []recommend.ScoredMovie{}, nil
	}

	candidates := run(snap, userID, n*e.cfg.Training.ContentMultiplier)
	return r.Rerank(ctx, candidates, n), nil
}

// SimilarMovies returns the n movies most similar to movieID by content.
func (e *Engine) SimilarMovies(ctx context.Context, movieID, n int) ([]recommend.ScoredMovie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := e.current()
	if err != nil {
		return nil, err
	}
	return snap.Content.Similar(movieID, n), nil
}

// RecordFeedback applies the user's ratings of recommended movies to their
// hybrid blend using the configured update rule.
func (e *Engine) RecordFeedback(ctx context.Context, userID string, feedback map[int]float64) (recommend.Weights, error) {
	if err := ctx.Err(); err != nil {
		return recommend.Weights{}, err
	}
	recommended := make([]int, 0, len(feedback))
	for id := range feedback {
		recommended = append(recommended, id)
	}
	sort.Ints(recommended)

	method := e.cfg.Hybrid.Method
	w, err := e.weights.Update(userID, recommended, feedback, method)
	if err != nil {
		return recommend.Weights{}, err
	}
	e.invalidateUser(userID)

	stats := e.weights.Statistics()
	metrics.RecordFeedback(method.String(), stats.Content.Mean, stats.Users)
	return w, nil
}

// invalidateUser drops the user's cached results from every snapshot.
func (e *Engine) invalidateUser(userID string) {
	if e.cache == nil {
		return
	}
	e.cache.RemoveFunc(func(k cacheKey) bool { return k.user == userID })
}

// Explain describes which side dominates the user's blend.
func (e *Engine) Explain(userID string) string {
	return e.weights.Explanation(userID)
}

// Weights returns the user's blend and whether it was learned.
func (e *Engine) Weights(userID string) (recommend.Weights, bool) {
	return e.weights.Weights(userID)
}

// WeightStatistics summarizes the learned blends.
func (e *Engine) WeightStatistics() algorithms.WeightStatistics {
	return e.weights.Statistics()
}

// ResetWeights forgets the user's learned blend. An empty user id resets
// every user. It reports whether anything was removed.
func (e *Engine) ResetWeights(userID string) bool {
	if userID == "" {
		had := e.weights.Len() > 0
		e.weights.ResetAll()
		if e.cache != nil {
			e.cache.Clear()
		}
		return had
	}
	removed := e.weights.Reset(userID)
	e.invalidateUser(userID)
	return removed
}
