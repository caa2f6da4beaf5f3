// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package engine

import (
	"context"
	"sort"

	"github.com/tomtom215/marquee/internal/recommend"
	"github.com/tomtom215/marquee/internal/recommend/evaluation"
)

// evaluationDepth is the list length scored for ranking metrics.
const evaluationDepth = 20

// Evaluation scores the serving snapshot against held-out ratings.
type Evaluation struct {
	// Neighborhood and ALS are rating-prediction errors over scorable pairs.
	Neighborhood evaluation.ErrorMetrics `json:"neighborhood"`
	ALS          evaluation.ErrorMetrics `json:"als"`

	// Ranking averages EvaluateRecommendations over users with at least one
	// liked held-out movie, using the hybrid strategy.
	Ranking map[string]float64 `json:"ranking"`
	Users   int                `json:"users"`

	Coverage  float64 `json:"coverage"`
	Diversity float64 `json:"diversity"`
	Novelty   float64 `json:"novelty"`
}

// Evaluate scores the serving snapshot on test ratings. Held-out movies rated
// at or above the like threshold count as relevant.
func (e *Engine) Evaluate(ctx context.Context, test []recommend.Rating) (*Evaluation, error) {
	snap, err := e.current()
	if err != nil {
		return nil, err
	}

	out := &Evaluation{
		Neighborhood: snap.Collaborative.Evaluate(test),
		Ranking:      map[string]float64{},
	}
	if snap.Collaborative.HasALS() {
		out.ALS = alsErrors(snap, test)
	}

	relevant := make(map[string][]int)
	relevance := make(map[string]map[int]float64)
	for _, r := range test {
		if relevance[r.UserID] == nil {
			relevance[r.UserID] = make(map[int]float64)
		}
		relevance[r.UserID][r.MovieID] = r.Value
		if r.Value >= e.cfg.Hybrid.LikeThreshold {
			relevant[r.UserID] = append(relevant[r.UserID], r.MovieID)
		}
	}
	users := make([]string, 0, len(relevant))
	for u := range relevant {
		users = append(users, u)
	}
	sort.Strings(users)

	m := snap.Collaborative.Matrix()
	popularity := make(map[int]float64, m.Cols())
	for j, id := range m.MovieIDs() {
		popularity[id] = float64(m.RatedBy(j)) / float64(m.Rows())
	}

	var lists [][]int
	var diversity, novelty float64
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs := snap.hybrid.Recommend(user, evaluationDepth, e.cfg.Hybrid.Adaptive, recommend.RequestContext{})
		ids := make([]int, len(recs))
		for i, r := range recs {
			ids[i] = r.MovieID
		}
		for k, v := range evaluation.EvaluateRecommendations(ids, relevant[user], relevance[user]) {
			out.Ranking[k] += v
		}
		lists = append(lists, ids)
		diversity += evaluation.Diversity(ids, snap.Content.Similarity)
		novelty += evaluation.Novelty(ids, popularity)
	}

	out.Users = len(users)
	if out.Users > 0 {
		n := float64(out.Users)
		for k := range out.Ranking {
			out.Ranking[k] /= n
		}
		out.Diversity = diversity / n
		out.Novelty = novelty / n
		out.Coverage = evaluation.Coverage(lists, snap.catalogSize)
	}

	e.logger.Info().
		Int("users", out.Users).
		Float64("rmse", out.Neighborhood.RMSE).
		Float64("coverage", out.Coverage).
		Msg("Snapshot evaluated")
	return out, nil
}

func alsErrors(snap *Snapshot, test []recommend.Rating) evaluation.ErrorMetrics {
	predicted := make([]float64, 0, len(test))
	actual := make([]float64, 0, len(test))
	for _, r := range test {
		p, err := snap.Collaborative.PredictALS(r.UserID, r.MovieID)
		if err != nil {
			continue
		}
		predicted = append(predicted, p)
		actual = append(actual, r.Value)
	}
	return evaluation.ErrorMetrics{
		RMSE: evaluation.RMSE(predicted, actual),
		MAE:  evaluation.MAE(predicted, actual),
		N:    len(predicted),
	}
}
