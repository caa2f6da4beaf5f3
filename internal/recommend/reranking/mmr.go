// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package reranking

import (
	"context"

	"github.com/tomtom215/marquee/internal/recommend"
)

// SimilarityFunc returns the similarity of two movies and whether both are
// known. Unknown pairs count as dissimilar.
type SimilarityFunc func(a, b int) (float64, bool)

// MMR is maximal marginal relevance reranking.
//
// Reference: Carbonell and Goldstein, "The Use of MMR, Diversity-Based
// Reranking for Reordering Documents and Producing Summaries", SIGIR 1998.
type MMR struct {
	lambda float64
	sim    SimilarityFunc
}

// NewMMR creates an MMR reranker. lambda is clamped to [0, 1].
func NewMMR(lambda float64, sim SimilarityFunc) *MMR {
	return &MMR{lambda: clampLambda(lambda), sim: sim}
}

// Name returns "mmr".
func (m *MMR) Name() string {
	return "mmr"
}

// Rerank greedily selects k candidates. Ties keep the input order. The
// returned scores are the original model scores.
func (m *MMR) Rerank(ctx context.Context, items []recommend.ScoredMovie, k int) []recommend.ScoredMovie {
	if len(items) == 0 || k <= 0 {
		return []recommend.ScoredMovie{}
	}
	k = boundK(k, len(items))
	if m.lambda >= 1 || m.sim == nil {
		return append([]recommend.ScoredMovie(nil), items[:k]...)
	}

	rel := normalizedRelevance(items)
	// maxSim[i] is the highest similarity of candidate i to any pick so far.
	maxSim := make([]float64, len(items))
	picked := make([]bool, len(items))
	out := make([]recommend.ScoredMovie, 0, k)

	for len(out) < k {
		if ctx.Err() != nil {
			break
		}
		best := -1
		var bestScore float64
		for i := range items {
			if picked[i] {
				continue
			}
			score := m.lambda*rel[i] - (1-m.lambda)*maxSim[i]
			if best < 0 || score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		picked[best] = true
		out = append(out, items[best])

		for i := range items {
			if picked[i] {
				continue
			}
			if s, ok := m.sim(items[i].MovieID, items[best].MovieID); ok && s > maxSim[i] {
				maxSim[i] = s
			}
		}
	}
	return out
}

var _ Reranker = (*MMR)(nil)
