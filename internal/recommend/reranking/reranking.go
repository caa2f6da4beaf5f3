// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package reranking

import (
	"context"

	"github.com/tomtom215/marquee/internal/recommend"
)

// maxRerankSize bounds the selected list.
const maxRerankSize = 10000

// Reranker reorders scored candidates and returns at most k of them.
type Reranker interface {
	Name() string
	Rerank(ctx context.Context, items []recommend.ScoredMovie, k int) []recommend.ScoredMovie
}

func clampLambda(lambda float64) float64 {
	switch {
	case lambda < 0:
		return 0
	case lambda > 1:
		return 1
	default:
		return lambda
	}
}

func boundK(k, n int) int {
	if k > maxRerankSize {
		k = maxRerankSize
	}
	if k > n {
		k = n
	}
	return k
}

// normalizedRelevance scales scores to [0, 1]. Equal scores all map to 1.
func normalizedRelevance(items []recommend.ScoredMovie) []float64 {
	out := make([]float64, len(items))
	if len(items) == 0 {
		return out
	}
	lo, hi := items[0].Score, items[0].Score
	for _, it := range items[1:] {
		lo = min(lo, it.Score)
		hi = max(hi, it.Score)
	}
	span := hi - lo
	for i, it := range items {
		if span == 0 {
			out[i] = 1
			continue
		}
		out[i] = (it.Score - lo) / span
	}
	return out
}
