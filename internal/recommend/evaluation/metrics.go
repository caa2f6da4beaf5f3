// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package evaluation provides ranking-quality metrics, rating error metrics,
// and a k-fold cross-validation harness for recommendation models.
//
// Every metric is a pure function that returns 0 on empty or degenerate input
// instead of failing, so callers can aggregate across users without guarding.
package evaluation

import (
	"fmt"
	"math"
	"sort"
)

// Novelty clamp bounds and default popularity for unseen items.
const (
	minPopularity     = 0.0001
	maxPopularity     = 1.0
	defaultPopularity = 0.01
)

// DefaultKs are the cutoffs reported by EvaluateRecommendations.
var DefaultKs = []int{5, 10, 20}

// SimilarityFunc returns the similarity of two items and whether it is known.
type SimilarityFunc func(a, b int) (float64, bool)

// ErrorMetrics summarizes rating prediction error on a held-out set.
type ErrorMetrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	N    int     `json:"n"`
}

func topK(recommended []int, k int) []int {
	if k <= 0 {
		return nil
	}
	if len(recommended) > k {
		return recommended[:k]
	}
	return recommended
}

func toSet(ids []int) map[int]struct{} {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func hits(top []int, relevant map[int]struct{}) int {
	var n int
	for _, id := range top {
		if _, ok := relevant[id]; ok {
			n++
		}
	}
	return n
}

// PrecisionAtK is the fraction of the top-k recommendations that are relevant.
// The denominator is min(k, len(recommended)).
func PrecisionAtK(recommended, relevant []int, k int) float64 {
	top := topK(recommended, k)
	if len(top) == 0 || len(relevant) == 0 {
		return 0
	}
	return float64(hits(top, toSet(relevant))) / float64(len(top))
}

// RecallAtK is the fraction of relevant items found in the top k.
func RecallAtK(recommended, relevant []int, k int) float64 {
	top := topK(recommended, k)
	rel := toSet(relevant)
	if len(top) == 0 || len(rel) == 0 {
		return 0
	}
	return float64(hits(top, rel)) / float64(len(rel))
}

// F1AtK is the harmonic mean of precision and recall at k.
func F1AtK(recommended, relevant []int, k int) float64 {
	p := PrecisionAtK(recommended, relevant, k)
	r := RecallAtK(recommended, relevant, k)
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// HitRateAtK is 1 when any of the top-k recommendations is relevant, else 0.
func HitRateAtK(recommended, relevant []int, k int) float64 {
	top := topK(recommended, k)
	if len(top) == 0 || len(relevant) == 0 {
		return 0
	}
	if hits(top, toSet(relevant)) > 0 {
		return 1
	}
	return 0
}

// MAPAtK is the average precision at each hit position in the top k,
// divided by min(|relevant|, k).
func MAPAtK(recommended, relevant []int, k int) float64 {
	top := topK(recommended, k)
	rel := toSet(relevant)
	if len(top) == 0 || len(rel) == 0 {
		return 0
	}

	var sum float64
	var found int
	for i, id := range top {
		if _, ok := rel[id]; ok {
			found++
			sum += float64(found) / float64(i+1)
		}
	}
	return sum / float64(min(len(rel), k))
}

// NDCGAtK is discounted cumulative gain at k normalized by the ideal ordering
// of the supplied relevance scores. Position i (0-based) is discounted by log2(i+2).
func NDCGAtK(recommended []int, relevance map[int]float64, k int) float64 {
	top := topK(recommended, k)
	if len(top) == 0 || len(relevance) == 0 {
		return 0
	}

	var dcg float64
	for i, id := range top {
		if rel, ok := relevance[id]; ok {
			dcg += rel / math.Log2(float64(i+2))
		}
	}

	ideal := make([]float64, 0, len(relevance))
	for _, rel := range relevance {
		ideal = append(ideal, rel)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ideal)))
	var idcg float64
	for i := 0; i < len(ideal) && i < k; i++ {
		idcg += ideal[i] / math.Log2(float64(i+2))
	}

	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// MRR is the reciprocal rank of the first relevant item anywhere in the list.
func MRR(recommended, relevant []int) float64 {
	rel := toSet(relevant)
	for i, id := range recommended {
		if _, ok := rel[id]; ok {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// Coverage is the fraction of the catalog recommended to at least one user.
func Coverage(lists [][]int, totalItems int) float64 {
	if totalItems <= 0 {
		return 0
	}
	seen := make(map[int]struct{})
	for _, list := range lists {
		for _, id := range list {
			seen[id] = struct{}{}
		}
	}
	return float64(len(seen)) / float64(totalItems)
}

// Diversity is the mean pairwise dissimilarity (1 - similarity) of a list.
// Pairs sim does not know are skipped.
func Diversity(recommended []int, sim SimilarityFunc) float64 {
	if len(recommended) < 2 || sim == nil {
		return 0
	}
	var sum float64
	var pairs int
	for i := 0; i < len(recommended); i++ {
		for j := i + 1; j < len(recommended); j++ {
			s, ok := sim(recommended[i], recommended[j])
			if !ok {
				continue
			}
			sum += 1 - s
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

// Novelty is the mean self-information -log2(p) of the recommended items.
// Popularity is clamped to [0.0001, 1]; unknown items use 0.01.
func Novelty(recommended []int, popularity map[int]float64) float64 {
	if len(recommended) == 0 {
		return 0
	}
	var sum float64
	for _, id := range recommended {
		p, ok := popularity[id]
		if !ok {
			p = defaultPopularity
		}
		p = math.Max(minPopularity, math.Min(maxPopularity, p))
		sum += -math.Log2(p)
	}
	return sum / float64(len(recommended))
}

// EvaluateRecommendations reports every ranking metric at each cutoff.
// Keys look like "precision@10"; "mrr" is reported once. NDCG is included
// only when relevance scores are supplied. With no ks, DefaultKs are used.
func EvaluateRecommendations(recommended, relevant []int, relevance map[int]float64, ks ...int) map[string]float64 {
	if len(ks) == 0 {
		ks = DefaultKs
	}
	out := make(map[string]float64, len(ks)*6+1)
	for _, k := range ks {
		out[fmt.Sprintf("precision@%d", k)] = PrecisionAtK(recommended, relevant, k)
		out[fmt.Sprintf("recall@%d", k)] = RecallAtK(recommended, relevant, k)
		out[fmt.Sprintf("f1@%d", k)] = F1AtK(recommended, relevant, k)
		out[fmt.Sprintf("hit_rate@%d", k)] = HitRateAtK(recommended, relevant, k)
		out[fmt.Sprintf("map@%d", k)] = MAPAtK(recommended, relevant, k)
		if len(relevance) > 0 {
			out[fmt.Sprintf("ndcg@%d", k)] = NDCGAtK(recommended, relevance, k)
		}
	}
	out["mrr"] = MRR(recommended, relevant)
	return out
}

// RMSE is the root mean squared error of predicted against actual.
// Mismatched or empty inputs return 0.
func RMSE(predicted, actual []float64) float64 {
	if len(predicted) == 0 || len(predicted) != len(actual) {
		return 0
	}
	var sum float64
	for i := range predicted {
		d := predicted[i] - actual[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(predicted)))
}

// MAE is the mean absolute error of predicted against actual.
// Mismatched or empty inputs return 0.
func MAE(predicted, actual []float64) float64 {
	if len(predicted) == 0 || len(predicted) != len(actual) {
		return 0
	}
	var sum float64
	for i := range predicted {
		sum += math.Abs(predicted[i] - actual[i])
	}
	return sum / float64(len(predicted))
}
