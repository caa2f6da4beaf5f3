// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package reranking

import (
	"context"
	"math"

	"github.com/tomtom215/marquee/internal/recommend"
)

// Calibrated attributes.
const (
	AttributeGenre  = "genre"
	AttributeDecade = "decade"
)

// Distribution maps attribute to value to share. Each inner map sums to 1.
type Distribution map[string]map[string]float64

// MovieFunc resolves a movie id to catalog metadata.
type MovieFunc func(id int) (recommend.Movie, bool)

// CalibrationConfig configures Calibration.
type CalibrationConfig struct {
	// Lambda balances relevance (1) against calibration (0).
	Lambda float64

	// Weights per attribute. Empty means genre only.
	Weights map[string]float64
}

// DefaultCalibrationConfig weighs genre fully and decade lightly.
func DefaultCalibrationConfig() CalibrationConfig {
	return CalibrationConfig{
		Lambda:  0.7,
		Weights: map[string]float64{AttributeGenre: 1.0, AttributeDecade: 0.3},
	}
}

// Calibration reranks so the list's attribute mix follows a target profile.
//
// Reference: Steck, "Calibrated Recommendations", RecSys 2018.
type Calibration struct {
	lambda  float64
	weights map[string]float64
	target  Distribution
	movies  MovieFunc
}

// NewCalibration creates a calibration reranker toward target.
func NewCalibration(cfg CalibrationConfig, target Distribution, movies MovieFunc) *Calibration {
	weights := cfg.Weights
	if len(weights) == 0 {
		weights = map[string]float64{AttributeGenre: 1.0}
	}
	return &Calibration{
		lambda:  clampLambda(cfg.Lambda),
		weights: weights,
		target:  target,
		movies:  movies,
	}
}

// Name returns "calibration".
func (c *Calibration) Name() string {
	return "calibration"
}

// Profile builds the attribute distribution of a set of movies.
func Profile(movies []recommend.Movie) Distribution {
	counts := Distribution{
		AttributeGenre:  {},
		AttributeDecade: {},
	}
	for i := range movies {
		addMovie(counts, &movies[i])
	}
	for _, dist := range counts {
		normalize(dist)
	}
	return counts
}

func addMovie(counts Distribution, m *recommend.Movie) {
	for _, g := range m.Genres {
		counts[AttributeGenre][g]++
	}
	if y := m.Year(); y > 0 {
		counts[AttributeDecade][decadeBucket(y)]++
	}
}

// Rerank greedily selects k candidates. Without a target profile or a
// movie lookup it returns the top k unchanged.
func (c *Calibration) Rerank(ctx context.Context, items []recommend.ScoredMovie, k int) []recommend.ScoredMovie {
	if len(items) == 0 || k <= 0 {
		return []recommend.ScoredMovie{}
	}
	k = boundK(k, len(items))
	if c.lambda >= 1 || c.movies == nil || !c.hasTarget() {
		return append([]recommend.ScoredMovie(nil), items[:k]...)
	}

	rel := normalizedRelevance(items)
	meta := make([]*recommend.Movie, len(items))
	for i, it := range items {
		if m, ok := c.movies(it.MovieID); ok {
			meta[i] = &m
		}
	}

	counts := Distribution{AttributeGenre: {}, AttributeDecade: {}}
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
			score := c.lambda*rel[i] + (1-c.lambda)*c.scoreWith(counts, meta[i])
			if best < 0 || score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		picked[best] = true
		out = append(out, items[best])
		if meta[best] != nil {
			addMovie(counts, meta[best])
		}
	}
	return out
}

func (c *Calibration) hasTarget() bool {
	for attr := range c.weights {
		if len(c.target[attr]) > 0 {
			return true
		}
	}
	return false
}

// scoreWith returns the calibration score of the list counts plus m.
func (c *Calibration) scoreWith(counts Distribution, m *recommend.Movie) float64 {
	trial := Distribution{}
	for attr, dist := range counts {
		cp := make(map[string]float64, len(dist)+2)
		for k, v := range dist {
			cp[k] = v
		}
		trial[attr] = cp
	}
	if m != nil {
		addMovie(trial, m)
	}
	for _, dist := range trial {
		normalize(dist)
	}
	return c.calibrationScore(trial)
}

// calibrationScore is the weighted mean of 1 - min(KL(target || dist), 1).
func (c *Calibration) calibrationScore(dist Distribution) float64 {
	var total, weight float64
	for attr, w := range c.weights {
		target := c.target[attr]
		got := dist[attr]
		if len(target) == 0 || len(got) == 0 {
			continue
		}
		total += w * (1 - math.Min(klDivergence(target, got), 1))
		weight += w
	}
	if weight == 0 {
		return 0.5
	}
	return total / weight
}

// klDivergence computes KL(p || q) with q smoothed away from zero.
func klDivergence(p, q map[string]float64) float64 {
	const epsilon = 1e-10
	var kl float64
	for key, pv := range p {
		if pv <= 0 {
			continue
		}
		qv := q[key]
		if qv <= 0 {
			qv = epsilon
		}
		kl += pv * math.Log(pv/qv)
	}
	return kl
}

func normalize(dist map[string]float64) {
	var total float64
	for _, v := range dist {
		total += v
	}
	if total <= 0 {
		return
	}
	for k := range dist {
		dist[k] /= total
	}
}

func decadeBucket(year int) string {
	switch decade := year / 10 * 10; {
	case decade >= 2020:
		return "2020s"
	case decade >= 2010:
		return "2010s"
	case decade >= 2000:
		return "2000s"
	case decade >= 1990:
		return "1990s"
	case decade >= 1980:
		return "1980s"
	default:
		return "pre-1980"
	}
}

var _ Reranker = (*Calibration)(nil)
