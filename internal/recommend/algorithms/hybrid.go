// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package algorithms

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/marquee/internal/recommend"
)

// LikedMoviesFunc returns the movies a user rated highly.
type LikedMoviesFunc func(userID string) []int

// contextRule scales one side of the blend when a request context matches.
type contextRule struct {
	matches       func(recommend.RequestContext) bool
	content       float64
	collaborative float64
}

func oneOf(value string, options ...string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, o := range options {
		if value == o {
			return true
		}
	}
	return false
}

// contextRules are applied in order, each as a multiplicative nudge.
var contextRules = []contextRule{
	{
		matches:       func(c recommend.RequestContext) bool { return oneOf(c.TimeOfDay, "evening", "night") },
		content:       0.8,
		collaborative: 1.2,
	},
	{
		matches:       func(c recommend.RequestContext) bool { return oneOf(c.Mood, "adventurous", "discover") },
		content:       1.3,
		collaborative: 0.7,
	},
	{
		matches:       func(c recommend.RequestContext) bool { return oneOf(c.Mood, "comfort", "familiar") },
		content:       0.7,
		collaborative: 1.3,
	},
	{
		matches:       func(c recommend.RequestContext) bool { return oneOf(c.Device, "mobile") },
		content:       0.9,
		collaborative: 1.1,
	},
}

// AdjustForContext applies every matching context rule to w and renormalizes.
func AdjustForContext(w recommend.Weights, ctx recommend.RequestContext) recommend.Weights {
	if ctx.IsZero() {
		return w
	}
	for _, rule := range contextRules {
		if rule.matches(ctx) {
			w.Content *= rule.content
			w.Collaborative *= rule.collaborative
		}
	}
	return w.Normalize()
}

// Hybrid fuses one snapshot's collaborative and content models using the
// per-user blends held in a shared WeightBook. The models are read-only; the
// book outlives the snapshot so learned blends survive retraining.
type Hybrid struct {
	collab  *Collaborative
	content *Content
	weights *WeightBook
	liked   LikedMoviesFunc
	logger  zerolog.Logger
}

// NewHybrid binds the models to a weight book. liked may be nil, in which
// case content candidates are never produced.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHybrid(collab *Collaborative, content *Content, weights *WeightBook, liked LikedMoviesFunc, logger zerolog.Logger) *Hybrid {
	if liked == nil {
		liked = func(string) []int { return nil }
	}
	return &Hybrid{
		collab:  collab,
		content: content,
		weights: weights,
		liked:   liked,
		logger:  logger.With().Str("component", "hybrid").Logger(),
	}
}

// WeightsFor returns the blend a request would use before context rules.
// Global weights apply when adaptive is false or the user has no record.
func (h *Hybrid) WeightsFor(userID string, adaptive bool) recommend.Weights {
	if !adaptive {
		return h.weights.Global()
	}
	w, _ := h.weights.Weights(userID)
	return w
}

// Recommend returns up to n movies ranked by the weighted sum of collaborative
// and content scores.
//
// Each model contributes up to 2n candidates, never one the user already
// rated. A movie ranked by only one model keeps only that model's weighted score.
func (h *Hybrid) Recommend(userID string, n int, adaptive bool, ctx recommend.RequestContext) []recommend.ScoredMovie {
	if n <= 0 {
		return []recommend.ScoredMovie{}
	}

	var collabRecs, contentRecs []recommend.ScoredMovie
	if h.collab != nil {
		collabRecs = h.collab.HybridRecommendations(userID, 2*n)
	}
	if h.content != nil {
		contentRecs = h.content.RecommendForUser(h.liked(userID), 2*n)
		if h.collab != nil {
			contentRecs = WithoutRated(contentRecs, h.collab.RatedMovies(userID))
		}
	}

	w := AdjustForContext(h.WeightsFor(userID, adaptive), ctx)

	combined := make(map[int]float64, len(collabRecs)+len(contentRecs))
	blendInto(combined, collabRecs, w.Collaborative)
	blendInto(combined, contentRecs, w.Content)

	h.logger.Debug().
		Str("user_id", userID).
		Int("collaborative", len(collabRecs)).
		Int("content", len(contentRecs)).
		Float64("content_weight", w.Content).
		Msg("Hybrid candidates combined")
	return rankScores(combined, n)
}

// UpdateWeights feeds user feedback into the shared weight book.
func (h *Hybrid) UpdateWeights(userID string, recommended []int, feedback map[int]float64, method recommend.FeedbackMethod) (recommend.Weights, error) {
	return h.weights.Update(userID, recommended, feedback, method)
}

// Explanation describes which side dominates the user's blend.
func (h *Hybrid) Explanation(userID string) string {
	return h.weights.Explanation(userID)
}
