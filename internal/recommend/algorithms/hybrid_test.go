// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package algorithms

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/marquee/internal/recommend"
)

func TestAdjustForContext(t *testing.T) {
	base := recommend.DefaultWeights()

	tests := []struct {
		name        string
		ctx         recommend.RequestContext
		wantContent float64
	}{
		{"no context", recommend.RequestContext{}, 0.5},
		{"evening favors collaborative", recommend.RequestContext{TimeOfDay: "evening"}, 0.4},
		{"adventurous favors content", recommend.RequestContext{Mood: "Adventurous"}, 0.65},
		{"comfort favors collaborative", recommend.RequestContext{Mood: "comfort"}, 0.35},
		{"mobile favors collaborative", recommend.RequestContext{Device: "mobile"}, 0.45},
		{"unknown values are ignored", recommend.RequestContext{TimeOfDay: "noon", Device: "tv"}, 0.5},
		{"rules compose", recommend.RequestContext{TimeOfDay: "night", Mood: "discover"}, 0.52 / (0.52 + 0.42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdjustForContext(base, tt.ctx)
			if math.Abs(got.Content-tt.wantContent) > 1e-9 {
				t.Errorf("Content = %f, want %f", got.Content, tt.wantContent)
			}
			if math.Abs(got.Content+got.Collaborative-1) > 1e-9 {
				t.Errorf("weights sum to %f, want 1", got.Content+got.Collaborative)
			}
		})
	}
}

func testHybrid(t *testing.T, book *WeightBook) (*Hybrid, *Content) {
	t.Helper()
	collab := fittedCollaborative(t, gemRatings())
	content := fittedContent(t, true)
	liked := func(user string) []int {
		if user == "u1" {
			return []int{1, 2}
		}
		return nil
	}
	return NewHybrid(collab, content, book, liked, zerolog.Nop()), content
}

func TestHybrid_Recommend(t *testing.T) {
	book := NewWeightBook(weightConfig(0), zerolog.Nop())
	h, content := testHybrid(t, book)

	recs := h.Recommend("u1", 3, true, recommend.RequestContext{})
	if len(recs) != 3 {
		t.Fatalf("Recommend(u1, 3) = %+v, want 3", recs)
	}
	for i, r := range recs {
		if r.MovieID == 1 || r.MovieID == 2 {
			t.Errorf("Recommend returned liked movie %d", r.MovieID)
		}
		if i > 0 && recs[i-1].Score < r.Score {
			t.Errorf("Recommend not sorted: %+v", recs)
		}
	}

	// Movie 5 is only in the content catalog, so it keeps only the content term
	var contentScore float64
	for _, r := range content.RecommendForUser([]int{1, 2}, 6) {
		if r.MovieID == 5 {
			contentScore = r.Score
		}
	}
	for _, r := range recs {
		if r.MovieID == 5 && math.Abs(r.Score-0.5*contentScore) > 1e-12 {
			t.Errorf("movie 5 score = %f, want %f", r.Score, 0.5*contentScore)
		}
	}

	if got := h.Recommend("nobody", 5, true, recommend.RequestContext{}); len(got) != 0 {
		t.Errorf("Recommend(nobody) = %+v, want empty", got)
	}
	if got := h.Recommend("u1", 0, true, recommend.RequestContext{}); len(got) != 0 {
		t.Errorf("Recommend(n=0) = %+v, want empty", got)
	}
}

func TestHybrid_RecommendSkipsRated(t *testing.T) {
	book := NewWeightBook(weightConfig(0), zerolog.Nop())
	collab := fittedCollaborative(t, gemRatings())
	content := fittedContent(t, true)
	// u3 liked 2 and 3 but rated 4 at 1.0; 4 is content-similar to 3.
	liked := func(user string) []int {
		if user == "u3" {
			return []int{2, 3}
		}
		return nil
	}
	h := NewHybrid(collab, content, book, liked, zerolog.Nop())

	recs := h.Recommend("u3", 5, true, recommend.RequestContext{})
	for _, r := range recs {
		if _, ok := collab.RatedMovies("u3")[r.MovieID]; ok {
			t.Errorf("Recommend(u3) returned rated movie %d: %+v", r.MovieID, recs)
		}
	}
}

func TestWithoutRated(t *testing.T) {
	recs := []recommend.ScoredMovie{{MovieID: 3, Score: 0.9}, {MovieID: 4, Score: 0.5}, {MovieID: 5, Score: 0.1}}

	got := WithoutRated(recs, map[int]struct{}{4: {}})
	if len(got) != 2 || got[0].MovieID != 3 || got[1].MovieID != 5 {
		t.Errorf("WithoutRated() = %+v, want [3 5]", got)
	}
	if recs[1].MovieID != 4 {
		t.Errorf("WithoutRated() modified its input: %+v", recs)
	}
	if got := WithoutRated(recs, nil); len(got) != 3 {
		t.Errorf("WithoutRated(nil) = %+v, want input unchanged", got)
	}
}

func TestHybrid_AdaptiveWeights(t *testing.T) {
	book := NewWeightBook(weightConfig(0), zerolog.Nop())
	h, _ := testHybrid(t, book)

	if _, err := h.UpdateWeights("u1", []int{3}, map[int]float64{3: 5}, recommend.FeedbackGradient); err != nil {
		t.Fatalf("UpdateWeights() error = %v", err)
	}

	if got := h.WeightsFor("u1", true); math.Abs(got.Content-0.6) > 1e-12 {
		t.Errorf("adaptive WeightsFor(u1) = %+v, want content 0.6", got)
	}
	if got := h.WeightsFor("u1", false); got != recommend.DefaultWeights() {
		t.Errorf("non-adaptive WeightsFor(u1) = %+v, want global", got)
	}
	if got := h.WeightsFor("u9", true); got != recommend.DefaultWeights() {
		t.Errorf("WeightsFor(unseen) = %+v, want global", got)
	}
	if got := h.Explanation("u1"); got == "" {
		t.Error("Explanation(u1) is empty")
	}
}
