// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package algorithms

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/marquee/internal/recommend"
)

func contentCatalog() []recommend.Movie {
	return []recommend.Movie{
		{ID: 5, Overview: "Space robots return", Genres: []string{"Sci-Fi"}, Popularity: 12, VoteAverage: 6.1, VoteCount: 90, Runtime: 101, ReleaseDate: "2019-05-01"},
		{ID: 1, Overview: "A space adventure with robots", Genres: []string{"Sci-Fi", "Adventure"}, Popularity: 40, VoteAverage: 7.5, VoteCount: 2000, Runtime: 130, ReleaseDate: "2014-11-07", Budget: 1e8, Revenue: 6e8},
		{ID: 2, Overview: "Robots fight in a space war", Genres: []string{"Sci-Fi", "Action"}, Popularity: 35, VoteAverage: 6.8, VoteCount: 1500, Runtime: 120, ReleaseDate: "2016-06-01"},
		{ID: 3, Overview: "A romantic comedy in Paris", Genres: []string{"Romance", "Comedy"}, Popularity: 8, VoteAverage: 7.0, VoteCount: 300, Runtime: 95, ReleaseDate: "2004-02-14"},
		{ID: 4, Overview: "Comedy about love in Paris", Genres: []string{"Romance", "Comedy"}, Popularity: 9, VoteAverage: 6.5, VoteCount: 250, Runtime: 98, ReleaseDate: ""},
	}
}

func fittedContent(t *testing.T, combined bool) *Content {
	t.Helper()
	c := NewContent(nil, zerolog.Nop())
	if err := c.Prepare(contentCatalog()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := c.Fit(combined); err != nil {
		t.Fatalf("Fit(%v) error = %v", combined, err)
	}
	return c
}

func TestAnalyze(t *testing.T) {
	got := analyze("The Dark Knight rises!")
	want := []string{"dark", "knight", "rises", "dark knight", "knight rises"}
	if len(got) != len(want) {
		t.Fatalf("analyze() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("analyze()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := analyze("a I of"); len(got) != 0 {
		t.Errorf("analyze(stop words) = %q, want empty", got)
	}
}

func TestFitTFIDF(t *testing.T) {
	docs := []string{
		"space adventure robots",
		"robots fight space war",
		"romantic comedy paris",
		"comedy love paris",
		"space robots return",
	}
	model := fitTFIDF(docs, tfidfOptions{maxFeatures: 5000, minDF: 2, maxDF: 0.8})

	wantVocab := []string{"comedy", "paris", "robots", "space"}
	if len(model.vocabulary) != len(wantVocab) {
		t.Fatalf("vocabulary = %q, want %q", model.vocabulary, wantVocab)
	}
	for i := range wantVocab {
		if model.vocabulary[i] != wantVocab[i] {
			t.Errorf("vocabulary[%d] = %q, want %q", i, model.vocabulary[i], wantVocab[i])
		}
	}

	for d := range docs {
		if n := floats.Norm(model.matrix.RawRowView(d), 2); math.Abs(n-1) > 1e-9 {
			t.Errorf("row %d norm = %f, want 1", d, n)
		}
	}

	capped := fitTFIDF(docs, tfidfOptions{maxFeatures: 2, minDF: 2, maxDF: 0.8})
	if len(capped.vocabulary) != 2 {
		t.Errorf("capped vocabulary = %q, want 2 terms", capped.vocabulary)
	}

	strict := fitTFIDF(docs, tfidfOptions{maxFeatures: 10, minDF: 2, maxDF: 0.2})
	if strict.matrix != nil || len(strict.vocabulary) != 0 {
		t.Errorf("max_df=0.2 vocabulary = %q, want empty", strict.vocabulary)
	}
}

func TestContent_Prepare(t *testing.T) {
	c := NewContent(nil, zerolog.Nop())
	if err := c.Prepare(nil); !errors.Is(err, recommend.ErrNoMovies) {
		t.Errorf("Prepare(nil) error = %v, want ErrNoMovies", err)
	}
	if err := c.BuildTFIDF(); !errors.Is(err, ErrNotPrepared) {
		t.Errorf("BuildTFIDF() before Prepare error = %v, want ErrNotPrepared", err)
	}

	if err := c.Prepare(contentCatalog()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	ids := c.MovieIDs()
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("MovieIDs() = %v, want ascending", ids)
		}
	}
}

func TestContent_Movie(t *testing.T) {
	c := fittedContent(t, true)
	m, ok := c.Movie(3)
	if !ok || m.Overview != "A romantic comedy in Paris" {
		t.Errorf("Movie(3) = %+v, %v", m, ok)
	}
	if _, ok := c.Movie(99); ok {
		t.Error("Movie(99) ok = true, want false")
	}
}

func TestContent_Similar(t *testing.T) {
	for _, combined := range []bool{true, false} {
		c := fittedContent(t, combined)

		similar := c.Similar(1, 2)
		if len(similar) != 2 {
			t.Fatalf("combined=%v Similar(1, 2) = %+v, want 2", combined, similar)
		}
		got := map[int]bool{similar[0].MovieID: true, similar[1].MovieID: true}
		if !got[2] || !got[5] {
			t.Errorf("combined=%v Similar(1) = %+v, want movies 2 and 5", combined, similar)
		}
		if similar[0].Score < similar[1].Score {
			t.Errorf("combined=%v Similar(1) not sorted: %+v", combined, similar)
		}

		for _, r := range c.Similar(3, 10) {
			if r.MovieID == 3 {
				t.Errorf("combined=%v Similar(3) includes itself", combined)
			}
		}
		if top := c.Similar(3, 1); len(top) != 1 || top[0].MovieID != 4 {
			t.Errorf("combined=%v Similar(3, 1) = %+v, want movie 4", combined, top)
		}
		if got := c.Similar(999, 3); len(got) != 0 {
			t.Errorf("Similar(unknown) = %+v, want empty", got)
		}
	}
}

func TestContent_SimilarityMatrix(t *testing.T) {
	c := fittedContent(t, true)
	ids := c.MovieIDs()
	for _, a := range ids {
		self, ok := c.Similarity(a, a)
		if !ok || self != 1 {
			t.Errorf("Similarity(%d, %d) = %f, want 1", a, a, self)
		}
		for _, b := range ids {
			ab, _ := c.Similarity(a, b)
			ba, _ := c.Similarity(b, a)
			if math.Abs(ab-ba) > 1e-12 {
				t.Errorf("Similarity(%d, %d) = %f but reverse = %f", a, b, ab, ba)
			}
			if ab < -1 || ab > 1 {
				t.Errorf("Similarity(%d, %d) = %f outside [-1, 1]", a, b, ab)
			}
		}
	}
	if _, ok := c.Similarity(1, 999); ok {
		t.Error("Similarity(1, unknown) ok = true")
	}
}

func TestContent_Metadata(t *testing.T) {
	c := fittedContent(t, true)
	column := make([]float64, len(c.movies))
	for j := 0; j < metadataFeatures; j++ {
		mat.Col(column, j, c.metadata)
		var sum float64
		for _, v := range column {
			sum += v
		}
		if math.Abs(sum) > 1e-9 {
			t.Errorf("metadata column %d sums to %f, want 0", j, sum)
		}
	}
}

func TestContent_RecommendForUser(t *testing.T) {
	c := fittedContent(t, true)

	recs := c.RecommendForUser([]int{1}, 4)
	if len(recs) != 4 {
		t.Fatalf("RecommendForUser([1], 4) = %+v, want 4", recs)
	}
	for _, r := range recs {
		if r.MovieID == 1 {
			t.Error("RecommendForUser returned a liked movie")
		}
	}

	// Unknown liked ids still count toward the average
	halved := c.RecommendForUser([]int{1, 999}, 4)
	for i := range recs {
		if halved[i].MovieID != recs[i].MovieID || math.Abs(halved[i].Score-recs[i].Score/2) > 1e-12 {
			t.Errorf("RecommendForUser([1, 999])[%d] = %+v, want half of %+v", i, halved[i], recs[i])
		}
	}

	if got := c.RecommendForUser([]int{999}, 4); len(got) != 0 {
		t.Errorf("RecommendForUser(unknown) = %+v, want empty", got)
	}
	if got := c.RecommendForUser(nil, 4); len(got) != 0 {
		t.Errorf("RecommendForUser(nil) = %+v, want empty", got)
	}
}

func TestContent_NoText(t *testing.T) {
	movies := contentCatalog()
	for i := range movies {
		movies[i].Overview = ""
	}
	c := NewContent(nil, zerolog.Nop())
	if err := c.Prepare(movies); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := c.BuildTFIDF(); err != nil {
		t.Fatalf("BuildTFIDF() with empty overviews error = %v", err)
	}
	if err := c.ComputeSimilarity(false); !errors.Is(err, ErrNoTextFeatures) {
		t.Errorf("ComputeSimilarity(false) error = %v, want ErrNoTextFeatures", err)
	}
	if err := c.Fit(true); err != nil {
		t.Errorf("Fit(true) without text error = %v", err)
	}
	if top := c.Similar(3, 1); len(top) != 1 || top[0].MovieID != 4 {
		t.Errorf("genre and metadata Similar(3, 1) = %+v, want movie 4", top)
	}
}

func TestContent_SnapshotRestore(t *testing.T) {
	c := fittedContent(t, true)

	state, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	restored, err := RestoreContent(state, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("RestoreContent() error = %v", err)
	}

	for _, a := range c.MovieIDs() {
		for _, b := range c.MovieIDs() {
			want, _ := c.Similarity(a, b)
			got, _ := restored.Similarity(a, b)
			if math.Abs(got-want) > 1e-12 {
				t.Errorf("restored Similarity(%d, %d) = %f, want %f", a, b, got, want)
			}
		}
	}

	state.Metadata = state.Metadata[:3]
	if _, err := RestoreContent(state, nil, zerolog.Nop()); err == nil {
		t.Error("RestoreContent() with truncated metadata: expected error")
	}

	if _, err := NewContent(nil, zerolog.Nop()).Snapshot(); !errors.Is(err, ErrNotPrepared) {
		t.Errorf("Snapshot() unfitted error = %v, want ErrNotPrepared", err)
	}
}
