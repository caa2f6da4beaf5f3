// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package recommend

import (
	"errors"
	"math"
	"testing"
	"time"
)

func sampleMovies(ids ...int) []Movie {
	out := make([]Movie, 0, len(ids))
	for _, id := range ids {
		out = append(out, Movie{ID: id, Title: "movie"})
	}
	return out
}

func TestBuildMatrix(t *testing.T) {
	ratings := []Rating{
		{UserID: "u2", MovieID: 30, Value: 4},
		{UserID: "u1", MovieID: 10, Value: 5},
		{UserID: "u1", MovieID: 20, Value: 4},
		{UserID: "u3", MovieID: 20, Value: 2},
	}

	m, err := BuildMatrix(ratings, sampleMovies(10, 20, 30))
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}

	t.Run("one row per user and one column per movie", func(t *testing.T) {
		if m.Rows() != 3 {
			t.Errorf("Rows() = %d, want 3", m.Rows())
		}
		if m.Cols() != 3 {
			t.Errorf("Cols() = %d, want 3", m.Cols())
		}
		if m.NumRatings() != 4 {
			t.Errorf("NumRatings() = %d, want 4", m.NumRatings())
		}
	})

	t.Run("indexes are sorted", func(t *testing.T) {
		wantUsers := []string{"u1", "u2", "u3"}
		for i, u := range m.UserIDs() {
			if u != wantUsers[i] {
				t.Errorf("UserIDs()[%d] = %s, want %s", i, u, wantUsers[i])
			}
		}
		wantMovies := []int{10, 20, 30}
		for j, id := range m.MovieIDs() {
			if id != wantMovies[j] {
				t.Errorf("MovieIDs()[%d] = %d, want %d", j, id, wantMovies[j])
			}
		}
	})

	t.Run("unrated cells are zero", func(t *testing.T) {
		u2, _ := m.UserIndex("u2")
		c10, _ := m.MovieIndex(10)
		if got := m.At(u2, c10); got != 0 {
			t.Errorf("At(u2, 10) = %f, want 0", got)
		}
		c30, _ := m.MovieIndex(30)
		if got := m.At(u2, c30); got != 4 {
			t.Errorf("At(u2, 30) = %f, want 4", got)
		}
	})

	t.Run("statistics", func(t *testing.T) {
		u1, _ := m.UserIndex("u1")
		if got := m.UserMean(u1); got != 4.5 {
			t.Errorf("UserMean(u1) = %f, want 4.5", got)
		}
		c20, _ := m.MovieIndex(20)
		if got := m.MovieMean(c20); got != 3 {
			t.Errorf("MovieMean(20) = %f, want 3", got)
		}
		if got := m.RatedBy(c20); got != 2 {
			t.Errorf("RatedBy(20) = %d, want 2", got)
		}
	})
}

func TestBuildMatrix_Deterministic(t *testing.T) {
	ratings := []Rating{
		{UserID: "b", MovieID: 2, Value: 3},
		{UserID: "a", MovieID: 1, Value: 5},
		{UserID: "c", MovieID: 3, Value: 1},
		{UserID: "a", MovieID: 3, Value: 2},
	}
	reversed := make([]Rating, len(ratings))
	for i := range ratings {
		reversed[len(ratings)-1-i] = ratings[i]
	}

	m1, err := BuildMatrix(ratings, sampleMovies(1, 2, 3))
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	m2, err := BuildMatrix(reversed, sampleMovies(3, 2, 1))
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}

	v1, v2 := m1.Values(), m2.Values()
	if len(v1) != len(v2) {
		t.Fatalf("len(Values()) = %d and %d, want equal", len(v1), len(v2))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Errorf("Values()[%d] = %f and %f, want equal", i, v1[i], v2[i])
		}
	}
}

func TestBuildMatrix_Duplicates(t *testing.T) {
	now := time.Now()
	ratings := []Rating{
		{UserID: "u", MovieID: 1, Value: 2, Timestamp: now},
		{UserID: "u", MovieID: 1, Value: 5, Timestamp: now.Add(-time.Hour)},
		{UserID: "u", MovieID: 2, Value: 1},
		{UserID: "u", MovieID: 2, Value: 3},
		{UserID: "u", MovieID: 2, Value: 2},
	}

	m, err := BuildMatrix(ratings, sampleMovies(1, 2))
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	if got := m.At(0, 0); got != 2 {
		t.Errorf("newest rating should win: At(0, 0) = %f, want 2", got)
	}
	if got := m.At(0, 1); got != 3 {
		t.Errorf("higher value should win ties: At(0, 1) = %f, want 3", got)
	}

	reversed := make([]Rating, len(ratings))
	for i := range ratings {
		reversed[len(ratings)-1-i] = ratings[i]
	}
	m2, err := BuildMatrix(reversed, sampleMovies(1, 2))
	if err != nil {
		t.Fatalf("BuildMatrix(reversed) error = %v", err)
	}
	if got := m2.At(0, 1); got != 3 {
		t.Errorf("reversed feed: At(0, 1) = %f, want 3", got)
	}
	if m.NumRatings() != 2 {
		t.Errorf("NumRatings() = %d, want 2", m.NumRatings())
	}
}

func TestBuildMatrix_Errors(t *testing.T) {
	tests := []struct {
		name    string
		ratings []Rating
		movies  []Movie
		wantErr error
	}{
		{"no ratings", nil, sampleMovies(1), ErrNoRatings},
		{"no movies", []Rating{{UserID: "u", MovieID: 1, Value: 3}}, nil, ErrNoMovies},
		{"zero rating", []Rating{{UserID: "u", MovieID: 1, Value: 0}}, sampleMovies(1), ErrInvalidRating},
		{"above scale", []Rating{{UserID: "u", MovieID: 1, Value: 5.5}}, sampleMovies(1), ErrInvalidRating},
		{"NaN rating", []Rating{{UserID: "u", MovieID: 1, Value: math.NaN()}}, sampleMovies(1), ErrInvalidRating},
		{"infinite rating", []Rating{{UserID: "u", MovieID: 1, Value: math.Inf(1)}}, sampleMovies(1), ErrInvalidRating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildMatrix(tt.ratings, tt.movies)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("BuildMatrix() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewRatingMatrix(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		m, err := NewRatingMatrix([]string{"a", "b"}, []int{1, 2}, []float64{5, 0, 0, 3})
		if err != nil {
			t.Fatalf("NewRatingMatrix() error = %v", err)
		}
		if m.NumRatings() != 2 {
			t.Errorf("NumRatings() = %d, want 2", m.NumRatings())
		}
		if j, ok := m.MovieIndex(2); !ok || j != 1 {
			t.Errorf("MovieIndex(2) = %d, %v, want 1, true", j, ok)
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		if _, err := NewRatingMatrix([]string{"a"}, []int{1, 2}, []float64{5}); err == nil {
			t.Error("NewRatingMatrix() error = nil, want shape error")
		}
	})

	t.Run("unsorted index", func(t *testing.T) {
		if _, err := NewRatingMatrix([]string{"b", "a"}, []int{1}, []float64{5, 4}); err == nil {
			t.Error("NewRatingMatrix() error = nil, want ordering error")
		}
	})
}

func TestRatingMatrix_RatedMovies(t *testing.T) {
	ratings := []Rating{
		{UserID: "u1", MovieID: 1, Value: 5},
		{UserID: "u1", MovieID: 3, Value: 1},
		{UserID: "u2", MovieID: 2, Value: 2},
	}
	m, err := BuildMatrix(ratings, sampleMovies(1, 2, 3))
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}

	tests := []struct {
		user string
		want []int
	}{
		{"u1", []int{1, 3}},
		{"u2", []int{2}},
		{"stranger", nil},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			got := m.RatedMovies(tt.user)
			if len(got) != len(tt.want) {
				t.Fatalf("RatedMovies(%q) = %v, want %v", tt.user, got, tt.want)
			}
			for _, id := range tt.want {
				if _, ok := got[id]; !ok {
					t.Errorf("RatedMovies(%q) missing %d", tt.user, id)
				}
			}
		})
	}
}

func TestRatingMatrix_LikedMovies(t *testing.T) {
	ratings := []Rating{
		{UserID: "u1", MovieID: 1, Value: 5},
		{UserID: "u1", MovieID: 2, Value: 3},
		{UserID: "u1", MovieID: 3, Value: 4},
		{UserID: "u2", MovieID: 2, Value: 2},
	}
	m, err := BuildMatrix(ratings, sampleMovies(1, 2, 3))
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}

	liked := m.LikedMovies(4.0)
	if got := liked["u1"]; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("LikedMovies()[u1] = %v, want [1 3]", got)
	}
	if _, ok := liked["u2"]; ok {
		t.Errorf("LikedMovies()[u2] present, want absent")
	}
}
