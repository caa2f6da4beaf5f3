// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package feed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestJSONProviderRatings(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "array",
			content: `[
				{"user_id": "u1", "movie_id": 10, "rating": 4.5, "timestamp": 1700000000},
				{"user_id": 7, "movie_id": 11, "rating": 2, "timestamp": "2023-11-14T22:13:20Z"}
			]`,
		},
		{
			name: "lines",
			content: `{"user_id": "u1", "movie_id": 10, "rating": 4.5, "timestamp": 1700000000}

{"user_id": 7, "movie_id": 11, "rating": 2, "timestamp": "2023-11-14T22:13:20Z"}
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewJSONProvider(writeFile(t, "ratings.json", tt.content), "")
			got, err := p.Ratings(context.Background())
			if err != nil {
				t.Fatalf("Ratings() error = %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("len = %d, want 2", len(got))
			}
			if got[0].UserID != "u1" || got[0].MovieID != 10 || got[0].Value != 4.5 {
				t.Errorf("first = %+v", got[0])
			}
			if got[1].UserID != "7" {
				t.Errorf("numeric user id = %q, want \"7\"", got[1].UserID)
			}
			want := time.Unix(1700000000, 0).UTC()
			for i, r := range got {
				if !r.Timestamp.Equal(want) {
					t.Errorf("rating %d timestamp = %v, want %v", i, r.Timestamp, want)
				}
			}
		})
	}
}

func TestJSONProviderMovies(t *testing.T) {
	content := `[
		{"id": 1, "title": "Alien", "overview": "In space.", "genres": [{"id": 27, "name": "Horror"}, {"id": 878, "name": "Science Fiction"}],
		 "popularity": 40.5, "vote_average": 8.1, "vote_count": 12000, "runtime": 117, "release_date": "1979-05-25"},
		{"id": 2, "title": "Amelie", "genres": ["Comedy", "Romance"]},
		{"id": 3, "title": "Heat", "genres": "Action|Crime"}
	]`
	p := NewJSONProvider("", writeFile(t, "movies.json", content))
	got, err := p.Movies(context.Background())
	if err != nil {
		t.Fatalf("Movies() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	wantGenres := [][]string{
		{"Horror", "Science Fiction"},
		{"Comedy", "Romance"},
		{"Action", "Crime"},
	}
	for i, m := range got {
		if !slices.Equal(m.Genres, wantGenres[i]) {
			t.Errorf("movie %d genres = %v, want %v", m.ID, m.Genres, wantGenres[i])
		}
	}
	if got[0].Runtime != 117 || got[0].Year() != 1979 || got[0].VoteCount != 12000 {
		t.Errorf("metadata not decoded: %+v", got[0])
	}
}

func TestJSONProviderErrors(t *testing.T) {
	t.Run("no path", func(t *testing.T) {
		_, err := NewJSONProvider("", "").Ratings(context.Background())
		if !errors.Is(err, ErrSourceMissing) {
			t.Errorf("error = %v, want ErrSourceMissing", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		p := NewJSONProvider(filepath.Join(t.TempDir(), "absent.json"), "")
		if _, err := p.Ratings(context.Background()); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("error = %v, want not-exist", err)
		}
	})

	t.Run("bad line", func(t *testing.T) {
		path := writeFile(t, "ratings.json", "{\"user_id\": \"u\", \"movie_id\": 1, \"rating\": 3}\n{not json}\n")
		_, err := NewJSONProvider(path, "").Ratings(context.Background())
		if !errors.Is(err, ErrBadRecord) {
			t.Errorf("error = %v, want ErrBadRecord", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		path := writeFile(t, "ratings.json", "[]")
		if _, err := NewJSONProvider(path, "").Ratings(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, "ratings.json", "  \n")
		got, err := NewJSONProvider(path, "").Ratings(context.Background())
		if err != nil || len(got) != 0 {
			t.Errorf("Ratings() = %v, %v, want empty", got, err)
		}
	})
}
