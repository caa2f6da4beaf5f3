// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package feed

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/recommend"
)

var (
	// ErrSourceMissing is returned when a provider has no location for a feed.
	ErrSourceMissing = errors.New("feed source not configured")

	// ErrBadRecord is returned when a feed row cannot be decoded.
	ErrBadRecord = errors.New("malformed feed record")

	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("feed circuit breaker open")
)

// Provider is the source of both feeds the engine trains on.
type Provider interface {
	Ratings(ctx context.Context) ([]recommend.Rating, error)
	Movies(ctx context.Context) ([]recommend.Movie, error)
}

// noGenres is the MovieLens placeholder for an empty genre list.
const noGenres = "(no genres listed)"

// ParseGenres accepts the genre encodings seen in movie feeds: a pipe or
// comma separated list, a JSON array of strings, or a JSON array of
// {"name": ...} objects. Blank entries and the MovieLens placeholder are
// dropped.
func ParseGenres(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var parts []string
	if strings.HasPrefix(raw, "[") {
		var names []string
		if err := json.Unmarshal([]byte(raw), &names); err == nil {
			parts = names
		} else {
			var objects []struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal([]byte(raw), &objects); err == nil {
				for _, o := range objects {
					parts = append(parts, o.Name)
				}
			} else {
				// SQL list rendering: [Action, Drama]
				parts = strings.Split(strings.Trim(raw, "[]"), ",")
			}
		}
	} else {
		sep := ","
		if strings.Contains(raw, "|") {
			sep = "|"
		}
		parts = strings.Split(raw, sep)
	}

	genres := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `'"`)
		if p == "" || p == noGenres {
			continue
		}
		genres = append(genres, p)
	}
	if len(genres) == 0 {
		return nil
	}
	return genres
}

var titleYear = regexp.MustCompile(`^(.*\S)\s*\((\d{4})\)\s*$`)

// SplitTitleYear separates a trailing "(YYYY)" from a MovieLens title.
// The year is 0 when absent.
func SplitTitleYear(title string) (string, int) {
	m := titleYear.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return strings.TrimSpace(title), 0
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return strings.TrimSpace(title), 0
	}
	return m[1], year
}

// movieLensMovie builds a catalog entry from the three MovieLens columns.
// The dataset has no plot text, so the overview is synthesized from the
// genres to give the text model something to index.
func movieLensMovie(id int, title, genres string) recommend.Movie {
	name, year := SplitTitleYear(title)
	m := recommend.Movie{
		ID:     id,
		Title:  name,
		Genres: ParseGenres(genres),
	}
	if year > 0 {
		m.ReleaseDate = fmt.Sprintf("%04d-01-01", year)
	}
	if len(m.Genres) > 0 {
		m.Overview = fmt.Sprintf("A %s movie.", strings.ToLower(strings.Join(m.Genres, ", ")))
	}
	return m
}
