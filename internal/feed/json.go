// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package feed

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/recommend"
)

// JSONProvider reads both feeds from local files. Each file holds either a
// JSON array of records or one record per line.
type JSONProvider struct {
	RatingsPath string
	MoviesPath  string
}

// NewJSONProvider returns a provider over the two files.
func NewJSONProvider(ratingsPath, moviesPath string) *JSONProvider {
	return &JSONProvider{RatingsPath: ratingsPath, MoviesPath: moviesPath}
}

// flexID decodes a user id written as a string or a number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// flexTime decodes unix seconds or an RFC 3339 string.
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
		*f = flexTime(t)
		return nil
	}
	secs, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*f = flexTime(time.Unix(secs, 0).UTC())
	return nil
}

type ratingRecord struct {
	UserID    flexID   `json:"user_id"`
	MovieID   int      `json:"movie_id"`
	Rating    float64  `json:"rating"`
	Timestamp flexTime `json:"timestamp"`
}

type movieRecord struct {
	recommend.Movie
	Genres json.RawMessage `json:"genres"`
}

// Ratings decodes the rating file.
func (p *JSONProvider) Ratings(ctx context.Context) ([]recommend.Rating, error) {
	var out []recommend.Rating
	err := decodeFile(ctx, p.RatingsPath, func(rec ratingRecord) {
		out = append(out, recommend.Rating{
			UserID:    string(rec.UserID),
			MovieID:   rec.MovieID,
			Value:     rec.Rating,
			Timestamp: time.Time(rec.Timestamp),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ratings feed: %w", err)
	}
	return out, nil
}

// Movies decodes the catalog file. Genres may be strings or {"name"} objects.
func (p *JSONProvider) Movies(ctx context.Context) ([]recommend.Movie, error) {
	var out []recommend.Movie
	err := decodeFile(ctx, p.MoviesPath, func(rec movieRecord) {
		m := rec.Movie
		m.Genres = ParseGenres(string(rec.Genres))
		out = append(out, m)
	})
	if err != nil {
		return nil, fmt.Errorf("movies feed: %w", err)
	}
	return out, nil
}

func decodeFile[T any](ctx context.Context, path string, emit func(T)) error {
	if path == "" {
		return ErrSourceMissing
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return err
	}
	defer f.Close()
	return decodeStream(ctx, f, emit)
}

// decodeStream emits each record of a JSON array or a JSON Lines stream.
func decodeStream[T any](ctx context.Context, r io.Reader, emit func(T)) error {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}

	if first == '[' {
		data, err := io.ReadAll(br)
		if err != nil {
			return err
		}
		var recs []T
		if err := json.Unmarshal(data, &recs); err != nil {
			return fmt.Errorf("%w: %v", ErrBadRecord, err)
		}
		for _, rec := range recs {
			emit(rec)
		}
		return nil
	}

	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for line := 1; sc.Scan(); line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(b, &rec); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrBadRecord, line, err)
		}
		emit(rec)
	}
	return sc.Err()
}

// maxLineBytes bounds a single JSON Lines record.
const maxLineBytes = 4 << 20

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
