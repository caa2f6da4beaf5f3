// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package recommend

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Input errors reported when a matrix cannot be built.
var (
	ErrNoRatings     = errors.New("rating feed is empty")
	ErrNoMovies      = errors.New("movie feed is empty")
	ErrInvalidRating = errors.New("rating out of range")
)

// Unknown-entity errors for point lookups against a trained index.
var (
	ErrUnknownUser  = errors.New("user not in trained index")
	ErrUnknownMovie = errors.New("movie not in trained index")
)

// RatingMatrix is a dense users x movies table of explicit ratings.
//
// Cell value 0 means unrated. Row order follows UserIDs and column order
// follows MovieIDs; both are sorted ascending so a rebuild from the same
// ratings in any order yields the same matrix. A RatingMatrix is read-only
// once built and safe for concurrent readers.
type RatingMatrix struct {
	data     *mat.Dense
	userIDs  []string
	movieIDs []int
	userIdx  map[string]int
	movieIdx map[int]int

	userMeans  []float64
	movieMeans []float64
	ratedBy    []int
	rated      int
}

// BuildMatrix turns raw rating records into a RatingMatrix.
//
// The movie catalog must be non-empty. Columns come from the movies present in
// the rating feed. When a (user, movie) pair appears more than once the newest
// record by timestamp wins, and equal timestamps keep the higher value, so
// feed order never changes the result.
func BuildMatrix(ratings []Rating, movies []Movie) (*RatingMatrix, error) {
	if len(ratings) == 0 {
		return nil, ErrNoRatings
	}
	if len(movies) == 0 {
		return nil, ErrNoMovies
	}

	type key struct {
		user  string
		movie int
	}
	latest := make(map[key]Rating, len(ratings))
	users := make(map[string]struct{})
	items := make(map[int]struct{})

	for i := range ratings {
		r := ratings[i]
		if math.IsNaN(r.Value) || r.Value < MinRating || r.Value > MaxRating {
			return nil, fmt.Errorf("%w: user %s movie %d value %.2f", ErrInvalidRating, r.UserID, r.MovieID, r.Value)
		}
		k := key{r.UserID, r.MovieID}
		if prev, ok := latest[k]; ok {
			if prev.Timestamp.After(r.Timestamp) {
				continue
			}
			if prev.Timestamp.Equal(r.Timestamp) && prev.Value >= r.Value {
				continue
			}
		}
		latest[k] = r
		users[r.UserID] = struct{}{}
		items[r.MovieID] = struct{}{}
	}

	m := &RatingMatrix{
		userIDs:  make([]string, 0, len(users)),
		movieIDs: make([]int, 0, len(items)),
	}
	for u := range users {
		m.userIDs = append(m.userIDs, u)
	}
	for id := range items {
		m.movieIDs = append(m.movieIDs, id)
	}
	sort.Strings(m.userIDs)
	sort.Ints(m.movieIDs)

	m.userIdx = make(map[string]int, len(m.userIDs))
	for i, u := range m.userIDs {
		m.userIdx[u] = i
	}
	m.movieIdx = make(map[int]int, len(m.movieIDs))
	for j, id := range m.movieIDs {
		m.movieIdx[id] = j
	}

	m.data = mat.NewDense(len(m.userIDs), len(m.movieIDs), nil)
	for k, r := range latest {
		m.data.Set(m.userIdx[k.user], m.movieIdx[k.movie], r.Value)
	}
	m.rated = len(latest)
	m.computeStats()

	return m, nil
}

// NewRatingMatrix wraps an already ordered dense table. It validates that the
// index lists match the table shape and are strictly increasing.
func NewRatingMatrix(userIDs []string, movieIDs []int, values []float64) (*RatingMatrix, error) {
	rows, cols := len(userIDs), len(movieIDs)
	if rows == 0 || cols == 0 {
		return nil, ErrNoRatings
	}
	if len(values) != rows*cols {
		return nil, fmt.Errorf("matrix data length %d does not match %d x %d", len(values), rows, cols)
	}
	for i := 1; i < rows; i++ {
		if userIDs[i-1] >= userIDs[i] {
			return nil, fmt.Errorf("user ids not strictly sorted at %d", i)
		}
	}
	for j := 1; j < cols; j++ {
		if movieIDs[j-1] >= movieIDs[j] {
			return nil, fmt.Errorf("movie ids not strictly sorted at %d", j)
		}
	}

	m := &RatingMatrix{
		data:     mat.NewDense(rows, cols, append([]float64(nil), values...)),
		userIDs:  append([]string(nil), userIDs...),
		movieIDs: append([]int(nil), movieIDs...),
		userIdx:  make(map[string]int, rows),
		movieIdx: make(map[int]int, cols),
	}
	for i, u := range m.userIDs {
		m.userIdx[u] = i
	}
	for j, id := range m.movieIDs {
		m.movieIdx[id] = j
	}
	for _, v := range values {
		if v != 0 {
			m.rated++
		}
	}
	m.computeStats()
	return m, nil
}

func (m *RatingMatrix) computeStats() {
	rows, cols := m.data.Dims()
	m.userMeans = make([]float64, rows)
	m.movieMeans = make([]float64, cols)
	m.ratedBy = make([]int, cols)
	movieSums := make([]float64, cols)

	for i := 0; i < rows; i++ {
		var sum float64
		var n int
		for j, v := range m.data.RawRowView(i) {
			if v == 0 {
				continue
			}
			sum += v
			n++
			movieSums[j] += v
			m.ratedBy[j]++
		}
		if n > 0 {
			m.userMeans[i] = sum / float64(n)
		}
	}
	for j := 0; j < cols; j++ {
		if m.ratedBy[j] > 0 {
			m.movieMeans[j] = movieSums[j] / float64(m.ratedBy[j])
		}
	}
}

// Dims returns the number of users and movies.
func (m *RatingMatrix) Dims() (users, movies int) {
	return m.data.Dims()
}

// Rows returns the number of users.
func (m *RatingMatrix) Rows() int { return len(m.userIDs) }

// Cols returns the number of movies.
func (m *RatingMatrix) Cols() int { return len(m.movieIDs) }

// NumRatings returns the number of non-zero cells.
func (m *RatingMatrix) NumRatings() int { return m.rated }

// At returns the rating at row i, column j. Zero means unrated.
func (m *RatingMatrix) At(i, j int) float64 { return m.data.At(i, j) }

// Row returns user i's rating row. The slice aliases the matrix and must not be modified.
func (m *RatingMatrix) Row(i int) []float64 { return m.data.RawRowView(i) }

// Dense exposes the backing matrix for read-only linear algebra.
func (m *RatingMatrix) Dense() mat.Matrix { return m.data }

// UserIDs returns the row index list. The slice must not be modified.
func (m *RatingMatrix) UserIDs() []string { return m.userIDs }

// MovieIDs returns the column index list. The slice must not be modified.
func (m *RatingMatrix) MovieIDs() []int { return m.movieIDs }

// UserIndex returns the row of userID.
func (m *RatingMatrix) UserIndex(userID string) (int, bool) {
	i, ok := m.userIdx[userID]
	return i, ok
}

// MovieIndex returns the column of movieID.
func (m *RatingMatrix) MovieIndex(movieID int) (int, bool) {
	j, ok := m.movieIdx[movieID]
	return j, ok
}

// UserMean returns the mean of user i's ratings, 0 when the user rated nothing.
func (m *RatingMatrix) UserMean(i int) float64 { return m.userMeans[i] }

// MovieMean returns the mean rating of movie j, 0 when nobody rated it.
func (m *RatingMatrix) MovieMean(j int) float64 { return m.movieMeans[j] }

// RatedBy returns how many users rated movie j.
func (m *RatingMatrix) RatedBy(j int) int { return m.ratedBy[j] }

// Values returns a row-major copy of the matrix.
func (m *RatingMatrix) Values() []float64 {
	rows, cols := m.data.Dims()
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		out = append(out, m.data.RawRowView(i)...)
	}
	return out
}

// RatedMovies returns the set of movie ids the user rated. An unknown user
// yields an empty set.
func (m *RatingMatrix) RatedMovies(userID string) map[int]struct{} {
	i, ok := m.userIdx[userID]
	if !ok {
		return map[int]struct{}{}
	}
	out := make(map[int]struct{})
	for j, v := range m.data.RawRowView(i) {
		if v != 0 {
			out[m.movieIDs[j]] = struct{}{}
		}
	}
	return out
}

// LikedMovies returns, per user, the movie ids rated at or above threshold.
func (m *RatingMatrix) LikedMovies(threshold float64) map[string][]int {
	out := make(map[string][]int, len(m.userIDs))
	for i, u := range m.userIDs {
		var liked []int
		for j, v := range m.data.RawRowView(i) {
			if v != 0 && v >= threshold {
				liked = append(liked, m.movieIDs[j])
			}
		}
		if len(liked) > 0 {
			out[u] = liked
		}
	}
	return out
}
