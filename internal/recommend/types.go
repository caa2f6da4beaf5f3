// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package recommend

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Rating scale bounds. Predictions from every model are clamped into this range.
const (
	MinRating = 1.0
	MaxRating = 5.0

	// NeutralRating is the scale midpoint used for cold predictions and
	// reward normalization.
	NeutralRating = 3.0
)

// Rating is one explicit user rating for a movie.
type Rating struct {
	// UserID is the opaque user identity from the rating feed.
	UserID string `json:"user_id"`

	// MovieID is the movie identity.
	MovieID int `json:"movie_id"`

	// Value is the rating in [MinRating, MaxRating].
	Value float64 `json:"rating"`

	// Timestamp is when the rating was recorded. Used to resolve duplicates.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Movie is a catalog record with the metadata used for content features.
type Movie struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview"`
	Genres      []string `json:"genres"`
	Popularity  float64  `json:"popularity"`
	VoteAverage float64  `json:"vote_average"`
	VoteCount   int      `json:"vote_count"`
	Runtime     int      `json:"runtime"`

	// ReleaseDate is "YYYY-MM-DD" or empty.
	ReleaseDate string `json:"release_date"`

	Budget        float64 `json:"budget"`
	Revenue       float64 `json:"revenue"`
	DirectorScore float64 `json:"director_score"`
	ActorScore    float64 `json:"actor_score"`
}

// Year returns the release year, or 0 when the release date is empty or unparseable.
func (m *Movie) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	t, err := time.Parse("2006-01-02", m.ReleaseDate)
	if err != nil {
		// Some feeds only carry the year
		t, err = time.Parse("2006", m.ReleaseDate[:4])
		if err != nil {
			return 0
		}
	}
	return t.Year()
}

// ScoredMovie is a recommendation candidate with its model score.
type ScoredMovie struct {
	MovieID int     `json:"movie_id"`
	Score   float64 `json:"score"`
}

// ScoredUser is a neighbor with its similarity to the query user.
type ScoredUser struct {
	UserID     string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

// Algorithm is the closed set of recommendation strategies callers may request.
type Algorithm int

const (
	// AlgorithmHybrid fuses collaborative and content scores with adaptive per-user weights.
	AlgorithmHybrid Algorithm = iota
	// AlgorithmCollaborative is user-based neighborhood prediction with hidden-gem scoring.
	AlgorithmCollaborative
	// AlgorithmContent ranks by similarity to the movies a user liked.
	AlgorithmContent
	// AlgorithmSVD ranks by truncated SVD reconstruction.
	AlgorithmSVD
	// AlgorithmALS ranks by alternating least squares factors.
	AlgorithmALS

	algorithmCount
)

// Algorithms lists every valid algorithm in declaration order.
func Algorithms() []Algorithm {
	out := make([]Algorithm, 0, int(algorithmCount))
	for a := AlgorithmHybrid; a < algorithmCount; a++ {
		out = append(out, a)
	}
	return out
}

// String returns the wire name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmHybrid:
		return "hybrid"
	case AlgorithmCollaborative:
		return "collaborative"
	case AlgorithmContent:
		return "content"
	case AlgorithmSVD:
		return "svd"
	case AlgorithmALS:
		return "als"
	default:
		return "unknown"
	}
}

// Valid reports whether a is one of the declared algorithms.
func (a Algorithm) Valid() bool {
	return a >= AlgorithmHybrid && a < algorithmCount
}

// ErrUnknownAlgorithm is returned when an algorithm name or value is not recognized.
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// ParseAlgorithm converts a wire name into an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hybrid":
		return AlgorithmHybrid, nil
	case "collaborative", "cf":
		return AlgorithmCollaborative, nil
	case "content", "content_based":
		return AlgorithmContent, nil
	case "svd":
		return AlgorithmSVD, nil
	case "als":
		return AlgorithmALS, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// FeedbackMethod selects the hybrid weight update rule.
type FeedbackMethod int

const (
	// FeedbackReinforcement is epsilon-greedy: explore with a random nudge,
	// otherwise follow the reward.
	FeedbackReinforcement FeedbackMethod = iota
	// FeedbackGradient follows the reward without exploration.
	FeedbackGradient
)

// String returns the method name used in logs and metrics.
func (m FeedbackMethod) String() string {
	switch m {
	case FeedbackReinforcement:
		return "rl"
	case FeedbackGradient:
		return "gradient"
	default:
		return "unknown"
	}
}

// ErrUnknownFeedbackMethod is returned when a feedback method name is not recognized.
var ErrUnknownFeedbackMethod = errors.New("unknown feedback method")

// ParseFeedbackMethod converts a method name into a FeedbackMethod.
func ParseFeedbackMethod(s string) (FeedbackMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rl", "reinforcement":
		return FeedbackReinforcement, nil
	case "gradient":
		return FeedbackGradient, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFeedbackMethod, s)
	}
}

// RequestContext carries optional situational signals that nudge hybrid weights.
// Empty fields are ignored.
type RequestContext struct {
	// TimeOfDay is one of morning, afternoon, evening, night.
	TimeOfDay string `json:"time_of_day,omitempty"`

	// Mood is a free-form mood tag such as adventurous, discover, comfort, familiar.
	Mood string `json:"mood,omitempty"`

	// Device is the client form factor such as mobile, tv, desktop.
	Device string `json:"device,omitempty"`
}

// IsZero reports whether no context signal is set.
func (c RequestContext) IsZero() bool {
	return c.TimeOfDay == "" && c.Mood == "" && c.Device == ""
}

// Weights is a content/collaborative blend. The two components sum to 1.
type Weights struct {
	Content       float64 `json:"content"`
	Collaborative float64 `json:"collaborative"`
}

// DefaultWeights is the balanced blend applied to users without feedback.
func DefaultWeights() Weights {
	return Weights{Content: 0.5, Collaborative: 0.5}
}

// Normalize rescales the weights to sum to 1. A zero pair becomes the default blend.
func (w Weights) Normalize() Weights {
	total := w.Content + w.Collaborative
	if total <= 0 {
		return DefaultWeights()
	}
	return Weights{Content: w.Content / total, Collaborative: w.Collaborative / total}
}
