// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package algorithms

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/marquee/internal/recommend"
)

// ErrUnknownFeedbackMethod is returned for a FeedbackMethod outside the declared set.
var ErrUnknownFeedbackMethod = recommend.ErrUnknownFeedbackMethod

// rewardScale is half the rating range; (mean - NeutralRating) / rewardScale lies in [-1, 1].
const rewardScale = (recommend.MaxRating - recommend.MinRating) / 2

// FeedbackEvent is one recorded weight update.
type FeedbackEvent struct {
	At          time.Time         `json:"at"`
	Recommended []int             `json:"recommended"`
	Feedback    map[int]float64   `json:"feedback"`
	Reward      float64           `json:"reward"`
	Method      string            `json:"method"`
	Explored    bool              `json:"explored"`
	Weights     recommend.Weights `json:"weights"`
}

// userWeights is one user's learned blend and bounded feedback history.
type userWeights struct {
	mu      sync.Mutex
	weights recommend.Weights
	updates int
	history []FeedbackEvent
}

// WeightBook is the per-user hybrid weight state.
//
// A user's record moves from unset (global weights applied transiently) to
// initialized on the first feedback, then to updated on every later feedback.
// Records are never reset implicitly; only Reset and ResetAll clear them.
// Updates for one user are serialized by that user's mutex. Different users
// never contend beyond the map lookup.
type WeightBook struct {
	cfg    recommend.HybridConfig
	logger zerolog.Logger

	mu      sync.RWMutex
	global  recommend.Weights
	users   map[string]*userWeights
	epsilon float64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewWeightBook creates an empty weight book with balanced global weights.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewWeightBook(cfg *recommend.Config, logger zerolog.Logger) *WeightBook {
	if cfg == nil {
		cfg = recommend.DefaultConfig()
	}
	return &WeightBook{
		cfg:     cfg.Hybrid,
		logger:  logger.With().Str("component", "weights").Logger(),
		global:  recommend.DefaultWeights(),
		users:   make(map[string]*userWeights),
		epsilon: cfg.Hybrid.ExplorationRate,
		rng:     rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // exploration, not security
	}
}

// Global returns the blend applied to users without a record.
func (b *WeightBook) Global() recommend.Weights {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.global
}

// SetGlobal replaces the default blend. The pair is normalized to sum to 1.
func (b *WeightBook) SetGlobal(w recommend.Weights) {
	b.mu.Lock()
	b.global = w.Normalize()
	b.mu.Unlock()
}

// ExplorationRate returns the current epsilon of the reinforcement update.
func (b *WeightBook) ExplorationRate() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.epsilon
}

// Weights returns the user's learned blend and whether a record exists.
// Without a record the global blend is returned and nothing is stored.
func (b *WeightBook) Weights(userID string) (recommend.Weights, bool) {
	b.mu.RLock()
	rec, ok := b.users[userID]
	global := b.global
	b.mu.RUnlock()
	if !ok {
		return global, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.weights, true
}

// record returns the user's record, inserting one seeded with the global
// blend on first access.
func (b *WeightBook) record(userID string) *userWeights {
	b.mu.RLock()
	rec, ok := b.users[userID]
	b.mu.RUnlock()
	if ok {
		return rec
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if rec, ok = b.users[userID]; ok {
		return rec
	}
	rec = &userWeights{weights: b.global}
	b.users[userID] = rec
	return rec
}

// Update applies one round of feedback to the user's blend.
//
// The mean feedback rating is mapped to a reward in [-1, 1]. The reinforcement
// rule explores with probability epsilon by adding a uniform nudge, otherwise
// it moves the content weight by learningRate * reward; epsilon then decays.
// The gradient rule always follows the reward. Content weight is clamped to
// [MinWeight, MaxWeight] and the collaborative weight is its complement.
// Empty feedback returns the current blend without creating a record.
func (b *WeightBook) Update(userID string, recommended []int, feedback map[int]float64, method recommend.FeedbackMethod) (recommend.Weights, error) {
	if method != recommend.FeedbackReinforcement && method != recommend.FeedbackGradient {
		return recommend.Weights{}, fmt.Errorf("%w: %d", ErrUnknownFeedbackMethod, method)
	}
	if len(feedback) == 0 {
		w, _ := b.Weights(userID)
		return w, nil
	}

	var sum float64
	for _, v := range feedback {
		sum += v
	}
	reward := (sum/float64(len(feedback)) - recommend.NeutralRating) / rewardScale
	reward = math.Max(-1, math.Min(1, reward))

	adjustment := b.cfg.LearningRate * reward
	explored := false
	if method == recommend.FeedbackReinforcement {
		b.mu.Lock()
		epsilon := b.epsilon
		b.epsilon *= b.cfg.ExplorationDecay
		b.mu.Unlock()

		b.rngMu.Lock()
		if b.rng.Float64() < epsilon {
			adjustment = (b.rng.Float64()*2 - 1) * b.cfg.ExplorationStep
			explored = true
		}
		b.rngMu.Unlock()
	}

	rec := b.record(userID)
	rec.mu.Lock()
	content := math.Max(b.cfg.MinWeight, math.Min(b.cfg.MaxWeight, rec.weights.Content+adjustment))
	rec.weights = recommend.Weights{Content: content, Collaborative: 1 - content}
	rec.updates++
	rec.history = append(rec.history, FeedbackEvent{
		At:          time.Now(),
		Recommended: append([]int(nil), recommended...),
		Feedback:    copyFeedback(feedback),
		Reward:      reward,
		Method:      method.String(),
		Explored:    explored,
		Weights:     rec.weights,
	})
	if limit := b.cfg.HistorySize; limit > 0 && len(rec.history) > limit {
		rec.history = append([]FeedbackEvent(nil), rec.history[len(rec.history)-limit:]...)
	}
	updated := rec.weights
	updates := rec.updates
	rec.mu.Unlock()

	b.logger.Debug().
		Str("user_id", userID).
		Str("method", method.String()).
		Float64("reward", reward).
		Bool("explored", explored).
		Float64("content_weight", updated.Content).
		Int("updates", updates).
		Msg("Hybrid weights updated")
	return updated, nil
}

// History returns a copy of the user's retained feedback events, oldest first.
func (b *WeightBook) History(userID string) []FeedbackEvent {
	b.mu.RLock()
	rec, ok := b.users[userID]
	b.mu.RUnlock()
	if !ok {
		return nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]FeedbackEvent(nil), rec.history...)
}

// Reset clears one user's record. The next request uses the global blend.
func (b *WeightBook) Reset(userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.users[userID]
	delete(b.users, userID)
	return ok
}

// ResetAll clears every user record and restores the initial exploration rate.
func (b *WeightBook) ResetAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users = make(map[string]*userWeights)
	b.epsilon = b.cfg.ExplorationRate
}

// Len returns how many users have a record.
func (b *WeightBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.users)
}

// Explanation describes which side dominates the user's blend.
func (b *WeightBook) Explanation(userID string) string {
	w, _ := b.Weights(userID)
	switch {
	case w.Content > w.Collaborative:
		return fmt.Sprintf("Matches your taste based on content similarity (%.0f%% content-based)", w.Content*100)
	case w.Collaborative > w.Content:
		return fmt.Sprintf("Users with similar preferences enjoyed this (%.0f%% collaborative)", w.Collaborative*100)
	default:
		return "Recommended from a balanced mix of content similarity and similar users"
	}
}

// SideStatistics summarizes one side of the learned blends.
type SideStatistics struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// WeightStatistics summarizes the learned blends across users.
type WeightStatistics struct {
	Global          recommend.Weights `json:"global"`
	Users           int               `json:"users"`
	ExplorationRate float64           `json:"exploration_rate"`
	Content         SideStatistics    `json:"content"`
	Collaborative   SideStatistics    `json:"collaborative"`
}

// Statistics reports the global blend and the spread of per-user blends.
func (b *WeightBook) Statistics() WeightStatistics {
	b.mu.RLock()
	out := WeightStatistics{Global: b.global, Users: len(b.users), ExplorationRate: b.epsilon}
	recs := make([]*userWeights, 0, len(b.users))
	for _, rec := range b.users {
		recs = append(recs, rec)
	}
	b.mu.RUnlock()

	if len(recs) == 0 {
		return out
	}
	content := make([]float64, len(recs))
	collab := make([]float64, len(recs))
	for i, rec := range recs {
		rec.mu.Lock()
		content[i] = rec.weights.Content
		collab[i] = rec.weights.Collaborative
		rec.mu.Unlock()
	}
	out.Content = sideStatistics(content)
	out.Collaborative = sideStatistics(collab)
	return out
}

func sideStatistics(values []float64) SideStatistics {
	mean, std := stat.PopMeanStdDev(values, nil)
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return SideStatistics{Mean: mean, Std: std, Min: sorted[0], Max: sorted[len(sorted)-1]}
}

func copyFeedback(in map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// WeightsSchemaVersion identifies the layout of WeightState.
const WeightsSchemaVersion = 1

// UserWeightState is the persisted form of one user's record.
type UserWeightState struct {
	Weights recommend.Weights
	Updates int
	History []FeedbackEvent
}

// WeightState is the persisted form of a WeightBook.
type WeightState struct {
	SchemaVersion   int
	Global          recommend.Weights
	ExplorationRate float64
	Users           map[string]UserWeightState
}

// Validate checks that every stored blend sums to 1 within tolerance.
func (s *WeightState) Validate() error {
	if s.SchemaVersion != WeightsSchemaVersion {
		return fmt.Errorf("weights schema version %d, want %d", s.SchemaVersion, WeightsSchemaVersion)
	}
	if math.Abs(s.Global.Content+s.Global.Collaborative-1) > 1e-6 {
		return fmt.Errorf("global weights sum to %f", s.Global.Content+s.Global.Collaborative)
	}
	for user, u := range s.Users {
		if math.Abs(u.Weights.Content+u.Weights.Collaborative-1) > 1e-6 {
			return fmt.Errorf("weights for user %s sum to %f", user, u.Weights.Content+u.Weights.Collaborative)
		}
	}
	return nil
}

// Snapshot captures every user record for persistence.
func (b *WeightBook) Snapshot() *WeightState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := &WeightState{
		SchemaVersion:   WeightsSchemaVersion,
		Global:          b.global,
		ExplorationRate: b.epsilon,
		Users:           make(map[string]UserWeightState, len(b.users)),
	}
	for user, rec := range b.users {
		rec.mu.Lock()
		s.Users[user] = UserWeightState{
			Weights: rec.weights,
			Updates: rec.updates,
			History: append([]FeedbackEvent(nil), rec.history...),
		}
		rec.mu.Unlock()
	}
	return s
}

// Restore replaces the book's contents with persisted state.
func (b *WeightBook) Restore(s *WeightState) error {
	if err := s.Validate(); err != nil {
		return err
	}
	users := make(map[string]*userWeights, len(s.Users))
	for user, u := range s.Users {
		users[user] = &userWeights{
			weights: u.Weights,
			updates: u.Updates,
			history: append([]FeedbackEvent(nil), u.History...),
		}
	}

	b.mu.Lock()
	b.global = s.Global
	b.epsilon = s.ExplorationRate
	b.users = users
	b.mu.Unlock()

	b.logger.Info().Int("users", len(users)).Msg("Hybrid weights restored")
	return nil
}
