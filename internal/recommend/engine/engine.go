// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/marquee/internal/cache"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/recommend"
	"github.com/tomtom215/marquee/internal/recommend/algorithms"
	"github.com/tomtom215/marquee/internal/recommend/storage"
)

var (
	// ErrNotTrained is returned by queries before the first snapshot is installed.
	ErrNotTrained = errors.New("models not trained")

	// ErrTrainingInProgress is returned when Train is called during another run.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrNoDataProvider is returned by Train when no feed is configured.
	ErrNoDataProvider = errors.New("data provider not set")
)

// DataProvider supplies the rating and movie feeds for training.
type DataProvider interface {
	Ratings(ctx context.Context) ([]recommend.Rating, error)
	Movies(ctx context.Context) ([]recommend.Movie, error)
}

// Snapshot is one immutable generation of fitted models. Queries load the
// current snapshot once and use it for the whole request.
type Snapshot struct {
	ID            uuid.UUID
	TrainedAt     time.Time
	Collaborative *algorithms.Collaborative
	Content       *algorithms.Content

	liked       map[string][]int
	catalogSize int
	hybrid      *algorithms.Hybrid
}

// Liked returns the movies the user rated at or above the like threshold.
func (s *Snapshot) Liked(userID string) []int {
	return s.liked[userID]
}

// CatalogSize is the number of movies in the content model.
func (s *Snapshot) CatalogSize() int {
	return s.catalogSize
}

// cacheKey identifies a cached result. The snapshot id keeps results from
// different generations apart.
type cacheKey struct {
	snapshot  uuid.UUID
	user      string
	algorithm recommend.Algorithm
	n         int
}

// Engine owns the serving snapshot, the shared weight book, and training.
// It is safe for concurrent use.
type Engine struct {
	cfg      *recommend.Config
	logger   zerolog.Logger
	provider DataProvider
	store    *storage.Store

	snapshot   atomic.Pointer[Snapshot]
	weights    *algorithms.WeightBook
	strategies map[recommend.Algorithm]strategy
	cache      *cache.LRU[cacheKey, []recommend.ScoredMovie]

	trainMu  sync.Mutex
	training atomic.Bool

	statusMu     sync.RWMutex
	lastError    string
	lastDuration time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore persists models after training and enables LoadOrTrain restores.
func WithStore(store *storage.Store) Option {
	return func(e *Engine) { e.store = store }
}

// New creates an engine with no snapshot. provider may be nil when models are
// only ever restored.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg *recommend.Config, provider DataProvider, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = recommend.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg = cfg.Clone()

	e := &Engine{
		cfg:      cfg,
		logger:   logger.With().Str("component", "engine").Logger(),
		provider: provider,
		weights:  algorithms.NewWeightBook(cfg, logger),
	}
	if cfg.Cache.Enabled {
		e.cache = cache.NewLRU[cacheKey, []recommend.ScoredMovie](cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}
	e.strategies = e.buildStrategies()
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *recommend.Config {
	return e.cfg.Clone()
}

// Snapshot returns the serving snapshot, or nil before the first install.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// current returns the serving snapshot or ErrNotTrained.
func (e *Engine) current() (*Snapshot, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return nil, ErrNotTrained
	}
	return snap, nil
}

// Train fetches the feeds, fits both models in parallel, and swaps in the new
// snapshot. Queries keep using the previous snapshot until the swap.
// A concurrent call returns ErrTrainingInProgress immediately.
func (e *Engine) Train(ctx context.Context) error {
	if !e.trainMu.TryLock() {
		metrics.RecordTrainingRun("skipped")
		return ErrTrainingInProgress
	}
	defer e.trainMu.Unlock()

	e.training.Store(true)
	defer e.training.Store(false)

	start := time.Now()
	e.logger.Info().Msg("Starting model training")

	trainCtx, cancel := context.WithTimeout(ctx, e.cfg.Training.Timeout)
	defer cancel()

	snap, err := e.fit(trainCtx)
	e.finishTraining(time.Since(start), err)
	if err != nil {
		metrics.RecordTrainingRun("failure")
		e.logger.Error().Err(err).Msg("Model training failed")
		return err
	}

	e.install(snap)
	metrics.RecordTraining("total", time.Since(start))
	metrics.RecordTrainingRun("success")

	if e.store != nil {
		if err := e.persist(trainCtx, snap); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to persist trained models")
		}
	}

	e.logger.Info().
		Str("snapshot_id", snap.ID.String()).
		Dur("duration", time.Since(start)).
		Msg("Model training complete")
	return nil
}

func (e *Engine) finishTraining(d time.Duration, err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.lastDuration = d
	if err != nil {
		e.lastError = err.Error()
		return
	}
	e.lastError = ""
}

// fit loads the feeds and fits a fresh pair of models.
func (e *Engine) fit(ctx context.Context) (*Snapshot, error) {
	if e.provider == nil {
		return nil, ErrNoDataProvider
	}

	ratings, err := e.provider.Ratings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	movies, err := e.provider.Movies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load movies: %w", err)
	}
	e.logger.Info().
		Int("ratings", len(ratings)).
		Int("movies", len(movies)).
		Msg("Loaded training data")

	collab := algorithms.NewCollaborative(e.cfg, e.logger)
	content := algorithms.NewContent(e.cfg, e.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		if err := collab.Prepare(ratings, movies); err != nil {
			return err
		}
		if err := collab.Fit(gctx); err != nil {
			return fmt.Errorf("fit collaborative: %w", err)
		}
		metrics.RecordTraining("collaborative", time.Since(start))
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		if err := content.Prepare(movies); err != nil {
			return err
		}
		if err := content.Fit(e.cfg.Content.Combined); err != nil {
			return fmt.Errorf("fit content: %w", err)
		}
		metrics.RecordTraining("content", time.Since(start))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return e.newSnapshot(collab, content, time.Now()), nil
}

// newSnapshot derives the per-user indexes of a fitted model pair.
func (e *Engine) newSnapshot(collab *algorithms.Collaborative, content *algorithms.Content, trainedAt time.Time) *Snapshot {
	snap := &Snapshot{
		ID:            uuid.New(),
		TrainedAt:     trainedAt,
		Collaborative: collab,
		Content:       content,
		liked:         collab.Matrix().LikedMovies(e.cfg.Hybrid.LikeThreshold),
		catalogSize:   len(content.MovieIDs()),
	}
	snap.hybrid = algorithms.NewHybrid(collab, content, e.weights, snap.Liked, e.logger)
	return snap
}

// install swaps in snap and drops every cached result.
func (e *Engine) install(snap *Snapshot) {
	e.snapshot.Store(snap)
	if e.cache != nil {
		e.cache.Clear()
	}
	m := snap.Collaborative.Matrix()
	metrics.UpdateModelGauges(m.Rows(), snap.catalogSize, m.NumRatings(), snap.TrainedAt)
}

// persist saves both models and the weight book.
func (e *Engine) persist(ctx context.Context, snap *Snapshot) error {
	collabState, err := snap.Collaborative.Snapshot()
	if err != nil {
		return err
	}
	m := snap.Collaborative.Matrix()
	if _, err := e.store.Save(ctx, storage.ModelCollaborative, "collaborative", 0, collabState, m.Rows(), m.Cols()); err != nil {
		return err
	}

	contentState, err := snap.Content.Snapshot()
	if err != nil {
		return err
	}
	if _, err := e.store.Save(ctx, storage.ModelContent, "content", 0, contentState,
		len(contentState.Movies), len(contentState.Vocabulary)); err != nil {
		return err
	}
	return e.SaveState(ctx)
}

// SaveState checkpoints the hybrid weight book. It is a no-op without a store.
func (e *Engine) SaveState(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	state := e.weights.Snapshot()
	if _, err := e.store.Save(ctx, storage.ModelHybrid, "hybrid", 0, state, len(state.Users), 2); err != nil {
		return fmt.Errorf("save hybrid weights: %w", err)
	}
	return nil
}

// LoadOrTrain restores the models from the store when all three blobs are
// fresh, and trains otherwise. Learned weights are restored whenever they
// load, fresh or not, so a retrain keeps them.
func (e *Engine) LoadOrTrain(ctx context.Context) error {
	if e.store == nil {
		return e.Train(ctx)
	}

	if e.store.Exists(ctx, storage.ModelHybrid) {
		var state algorithms.WeightState
		if _, err := e.store.Load(ctx, storage.ModelHybrid, &state); err != nil {
			e.logger.Warn().Err(err).Msg("Discarding persisted hybrid weights")
		} else if err := e.weights.Restore(&state); err != nil {
			e.logger.Warn().Err(err).Msg("Discarding persisted hybrid weights")
		}
	}

	maxAge := e.cfg.Training.MaxModelAge
	for _, name := range []string{storage.ModelCollaborative, storage.ModelContent, storage.ModelHybrid} {
		if e.store.ShouldRetrain(ctx, name, maxAge) {
			e.logger.Info().Str("model", name).Msg("Persisted model missing or stale, training")
			return e.Train(ctx)
		}
	}

	snap, err := e.restore(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Model restore failed, training")
		return e.Train(ctx)
	}
	e.install(snap)
	metrics.RecordTrainingRun("restored")
	e.logger.Info().
		Str("snapshot_id", snap.ID.String()).
		Time("trained_at", snap.TrainedAt).
		Msg("Models restored from store")
	return nil
}

// restore rebuilds a snapshot from persisted state.
func (e *Engine) restore(ctx context.Context) (*Snapshot, error) {
	var collabState algorithms.CollaborativeState
	if _, err := e.store.Load(ctx, storage.ModelCollaborative, &collabState); err != nil {
		return nil, err
	}
	collab, err := algorithms.RestoreCollaborative(&collabState, e.cfg, e.logger)
	if err != nil {
		return nil, err
	}

	var contentState algorithms.ContentState
	if _, err := e.store.Load(ctx, storage.ModelContent, &contentState); err != nil {
		return nil, err
	}
	content, err := algorithms.RestoreContent(&contentState, e.cfg, e.logger)
	if err != nil {
		return nil, err
	}

	return e.newSnapshot(collab, content, collabState.TrainedAt), nil
}

// Status reports the serving snapshot and training state.
type Status struct {
	Trained         bool          `json:"trained"`
	SnapshotID      string        `json:"snapshot_id,omitempty"`
	TrainedAt       time.Time     `json:"trained_at,omitempty"`
	Users           int           `json:"users"`
	Movies          int           `json:"movies"`
	Ratings         int           `json:"ratings"`
	HasALS          bool          `json:"has_als"`
	ALSTrainingRMSE float64       `json:"als_training_rmse"`
	WeightedUsers   int           `json:"weighted_users"`
	Training        bool          `json:"training"`
	LastError       string        `json:"last_error,omitempty"`
	LastDuration    time.Duration `json:"last_duration_ns"`
}

// Status returns the current engine status.
func (e *Engine) Status() Status {
	e.statusMu.RLock()
	s := Status{
		Training:      e.training.Load(),
		LastError:     e.lastError,
		LastDuration:  e.lastDuration,
		WeightedUsers: e.weights.Len(),
	}
	e.statusMu.RUnlock()

	snap := e.snapshot.Load()
	if snap == nil {
		return s
	}
	m := snap.Collaborative.Matrix()
	s.Trained = true
	s.SnapshotID = snap.ID.String()
	s.TrainedAt = snap.TrainedAt
	s.Users = m.Rows()
	s.Movies = snap.catalogSize
	s.Ratings = m.NumRatings()
	s.HasALS = snap.Collaborative.HasALS()
	s.ALSTrainingRMSE = snap.Collaborative.TrainingRMSE()
	return s
}
