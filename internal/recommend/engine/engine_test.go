// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/marquee/internal/recommend"
	"github.com/tomtom215/marquee/internal/recommend/storage"
)

type staticProvider struct {
	ratings []recommend.Rating
	movies  []recommend.Movie
	err     error
	calls   int
	mu      sync.Mutex
}

func (p *staticProvider) Ratings(context.Context) ([]recommend.Rating, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.ratings, nil
}

func (p *staticProvider) Movies(context.Context) ([]recommend.Movie, error) {
	return p.movies, nil
}

func rating(user string, movie int, value float64) recommend.Rating {
	return recommend.Rating{UserID: user, MovieID: movie, Value: value}
}

func testProvider() *staticProvider {
	return &staticProvider{
		ratings: []recommend.Rating{
			rating("u1", 1, 5), rating("u1", 2, 4),
			rating("u2", 1, 4), rating("u2", 2, 5), rating("u2", 3, 4), rating("u2", 4, 2),
			rating("u3", 2, 5), rating("u3", 3, 4), rating("u3", 4, 1), rating("u3", 5, 4),
			rating("u4", 1, 5), rating("u4", 3, 5), rating("u4", 4, 2), rating("u4", 5, 3),
		},
		movies: []recommend.Movie{
			{ID: 1, Overview: "A space adventure with robots", Genres: []string{"Sci-Fi", "Adventure"}, Popularity: 40, VoteAverage: 7.5, VoteCount: 2000, Runtime: 130, ReleaseDate: "2014-11-07"},
			{ID: 2, Overview: "Robots fight in a space war", Genres: []string{"Sci-Fi", "Action"}, Popularity: 35, VoteAverage: 6.8, VoteCount: 1500, Runtime: 120, ReleaseDate: "2016-06-01"},
			{ID: 3, Overview: "A romantic comedy in Paris", Genres: []string{"Romance", "Comedy"}, Popularity: 8, VoteAverage: 7.0, VoteCount: 300, Runtime: 95, ReleaseDate: "2004-02-14"},
			{ID: 4, Overview: "Comedy about love in Paris", Genres: []string{"Romance", "Comedy"}, Popularity: 9, VoteAverage: 6.5, VoteCount: 250, Runtime: 98},
			{ID: 5, Overview: "Space robots return", Genres: []string{"Sci-Fi"}, Popularity: 12, VoteAverage: 6.1, VoteCount: 90, Runtime: 101, ReleaseDate: "2019-05-01"},
		},
	}
}

func testConfig() *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.ALS.Factors = 3
	cfg.ALS.Iterations = 6
	cfg.SVD.Components = 2
	cfg.Hybrid.Method = recommend.FeedbackGradient
	return cfg
}

func newEngine(t *testing.T, provider DataProvider, opts ...Option) *Engine {
	t.Helper()
	e, err := New(testConfig(), provider, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func trainedEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := newEngine(t, testProvider(), opts...)
	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	return e
}

func newStore(t *testing.T, dir string) *storage.Store {
	t.Helper()
	b, err := storage.NewFileBackend(dir, 3)
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	return storage.NewStore(b, zerolog.Nop())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := recommend.DefaultConfig()
	cfg.SVD.Components = 0
	if _, err := New(cfg, nil, zerolog.Nop()); err == nil {
		t.Error("New() accepted an invalid config")
	}
}

func TestEngine_NotTrained(t *testing.T) {
	e := newEngine(t, testProvider())
	ctx := context.Background()

	if _, err := e.Recommend(ctx, "u1", recommend.AlgorithmHybrid, 5); !errors.Is(err, ErrNotTrained) {
		t.Errorf("Recommend() error = %v, want ErrNotTrained", err)
	}
	if _, err := e.SimilarMovies(ctx, 1, 3); !errors.Is(err, ErrNotTrained) {
		t.Errorf("SimilarMovies() error = %v, want ErrNotTrained", err)
	}
	if _, err := e.Evaluate(ctx, nil); !errors.Is(err, ErrNotTrained) {
		t.Errorf("Evaluate() error = %v, want ErrNotTrained", err)
	}
	if e.Status().Trained {
		t.Error("Status().Trained = true before training")
	}
}

func TestEngine_TrainErrors(t *testing.T) {
	feedErr := errors.New("feed unavailable")
	tests := []struct {
		name     string
		provider DataProvider
		wantErr  error
	}{
		{name: "no provider", provider: nil, wantErr: ErrNoDataProvider},
		{name: "feed failure", provider: &staticProvider{err: feedErr}, wantErr: feedErr},
		{name: "no ratings", provider: &staticProvider{movies: testProvider().movies}, wantErr: recommend.ErrNoRatings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, tt.provider)
			err := e.Train(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Train() error = %v, want %v", err, tt.wantErr)
			}
			status := e.Status()
			if status.LastError == "" {
				t.Error("Status().LastError is empty after a failed run")
			}
			if status.Trained {
				t.Error("Status().Trained = true after a failed run")
			}
		})
	}
}

func TestEngine_TrainInProgress(t *testing.T) {
	e := newEngine(t, testProvider())
	e.trainMu.Lock()
	defer e.trainMu.Unlock()

	if err := e.Train(context.Background()); !errors.Is(err, ErrTrainingInProgress) {
		t.Errorf("Train() error = %v, want ErrTrainingInProgress", err)
	}
}

func TestEngine_RecommendAllAlgorithms(t *testing.T) {
	e := trainedEngine(t)
	ctx := context.Background()

	for _, algorithm := range recommend.Algorithms() {
		t.Run(algorithm.String(), func(t *testing.T) {
			recs, err := e.Recommend(ctx, "u1", algorithm, 2)
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if len(recs) > 2 {
				t.Errorf("len(recs) = %d, want at most 2", len(recs))
			}
			for i := 1; i < len(recs); i++ {
				if recs[i].Score > recs[i-1].Score {
					t.Errorf("recs not sorted: %v", recs)
				}
			}
		})
	}
}

func TestEngine_RecommendContent(t *testing.T) {
	e := trainedEngine(t)

	ids, err := e.RecommendIDs(context.Background(), "u1", recommend.AlgorithmContent, 1)
	if err != nil {
		t.Fatalf("RecommendIDs() error = %v", err)
	}
	// u1 liked the two space/robot movies; 5 is the remaining one.
	if len(ids) != 1 || ids[0] != 5 {
		t.Errorf("RecommendIDs(content) = %v, want [5]", ids)
	}
}

func TestEngine_RecommendExcludesRated(t *testing.T) {
	e := trainedEngine(t)
	ctx := context.Background()

	// u3 rated movie 4 at 1.0, below the like threshold.
	rated := map[string][]int{
		"u1": {1, 2},
		"u3": {2, 3, 4, 5},
		"u4": {1, 3, 4, 5},
	}
	for _, algorithm := range recommend.Algorithms() {
		for user, movies := range rated {
			t.Run(algorithm.String()+"/"+user, func(t *testing.T) {
				recs, err := e.Recommend(ctx, user, algorithm, 5)
				if err != nil {
					t.Fatalf("Recommend() error = %v", err)
				}
				for _, r := range recs {
					for _, id := range movies {
						if r.MovieID == id {
							t.Errorf("Recommend(%s) returned rated movie %d: %v", user, id, recs)
						}
					}
				}
			})
		}
	}
}

func TestEngine_RecommendEdgeCases(t *testing.T) {
	e := trainedEngine(t)
	ctx := context.Background()

	if _, err := e.Recommend(ctx, "u1", recommend.Algorithm(99), 5); !errors.Is(err, recommend.ErrUnknownAlgorithm) {
		t.Errorf("Recommend(99) error = %v, want ErrUnknownAlgorithm", err)
	}

	for _, algorithm := range recommend.Algorithms() {
		recs, err := e.Recommend(ctx, "stranger", algorithm, 5)
		if err != nil {
			t.Errorf("Recommend(stranger, %s) error = %v", algorithm, err)
		}
		if len(recs) != 0 {
			t.Errorf("Recommend(stranger, %s) = %v, want empty", algorithm, recs)
		}
	}

	recs, err := e.Recommend(ctx, "u1", recommend.AlgorithmHybrid, 0)
	if err != nil || len(recs) != 0 {
		t.Errorf("Recommend(n=0) = (%v, %v), want empty", recs, err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := e.Recommend(cancelled, "u1", recommend.AlgorithmHybrid, 5); !errors.Is(err, context.Canceled) {
		t.Errorf("Recommend(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestEngine_Cache(t *testing.T) {
	e := trainedEngine(t)
	ctx := context.Background()

	first, err := e.Recommend(ctx, "u1", recommend.AlgorithmSVD, 2)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	second, err := e.Recommend(ctx, "u1", recommend.AlgorithmSVD, 2)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("cached result differs: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("cached result differs at %d: %v vs %v", i, first[i], second[i])
		}
	}

	hits, misses, size := e.cache.Stats()
	if hits != 1 || misses != 1 || size != 1 {
		t.Errorf("cache stats = (%d, %d, %d), want (1, 1, 1)", hits, misses, size)
	}

	// Mutating a returned slice must not leak into the cache.
	second[0].Score = -100
	third, _ := e.Recommend(ctx, "u1", recommend.AlgorithmSVD, 2)
	if third[0].Score == -100 {
		t.Error("cached slice was shared with the caller")
	}

	if err := e.Train(ctx); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if e.cache.Len() != 0 {
		t.Errorf("cache size after retrain = %d, want 0", e.cache.Len())
	}
}

func TestEngine_TrainSwapsSnapshot(t *testing.T) {
	e := trainedEngine(t)
	first := e.Snapshot()

	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	second := e.Snapshot()
	if first == second || first.ID == second.ID {
		t.Error("Train() did not install a new snapshot")
	}
	if got := second.Liked("u1"); len(got) != 2 {
		t.Errorf("Liked(u1) = %v, want two movies", got)
	}
	if second.CatalogSize() != 5 {
		t.Errorf("CatalogSize() = %d, want 5", second.CatalogSize())
	}
}

func TestEngine_ConcurrentRecommendDuringTrain(t *testing.T) {
	e := trainedEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 3; i++ {
			if err := e.Train(ctx); err != nil && !errors.Is(err, ErrTrainingInProgress) {
				t.Errorf("Train() error = %v", err)
			}
		}
	}()
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, err := e.Recommend(ctx, "u2", recommend.AlgorithmHybrid, 3); err != nil {
					t.Errorf("Recommend() error = %v", err)
				}
			}
		}()
	}
	wg.Wait()
}

func TestEngine_RecordFeedback(t *testing.T) {
	e := trainedEngine(t)
	ctx := context.Background()

	if _, err := e.Recommend(ctx, "u1", recommend.AlgorithmHybrid, 3); err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if _, err := e.Recommend(ctx, "u2", recommend.AlgorithmHybrid, 3); err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	w, err := e.RecordFeedback(ctx, "u1", map[int]float64{3: 5, 4: 5})
	if err != nil {
		t.Fatalf("RecordFeedback() error = %v", err)
	}
	if diff := w.Content - 0.6; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("content weight = %v, want 0.6", w.Content)
	}
	if got, learned := e.Weights("u1"); !learned || got != w {
		t.Errorf("Weights(u1) = (%v, %v), want (%v, true)", got, learned, w)
	}
	if e.cache.Len() != 1 {
		t.Errorf("cache size = %d, want 1 (only u2 left)", e.cache.Len())
	}
	if got := e.Explain("u1"); got == "" {
		t.Error("Explain() returned an empty string")
	}
	if stats := e.WeightStatistics(); stats.Users != 1 {
		t.Errorf("WeightStatistics().Users = %d, want 1", stats.Users)
	}

	if !e.ResetWeights("u1") {
		t.Error("ResetWeights(u1) = false")
	}
	if _, learned := e.Weights("u1"); learned {
		t.Error("Weights(u1) still learned after reset")
	}
}

func TestEngine_RecommendWithContext(t *testing.T) {
	e := trainedEngine(t)
	recs, err := e.RecommendWithContext(context.Background(), "u1", 3, recommend.RequestContext{TimeOfDay: "night", Mood: "discover"})
	if err != nil {
		t.Fatalf("RecommendWithContext() error = %v", err)
	}
	if len(recs) == 0 || len(recs) > 3 {
		t.Errorf("len(recs) = %d, want 1..3", len(recs))
	}
}

func TestEngine_RecommendReranked(t *testing.T) {
	e := trainedEngine(t)
	ctx := context.Background()

	rerankers := map[string]func(context.Context, string, recommend.Algorithm, int, float64) ([]recommend.ScoredMovie, error){
		"diverse":    e.RecommendDiverse,
		"calibrated": e.RecommendCalibrated,
	}
	for name, rerank := range rerankers {
		t.Run(name, func(t *testing.T) {
			plain, err := e.Recommend(ctx, "u1", recommend.AlgorithmCollaborative, 2)
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			same, err := rerank(ctx, "u1", recommend.AlgorithmCollaborative, 2, 1)
			if err != nil {
				t.Fatalf("lambda 1 error = %v", err)
			}
			if len(same) != len(plain) {
				t.Fatalf("lambda 1 = %v, want %v", same, plain)
			}
			for i := range same {
				if same[i].MovieID != plain[i].MovieID {
					t.Errorf("lambda 1 = %v, want %v", same, plain)
					break
				}
			}

			for _, algorithm := range recommend.Algorithms() {
				recs, err := rerank(ctx, "u2", algorithm, 3, 0.3)
				if err != nil {
					t.Fatalf("%s error = %v", algorithm, err)
				}
				if len(recs) > 3 {
					t.Errorf("%s len = %d, want at most 3", algorithm, len(recs))
				}
				seen := map[int]bool{}
				for _, r := range recs {
					if seen[r.MovieID] {
						t.Errorf("%s returned movie %d twice", algorithm, r.MovieID)
					}
					seen[r.MovieID] = true
				}
			}

			if recs, err := rerank(ctx, "stranger", recommend.AlgorithmHybrid, 3, 0.5); err != nil || len(recs) != 0 {
				t.Errorf("stranger = (%v, %v), want empty", recs, err)
			}
			if _, err := rerank(ctx, "u1", recommend.Algorithm(99), 3, 0.5); !errors.Is(err, recommend.ErrUnknownAlgorithm) {
				t.Errorf("unknown algorithm error = %v, want ErrUnknownAlgorithm", err)
			}
		})
	}

	untrained := newEngine(t, testProvider())
	if _, err := untrained.RecommendDiverse(ctx, "u1", recommend.AlgorithmHybrid, 3, 0.5); !errors.Is(err, ErrNotTrained) {
		t.Errorf("untrained error = %v, want ErrNotTrained", err)
	}
}

func TestEngine_SimilarMovies(t *testing.T) {
	e := trainedEngine(t)
	recs, err := e.SimilarMovies(context.Background(), 3, 1)
	if err != nil {
		t.Fatalf("SimilarMovies() error = %v", err)
	}
	if len(recs) != 1 || recs[0].MovieID != 4 {
		t.Errorf("SimilarMovies(3, 1) = %v, want movie 4", recs)
	}
}

func TestEngine_Status(t *testing.T) {
	e := trainedEngine(t)
	s := e.Status()
	if !s.Trained || s.SnapshotID == "" || s.TrainedAt.IsZero() {
		t.Errorf("Status() = %+v, want a trained snapshot", s)
	}
	if s.Users != 4 || s.Movies != 5 || s.Ratings != 14 {
		t.Errorf("Status() counts = (%d, %d, %d), want (4, 5, 14)", s.Users, s.Movies, s.Ratings)
	}
	if !s.HasALS || s.ALSTrainingRMSE <= 0 {
		t.Errorf("Status() ALS = (%v, %v), want fitted with positive RMSE", s.HasALS, s.ALSTrainingRMSE)
	}
	if s.Training {
		t.Error("Status().Training = true after Train returned")
	}
}

func TestEngine_Evaluate(t *testing.T) {
	e := trainedEngine(t)
	test := []recommend.Rating{
		rating("u1", 3, 4), rating("u1", 5, 5),
		rating("u3", 1, 5),
		rating("stranger", 1, 5),
	}
	got, err := e.Evaluate(context.Background(), test)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got.Neighborhood.N != 3 {
		t.Errorf("Neighborhood.N = %d, want 3", got.Neighborhood.N)
	}
	if got.Users != 3 {
		t.Errorf("Users = %d, want 3", got.Users)
	}
	if _, ok := got.Ranking["precision@5"]; !ok {
		t.Errorf("Ranking missing precision@5: %v", got.Ranking)
	}
	if got.Coverage <= 0 || got.Coverage > 1 {
		t.Errorf("Coverage = %v, want (0, 1]", got.Coverage)
	}
}

func TestEngine_PersistAndRestore(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	trained := trainedEngine(t, WithStore(newStore(t, dir)))
	if _, err := trained.RecordFeedback(ctx, "u1", map[int]float64{3: 5}); err != nil {
		t.Fatalf("RecordFeedback() error = %v", err)
	}
	if err := trained.SaveState(ctx); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}
	want, err := trained.RecommendIDs(ctx, "u2", recommend.AlgorithmALS, 3)
	if err != nil {
		t.Fatalf("RecommendIDs() error = %v", err)
	}

	provider := testProvider()
	restored := newEngine(t, provider, WithStore(newStore(t, dir)))
	if err := restored.LoadOrTrain(ctx); err != nil {
		t.Fatalf("LoadOrTrain() error = %v", err)
	}
	if provider.calls != 0 {
		t.Errorf("LoadOrTrain() fetched the feed %d times, want a restore", provider.calls)
	}

	got, err := restored.RecommendIDs(ctx, "u2", recommend.AlgorithmALS, 3)
	if err != nil {
		t.Fatalf("RecommendIDs() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("restored ALS recs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("restored ALS recs = %v, want %v", got, want)
			break
		}
	}
	if _, learned := restored.Weights("u1"); !learned {
		t.Error("learned weights were not restored")
	}
}

func TestEngine_LoadOrTrainWithoutModels(t *testing.T) {
	provider := testProvider()
	e := newEngine(t, provider, WithStore(newStore(t, t.TempDir())))
	if err := e.LoadOrTrain(context.Background()); err != nil {
		t.Fatalf("LoadOrTrain() error = %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("feed calls = %d, want 1", provider.calls)
	}
	if !e.Status().Trained {
		t.Error("LoadOrTrain() did not install a snapshot")
	}
}
