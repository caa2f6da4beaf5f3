// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"time"

	"github.com/tomtom215/marquee/internal/feed"
	"github.com/tomtom215/marquee/internal/recommend"
)

// Config is the complete process configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Feed      FeedConfig      `koanf:"feed"`
	Recommend RecommendConfig `koanf:"recommend"`
	Storage   StorageConfig   `koanf:"storage"`
}

// ServerConfig holds the ops HTTP listener settings.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: :8090
	Addr string `koanf:"addr" validate:"required,hostname_port"`

	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// RateLimitRequests per RateLimitWindow per client IP. Zero disables limiting.
	// Default: 60 per 1m
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Default: info
	Level string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`

	// Format is json for production or console for development.
	// Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller adds file:line to every entry.
	Caller bool `koanf:"caller"`
}

// FeedConfig selects and tunes the rating and movie feeds.
type FeedConfig struct {
	// Kind is json or duckdb.
	// Default: json
	Kind string `koanf:"kind" validate:"oneof=json duckdb"`

	// RatingsPath and MoviesPath are the JSON feed files.
	RatingsPath string `koanf:"ratings_path"`
	MoviesPath  string `koanf:"movies_path"`

	DuckDB  DuckDBFeedConfig `koanf:"duckdb"`
	Breaker BreakerConfig    `koanf:"breaker"`
}

// DuckDBFeedConfig mirrors feed.DuckDBConfig.
type DuckDBFeedConfig struct {
	// Path is the database file; empty means in-memory.
	Path    string `koanf:"path"`
	Threads int    `koanf:"threads" validate:"gte=0"`

	// Ratings and Movies are table names or CSV/Parquet paths.
	Ratings string `koanf:"ratings"`
	Movies  string `koanf:"movies"`

	// Layout is native or movielens.
	// Default: native
	Layout string `koanf:"layout" validate:"oneof=native movielens"`

	RatingsQuery string `koanf:"ratings_query"`
	MoviesQuery  string `koanf:"movies_query"`
}

// BreakerConfig holds the feed circuit breaker settings.
type BreakerConfig struct {
	// Enabled wraps the feed in a circuit breaker.
	// Default: true
	Enabled bool `koanf:"enabled"`

	MaxRequests  uint32        `koanf:"max_requests" validate:"gte=1"`
	Interval     time.Duration `koanf:"interval" validate:"gte=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
	MinRequests  uint32        `koanf:"min_requests" validate:"gte=1"`
	FailureRatio float64       `koanf:"failure_ratio" validate:"gt=0,lte=1"`
}

// RecommendConfig holds the model settings operators tune. Everything else
// keeps the recommend.DefaultConfig value.
type RecommendConfig struct {
	// Seed makes training deterministic.
	// Default: 42
	Seed int64 `koanf:"seed"`

	Training TrainingConfig `koanf:"training"`
	Hybrid   HybridConfig   `koanf:"hybrid"`
	SVD      SVDConfig      `koanf:"svd"`
	ALS      ALSConfig      `koanf:"als"`
	Content  ContentConfig  `koanf:"content"`
	Cache    CacheConfig    `koanf:"cache"`

	// HiddenGem toggles the discovery bonus on neighborhood recommendations.
	// Default: true
	HiddenGem bool `koanf:"hidden_gem"`
}

// TrainingConfig controls the retrain loop.
type TrainingConfig struct {
	// Interval is how often the retrain loop wakes up.
	// Default: 1h
	Interval time.Duration `koanf:"interval" validate:"gt=0"`

	// MaxModelAge marks persisted and served models stale.
	// Default: 24h
	MaxModelAge time.Duration `koanf:"max_model_age" validate:"gt=0"`

	// Timeout bounds one training run.
	// Default: 10m
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// OnStartup loads fresh models or trains before serving.
	// Default: true
	OnStartup bool `koanf:"on_startup"`
}

// HybridConfig controls adaptive weight learning.
type HybridConfig struct {
	// Method is reinforcement or gradient.
	// Default: reinforcement
	Method string `koanf:"method" validate:"feedback_method"`

	Adaptive        bool    `koanf:"adaptive"`
	LearningRate    float64 `koanf:"learning_rate" validate:"gt=0,lte=1"`
	ExplorationRate float64 `koanf:"exploration_rate" validate:"gte=0,lte=1"`
	MinWeight       float64 `koanf:"min_weight" validate:"gte=0,lt=1"`
	MaxWeight       float64 `koanf:"max_weight" validate:"gt=0,lte=1,gtfield=MinWeight"`
	LikeThreshold   float64 `koanf:"like_threshold" validate:"gte=0.5,lte=5"`
}

// SVDConfig sets the SVD rank.
type SVDConfig struct {
	Components int `koanf:"components" validate:"gte=1"`
}

// ALSConfig controls alternating least squares.
type ALSConfig struct {
	Enabled        bool    `koanf:"enabled"`
	Factors        int     `koanf:"factors" validate:"gte=1"`
	Iterations     int     `koanf:"iterations" validate:"gte=1"`
	Regularization float64 `koanf:"regularization" validate:"gte=0"`
	Dropout        float64 `koanf:"dropout" validate:"gte=0,lt=1"`
}

// ContentConfig controls the content model.
type ContentConfig struct {
	MaxFeatures int     `koanf:"max_features" validate:"gte=1"`
	MinDF       int     `koanf:"min_df" validate:"gte=1"`
	MaxDF       float64 `koanf:"max_df" validate:"gt=0,lte=1"`

	// Combined uses TF-IDF, genre, and metadata features together.
	// Default: true
	Combined bool `koanf:"combined"`
}

// CacheConfig controls the recommendation result cache.
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	TTL        time.Duration `koanf:"ttl" validate:"gt=0"`
	MaxEntries int           `koanf:"max_entries" validate:"gte=1"`
}

// StorageConfig controls model persistence.
type StorageConfig struct {
	// Backend is file, badger, or none.
	// Default: file
	Backend string `koanf:"backend" validate:"oneof=file badger none"`

	// Dir is the model directory for both backends.
	// Default: ./data/models
	Dir string `koanf:"dir"`

	// Retain is how many versions of each model are kept.
	// Default: 3
	Retain int `koanf:"retain" validate:"gte=1"`
}

// defaultConfig returns the configuration before the file and environment
// are applied. Model defaults come from recommend.DefaultConfig.
func defaultConfig() *Config {
	rc := recommend.DefaultConfig()
	bc := feed.DefaultBreakerConfig()
	return &Config{
		Server: ServerConfig{
			Addr:              ":8090",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   15 * time.Second,
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Feed: FeedConfig{
			Kind:        "json",
			RatingsPath: "data/ratings.json",
			MoviesPath:  "data/movies.json",
			DuckDB: DuckDBFeedConfig{
				Layout: feed.LayoutNative,
			},
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  bc.MaxRequests,
				Interval:     bc.Interval,
				Timeout:      bc.Timeout,
				MinRequests:  bc.MinRequests,
				FailureRatio: bc.FailureRatio,
			},
		},
		Recommend: RecommendConfig{
			Seed: rc.Seed,
			Training: TrainingConfig{
				Interval:    rc.Training.Interval,
				MaxModelAge: rc.Training.MaxModelAge,
				Timeout:     rc.Training.Timeout,
				OnStartup:   rc.Training.OnStartup,
			},
			Hybrid: HybridConfig{
				Method:          rc.Hybrid.Method.String(),
				Adaptive:        rc.Hybrid.Adaptive,
				LearningRate:    rc.Hybrid.LearningRate,
				ExplorationRate: rc.Hybrid.ExplorationRate,
				MinWeight:       rc.Hybrid.MinWeight,
				MaxWeight:       rc.Hybrid.MaxWeight,
				LikeThreshold:   rc.Hybrid.LikeThreshold,
			},
			SVD: SVDConfig{Components: rc.SVD.Components},
			ALS: ALSConfig{
				Enabled:        rc.ALS.Enabled,
				Factors:        rc.ALS.Factors,
				Iterations:     rc.ALS.Iterations,
				Regularization: rc.ALS.Regularization,
				Dropout:        rc.ALS.Dropout,
			},
			Content: ContentConfig{
				MaxFeatures: rc.Content.MaxFeatures,
				MinDF:       rc.Content.MinDF,
				MaxDF:       rc.Content.MaxDF,
				Combined:    rc.Content.Combined,
			},
			Cache: CacheConfig{
				Enabled:    rc.Cache.Enabled,
				TTL:        rc.Cache.TTL,
				MaxEntries: rc.Cache.MaxEntries,
			},
			HiddenGem: rc.HiddenGem.Enabled,
		},
		Storage: StorageConfig{
			Backend: "file",
			Dir:     "data/models",
			Retain:  3,
		},
	}
}

// ModelConfig overlays the tuned settings on recommend.DefaultConfig and
// validates the result.
func (c *Config) ModelConfig() (*recommend.Config, error) {
	r := c.Recommend
	method, err := recommend.ParseFeedbackMethod(r.Hybrid.Method)
	if err != nil {
		return nil, err
	}

	rc := recommend.DefaultConfig()
	rc.Seed = r.Seed

	rc.Training.Interval = r.Training.Interval
	rc.Training.MaxModelAge = r.Training.MaxModelAge
	rc.Training.Timeout = r.Training.Timeout
	rc.Training.OnStartup = r.Training.OnStartup

	rc.Hybrid.Method = method
	rc.Hybrid.Adaptive = r.Hybrid.Adaptive
	rc.Hybrid.LearningRate = r.Hybrid.LearningRate
	rc.Hybrid.ExplorationRate = r.Hybrid.ExplorationRate
	rc.Hybrid.MinWeight = r.Hybrid.MinWeight
	rc.Hybrid.MaxWeight = r.Hybrid.MaxWeight
	rc.Hybrid.LikeThreshold = r.Hybrid.LikeThreshold

	rc.SVD.Components = r.SVD.Components

	rc.ALS.Enabled = r.ALS.Enabled
	rc.ALS.Factors = r.ALS.Factors
	rc.ALS.Iterations = r.ALS.Iterations
	rc.ALS.Regularization = r.ALS.Regularization
	rc.ALS.Dropout = r.ALS.Dropout

	rc.Content.MaxFeatures = r.Content.MaxFeatures
	rc.Content.MinDF = r.Content.MinDF
	rc.Content.MaxDF = r.Content.MaxDF
	rc.Content.Combined = r.Content.Combined

	rc.Cache.Enabled = r.Cache.Enabled
	rc.Cache.TTL = r.Cache.TTL
	rc.Cache.MaxEntries = r.Cache.MaxEntries

	rc.HiddenGem.Enabled = r.HiddenGem

	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return rc, nil
}

// DuckDBConfig converts the duckdb section for feed.NewDuckDBProvider.
func (f FeedConfig) DuckDBConfig() feed.DuckDBConfig {
	return feed.DuckDBConfig{
		Path:          f.DuckDB.Path,
		Threads:       f.DuckDB.Threads,
		RatingsSource: f.DuckDB.Ratings,
		MoviesSource:  f.DuckDB.Movies,
		Layout:        f.DuckDB.Layout,
		RatingsQuery:  f.DuckDB.RatingsQuery,
		MoviesQuery:   f.DuckDB.MoviesQuery,
	}
}

// BreakerSettings converts the breaker section for feed.NewBreakerProvider.
func (f FeedConfig) BreakerSettings() feed.BreakerConfig {
	return feed.BreakerConfig{
		Name:         "feed-" + f.Kind,
		MaxRequests:  f.Breaker.MaxRequests,
		Interval:     f.Breaker.Interval,
		Timeout:      f.Breaker.Timeout,
		MinRequests:  f.Breaker.MinRequests,
		FailureRatio: f.Breaker.FailureRatio,
	}
}
