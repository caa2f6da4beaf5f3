// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package recommend

import (
	"fmt"
	"math"
	"time"
)

// Config contains all configuration for the recommendation models.
type Config struct {
	// Neighborhood contains parameters for user-based prediction.
	Neighborhood NeighborhoodConfig `json:"neighborhood"`

	// HiddenGem contains the discovery bonus applied on the neighborhood path.
	HiddenGem HiddenGemConfig `json:"hidden_gem"`

	// SVD contains parameters for truncated SVD.
	SVD SVDConfig `json:"svd"`

	// ALS contains parameters for alternating least squares.
	ALS ALSConfig `json:"als"`

	// Blend contains the fixed weights of the three-way collaborative blend.
	Blend BlendConfig `json:"blend"`

	// Content contains parameters for content-based filtering.
	Content ContentConfig `json:"content"`

	// Hybrid contains parameters for adaptive weight learning.
	Hybrid HybridConfig `json:"hybrid"`

	// Training contains training schedule parameters.
	Training TrainingConfig `json:"training"`

	// Cache contains result caching parameters.
	Cache CacheConfig `json:"cache"`

	// Seed is the random seed for deterministic behavior.
	// Default: 42.
	Seed int64 `json:"seed"`
}

// NeighborhoodConfig contains parameters for user-based neighborhood prediction.
type NeighborhoodConfig struct {
	// MinSimilarity is the noise floor; raters at or below it are ignored.
	// Default: 0.1.
	MinSimilarity float64 `json:"min_similarity"`

	// ConfidenceScale is the similarity mass at which a prediction is fully trusted.
	// Below it the prediction regresses toward the user's mean.
	// Default: 10.
	ConfidenceScale float64 `json:"confidence_scale"`
}

// HiddenGemConfig tunes the bias toward high-quality, under-exposed movies.
type HiddenGemConfig struct {
	// Enabled toggles the layer. When false only the base prediction ranks.
	// Default: true.
	Enabled bool `json:"enabled"`

	// QualityFloor skips candidates whose mean rating is lower.
	// Default: 3.5.
	QualityFloor float64 `json:"quality_floor"`

	// MinRating is the mean rating a movie needs to qualify as a gem.
	// Default: 4.0.
	MinRating float64 `json:"min_rating"`

	// ExposureRatio is the rated-by fraction of users below which a movie is under-exposed.
	// Default: 0.3.
	ExposureRatio float64 `json:"exposure_ratio"`

	// MaxBonus is the bonus at zero exposure, scaled down by (1 - ratio).
	// Default: 0.8.
	MaxBonus float64 `json:"max_bonus"`
}

// SVDConfig contains parameters for truncated SVD.
type SVDConfig struct {
	// Components is the latent rank. Clamped to min(users, movies) at fit time.
	// Default: 50.
	Components int `json:"components"`
}

// ALSConfig contains parameters for alternating least squares.
type ALSConfig struct {
	// Enabled toggles ALS fitting during training.
	// Default: true.
	Enabled bool `json:"enabled"`

	// Factors is the latent dimension.
	// Default: 50.
	Factors int `json:"factors"`

	// Iterations is the fixed number of full alternations.
	// Default: 10.
	Iterations int `json:"iterations"`

	// Regularization is the L2 penalty added to each ridge system.
	// Default: 0.1.
	Regularization float64 `json:"regularization"`

	// Dropout is the probability of zeroing an entry of the fixed factors each half-step.
	// Default: 0.0.
	Dropout float64 `json:"dropout"`

	// InitStdDev is the standard deviation of the normal factor initialization.
	// Default: 0.1.
	InitStdDev float64 `json:"init_std_dev"`

	// RMSEEvery logs training RMSE every N iterations.
	// Default: 2.
	RMSEEvery int `json:"rmse_every"`
}

// BlendConfig contains the fixed weights of the collaborative three-way blend.
type BlendConfig struct {
	// Neighborhood, SVD and ALS weights when ALS factors are available.
	// Default: 0.3, 0.3, 0.4.
	Neighborhood float64 `json:"neighborhood"`
	SVD          float64 `json:"svd"`
	ALS          float64 `json:"als"`

	// NoALSNeighborhood and NoALSSVD apply when ALS is not fitted.
	// Default: 0.4, 0.6.
	NoALSNeighborhood float64 `json:"no_als_neighborhood"`
	NoALSSVD          float64 `json:"no_als_svd"`
}

// ContentConfig contains parameters for content-based filtering.
type ContentConfig struct {
	// MaxFeatures caps the TF-IDF vocabulary by corpus term frequency.
	// Default: 5000.
	MaxFeatures int `json:"max_features"`

	// MinDF drops terms appearing in fewer documents.
	// Default: 2.
	MinDF int `json:"min_df"`

	// MaxDF drops terms appearing in more than this fraction of documents.
	// Default: 0.8.
	MaxDF float64 `json:"max_df"`

	// TextWeight, GenreWeight and MetadataWeight scale each feature block
	// before the combined cosine.
	// Default: 0.5, 0.3, 0.2.
	TextWeight     float64 `json:"text_weight"`
	GenreWeight    float64 `json:"genre_weight"`
	MetadataWeight float64 `json:"metadata_weight"`

	// Combined selects the concatenated feature space over TF-IDF alone.
	// Default: true.
	Combined bool `json:"combined"`
}

// HybridConfig contains parameters for adaptive weight learning.
type HybridConfig struct {
	// LearningRate scales the reward applied to the content weight.
	// Default: 0.1.
	LearningRate float64 `json:"learning_rate"`

	// ExplorationRate is the initial epsilon of the epsilon-greedy update.
	// Default: 0.1.
	ExplorationRate float64 `json:"exploration_rate"`

	// ExplorationDecay multiplies epsilon after every reinforcement update.
	// Default: 0.995.
	ExplorationDecay float64 `json:"exploration_decay"`

	// ExplorationStep bounds the uniform random nudge when exploring.
	// Default: 0.1.
	ExplorationStep float64 `json:"exploration_step"`

	// MinWeight and MaxWeight bound the content weight.
	// Default: 0.1, 0.9.
	MinWeight float64 `json:"min_weight"`
	MaxWeight float64 `json:"max_weight"`

	// LikeThreshold is the rating at which a movie counts as liked for content recommendations.
	// Default: 4.0.
	LikeThreshold float64 `json:"like_threshold"`

	// HistorySize bounds the retained feedback history per user.
	// Default: 50.
	HistorySize int `json:"history_size"`

	// Method is the default update rule.
	// Default: FeedbackReinforcement.
	Method FeedbackMethod `json:"method"`

	// Adaptive applies per-user weights when true, global weights otherwise.
	// Default: true.
	Adaptive bool `json:"adaptive"`
}

// TrainingConfig contains training schedule parameters.
type TrainingConfig struct {
	// Interval is how often the retrain loop wakes up.
	// Default: 1h.
	Interval time.Duration `json:"interval"`

	// MaxModelAge marks persisted models as stale.
	// Default: 24h.
	MaxModelAge time.Duration `json:"max_model_age"`

	// Timeout bounds a single training run.
	// Default: 10m.
	Timeout time.Duration `json:"timeout"`

	// OnStartup loads fresh models or trains before serving.
	// Default: true.
	OnStartup bool `json:"on_startup"`

	// ContentMultiplier is how many candidates the content strategy requests per result.
	// Default: 3.
	ContentMultiplier int `json:"content_multiplier"`
}

// CacheConfig contains caching parameters.
type CacheConfig struct {
	// Enabled toggles result caching.
	// Default: true.
	Enabled bool `json:"enabled"`

	// TTL is the cache entry time-to-live.
	// Default: 5m.
	TTL time.Duration `json:"ttl"`

	// MaxEntries is the maximum number of cached entries.
	// Default: 10000.
	MaxEntries int `json:"max_entries"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Neighborhood: NeighborhoodConfig{
			MinSimilarity:   0.1,
			ConfidenceScale: 10,
		},
		HiddenGem: HiddenGemConfig{
			Enabled:       true,
			QualityFloor:  3.5,
			MinRating:     4.0,
			ExposureRatio: 0.3,
			MaxBonus:      0.8,
		},
		SVD: SVDConfig{
			Components: 50,
		},
		ALS: ALSConfig{
			Enabled:        true,
			Factors:        50,
			Iterations:     10,
			Regularization: 0.1,
			Dropout:        0.0,
			InitStdDev:     0.1,
			RMSEEvery:      2,
		},
		Blend: BlendConfig{
			Neighborhood:      0.3,
			SVD:               0.3,
			ALS:               0.4,
			NoALSNeighborhood: 0.4,
			NoALSSVD:          0.6,
		},
		Content: ContentConfig{
			MaxFeatures:    5000,
			MinDF:          2,
			MaxDF:          0.8,
			TextWeight:     0.5,
			GenreWeight:    0.3,
			MetadataWeight: 0.2,
			Combined:       true,
		},
		Hybrid: HybridConfig{
			LearningRate:     0.1,
			ExplorationRate:  0.1,
			ExplorationDecay: 0.995,
			ExplorationStep:  0.1,
			MinWeight:        0.1,
			MaxWeight:        0.9,
			LikeThreshold:    4.0,
			HistorySize:      50,
			Method:           FeedbackReinforcement,
			Adaptive:         true,
		},
		Training: TrainingConfig{
			Interval:          time.Hour,
			MaxModelAge:       24 * time.Hour,
			Timeout:           10 * time.Minute,
			OnStartup:         true,
			ContentMultiplier: 3,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
		},
		Seed: 42,
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Neighborhood.MinSimilarity < -1 || c.Neighborhood.MinSimilarity >= 1 {
		return fmt.Errorf("neighborhood.min_similarity must be in [-1, 1), got %f", c.Neighborhood.MinSimilarity)
	}
	if c.Neighborhood.ConfidenceScale <= 0 {
		return fmt.Errorf("neighborhood.confidence_scale must be positive, got %f", c.Neighborhood.ConfidenceScale)
	}

	if c.HiddenGem.ExposureRatio < 0 || c.HiddenGem.ExposureRatio > 1 {
		return fmt.Errorf("hidden_gem.exposure_ratio must be in [0, 1], got %f", c.HiddenGem.ExposureRatio)
	}
	if c.HiddenGem.MaxBonus < 0 {
		return fmt.Errorf("hidden_gem.max_bonus must be non-negative, got %f", c.HiddenGem.MaxBonus)
	}

	if c.SVD.Components < 1 {
		return fmt.Errorf("svd.components must be positive, got %d", c.SVD.Components)
	}

	if c.ALS.Factors < 1 {
		return fmt.Errorf("als.factors must be positive, got %d", c.ALS.Factors)
	}
	if c.ALS.Iterations < 1 {
		return fmt.Errorf("als.iterations must be positive, got %d", c.ALS.Iterations)
	}
	if c.ALS.Regularization < 0 {
		return fmt.Errorf("als.regularization must be non-negative, got %f", c.ALS.Regularization)
	}
	if c.ALS.Dropout < 0 || c.ALS.Dropout >= 1 {
		return fmt.Errorf("als.dropout must be in [0, 1), got %f", c.ALS.Dropout)
	}
	if c.ALS.InitStdDev <= 0 {
		return fmt.Errorf("als.init_std_dev must be positive, got %f", c.ALS.InitStdDev)
	}

	if c.Content.MaxFeatures < 1 {
		return fmt.Errorf("content.max_features must be positive, got %d", c.Content.MaxFeatures)
	}
	if c.Content.MinDF < 1 {
		return fmt.Errorf("content.min_df must be positive, got %d", c.Content.MinDF)
	}
	if c.Content.MaxDF <= 0 || c.Content.MaxDF > 1 {
		return fmt.Errorf("content.max_df must be in (0, 1], got %f", c.Content.MaxDF)
	}

	h := c.Hybrid
	if h.LearningRate <= 0 || h.LearningRate > 1 {
		return fmt.Errorf("hybrid.learning_rate must be in (0, 1], got %f", h.LearningRate)
	}
	if h.ExplorationRate < 0 || h.ExplorationRate > 1 {
		return fmt.Errorf("hybrid.exploration_rate must be in [0, 1], got %f", h.ExplorationRate)
	}
	if h.ExplorationDecay <= 0 || h.ExplorationDecay > 1 {
		return fmt.Errorf("hybrid.exploration_decay must be in (0, 1], got %f", h.ExplorationDecay)
	}
	if h.MinWeight < 0 || h.MaxWeight > 1 || h.MinWeight >= h.MaxWeight {
		return fmt.Errorf("hybrid weight bounds must satisfy 0 <= min < max <= 1, got [%f, %f]", h.MinWeight, h.MaxWeight)
	}
	if h.LikeThreshold < MinRating || h.LikeThreshold > MaxRating {
		return fmt.Errorf("hybrid.like_threshold must be in [%v, %v], got %f", MinRating, MaxRating, h.LikeThreshold)
	}
	if h.Method != FeedbackReinforcement && h.Method != FeedbackGradient {
		return fmt.Errorf("hybrid.method is not a known feedback method: %d", h.Method)
	}

	if c.Training.MaxModelAge <= 0 {
		return fmt.Errorf("training.max_model_age must be positive, got %v", c.Training.MaxModelAge)
	}
	if c.Training.Timeout <= 0 {
		return fmt.Errorf("training.timeout must be positive, got %v", c.Training.Timeout)
	}
	if c.Training.ContentMultiplier < 1 {
		return fmt.Errorf("training.content_multiplier must be positive, got %d", c.Training.ContentMultiplier)
	}

	for name, w := range map[string]float64{
		"blend.neighborhood": c.Blend.Neighborhood, "blend.svd": c.Blend.SVD, "blend.als": c.Blend.ALS,
		"blend.no_als_neighborhood": c.Blend.NoALSNeighborhood, "blend.no_als_svd": c.Blend.NoALSSVD,
	} {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("%s must be non-negative, got %f", name, w)
		}
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs contain only value types
	clone := *c
	return &clone
}
