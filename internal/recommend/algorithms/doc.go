// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package algorithms implements the recommendation models.
//
// # Models
//
// Collaborative filtering (Collaborative):
//   - User-based neighborhood prediction over a cosine user similarity matrix,
//     with bias correction, confidence shrinkage, and a hidden-gem bonus
//   - Truncated SVD: project a user's row onto the top-k right singular vectors
//   - ALS: explicit-feedback alternating least squares with L2 and optional
//     dropout regularization
//   - A fixed-weight blend of the three
//
// Content-based filtering (Content):
//   - TF-IDF over overviews (unigrams and bigrams, English stop words removed)
//   - One-hot genres
//   - Standardized numeric metadata
//   - Combined cosine or TF-IDF linear kernel similarity
//
// Adaptive hybrid (Hybrid, WeightBook):
//   - Weighted sum of collaborative and content scores
//   - Per-user blends learned online from rating feedback
//   - Context rules for time of day, mood, and device
//
// # Usage
//
//	collab := algorithms.NewCollaborative(cfg, logger)
//	if err := collab.Prepare(ratings, movies); err != nil {
//	    return err
//	}
//	if err := collab.Fit(ctx); err != nil {
//	    return err
//	}
//	recs := collab.ALSRecommendations("user-1", 10)
//
// # Unknown Entities
//
// Getters return an empty list for a user or movie outside the trained index.
// Point predictions (PredictRating, PredictALS) return recommend.ErrUnknownUser
// or recommend.ErrUnknownMovie instead.
//
// # Thread Safety
//
// Fit methods take an exclusive lock and getters a shared lock. The engine
// never refits a model that is serving; it builds a new one and swaps it in.
// WeightBook serializes updates per user.
//
// # Persistence
//
// Each model exposes Snapshot and a Restore constructor over a versioned state
// struct whose Validate method checks array shapes against the index lists.
package algorithms
