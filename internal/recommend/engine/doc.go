// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package engine serves recommendations from an atomically swapped model
// snapshot and runs training, persistence, and feedback around it.
//
// # Snapshots
//
// Train fetches both feeds through a DataProvider and fits the collaborative
// and content models in parallel. The fitted pair, with the liked-movie index
// derived from the rating matrix, becomes an immutable Snapshot that replaces
// the serving one in a single atomic store. Requests already holding the old
// snapshot finish against it. Only one Train runs at a time; a second caller
// gets ErrTrainingInProgress.
//
// The hybrid weight book is not part of a snapshot. Per-user blends survive
// retraining and are checkpointed separately with SaveState.
//
// # Dispatch
//
// Recommend looks the algorithm up in a table built at construction:
//
//	hybrid         adaptive blend of collaborative and content scores
//	collaborative  neighborhood prediction with the hidden-gem bonus
//	content        similarity to the user's liked movies
//	svd            truncated SVD reconstruction
//	als            ALS factor scores
//
// Results are cached per snapshot, user, algorithm, and list length. A new
// snapshot clears the cache; feedback clears the user's entries.
//
// RecommendDiverse and RecommendCalibrated draw a wider candidate list from
// the same table and rerank it with the reranking package. They bypass the
// cache.
//
// # Persistence
//
// With WithStore, Train saves the collaborative, content, and hybrid blobs.
// LoadOrTrain restores them when all three are present and fresh, and trains
// otherwise.
//
// # Offline checks
//
// Evaluate scores the serving snapshot on held-out ratings. CrossValidate
// refits the collaborative model per fold on a fresh feed read and leaves
// the serving snapshot alone.
package engine
