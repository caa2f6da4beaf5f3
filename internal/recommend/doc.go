// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package recommend holds the shared vocabulary of the movie recommendation engine.
//
// # Architecture
//
// Data flows one way through the engine:
//
//	ratings + movies -> RatingMatrix -> {collaborative, content} -> adaptive hybrid -> evaluation
//
// This package defines the leaf types every model builds on:
//
//   - Rating, Movie, ScoredMovie: feed records and model output
//   - RatingMatrix: dense users x movies table with sorted, lock-step index lists
//   - Algorithm: the closed set of strategies a caller may request
//   - Config: hyperparameters for every model, with DefaultConfig and Validate
//
// The models live in the algorithms subpackage and ranking metrics in
// evaluation. Persisted state is in storage, list rerankers are in reranking,
// and engine serves frozen snapshots.
//
// # Rating Semantics
//
// A matrix cell of 0 means "unrated". Ratings are validated into
// [MinRating, MaxRating] at build time so 0 can never be a true rating.
//
// # Thread Safety
//
// RatingMatrix is immutable after BuildMatrix returns and safe for concurrent
// readers. Retraining builds a new matrix rather than mutating one in place.
package recommend
