// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package reranking reorders an already scored candidate list to trade some
// relevance for another objective.
//
//	model scores -> candidates (k * multiplier) -> Reranker -> top k
//
// # Rerankers
//
// MMR (maximal marginal relevance) picks, at each step, the candidate with
// the best blend of its own relevance and its distance from everything
// already picked:
//
//	mmr(i) = lambda * rel(i) - (1 - lambda) * max sim(i, s) over picked s
//
// Relevance is min-max scaled to [0, 1] so it is comparable with a cosine.
//
// Calibration picks the candidate that keeps the list's genre and decade
// mix closest to a target profile, normally the user's liked movies:
//
//	cal(i) = lambda * rel(i) + (1 - lambda) * (1 - min(KL(p || q), 1))
//
// Lambda 1 returns the input order in both.
package reranking
