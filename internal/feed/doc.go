// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package feed supplies the rating and movie feeds the engine trains on.
//
// Two providers read the feeds:
//
//   - JSONProvider decodes JSON arrays or JSON Lines files.
//   - DuckDBProvider queries DuckDB tables, or CSV and Parquet exports read
//     in place. The MovieLens layout maps the GroupLens files directly.
//
// BreakerProvider wraps either one with a circuit breaker so a failing
// upstream is not hammered by the retraining loop.
//
// Both providers normalize genres with ParseGenres, which accepts pipe or
// comma lists and JSON arrays of names or {"name"} objects.
package feed
