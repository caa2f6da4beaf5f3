// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package cache provides a bounded, thread-safe LRU cache with per-entry TTL.

The engine keeps recommendation lists here keyed by snapshot, user,
algorithm, and list length:

	c := cache.NewLRU[key, []recommend.ScoredMovie](1024, 10*time.Minute)
	c.Add(k, recs)
	if recs, ok := c.Get(k); ok {
	    // serve cached
	}

Expired entries are dropped lazily on Get; CleanupExpired sweeps them all.
RemoveFunc deletes every key matching a predicate, which is how a user's
entries are invalidated after feedback.

# Thread Safety

All methods take a single mutex. Get mutates the recency list, so there is
no read lock.
*/
package cache
