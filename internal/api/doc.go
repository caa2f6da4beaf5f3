// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package api serves the operational HTTP surface.
//
// # Routes
//
//	GET  /healthz                 liveness, always 200
//	GET  /readyz                  200 once a snapshot is serving, else 503
//	GET  /metrics                 Prometheus exposition
//	GET  /api/v1/models/status    engine status
//	GET  /api/v1/models           persisted model metadata
//	POST /api/v1/models/retrain   202 when queued, 409 while training
//	GET  /api/v1/weights/stats    hybrid weight statistics
//
// Every /api/v1 route is rate limited per client IP with httprate and
// answers with the JSON envelope {status, data, metadata, error}.
package api
