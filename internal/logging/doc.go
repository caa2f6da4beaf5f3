// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package logging configures the process-wide zerolog logger.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("addr", addr).Msg("Listening")
//
// Long-lived components take a tagged child at construction and keep it by
// value:
//
//	engine.New(cfg, provider, logging.WithComponent("engine"))
//
// Request handlers use Ctx to pick up the request id set by the API
// middleware.
//
// # slog
//
// SlogHandler adapts zerolog to log/slog for libraries that only accept an
// *slog.Logger, such as sutureslog.
//
// # Best Practices
//
// Always terminate a chain with Msg or Send, and prefer typed fields to
// formatted messages:
//
//	logging.Info().Int("users", n).Msg("Snapshot installed")  // Correct
//	logging.Info().Msgf("installed %d users", n)              // Avoid
package logging
