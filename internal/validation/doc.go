// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package validation wraps go-playground/validator with the rules and
// messages used for configuration.
//
// Besides the built-in tags it registers:
//
//	algorithm        a recommendation algorithm name
//	feedback_method  a hybrid weight update rule
//
// Errors name fields by their koanf key path, for example
// "recommend.hybrid.min_weight must be less than 1".
package validation
