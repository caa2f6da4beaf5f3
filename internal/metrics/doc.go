// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package metrics provides Prometheus metrics for the recommendation service.

All collectors are registered on the default registry through promauto and
exposed by the ops router at /metrics:

	curl http://localhost:8088/metrics

# Available Metrics

Training:
  - marquee_training_duration_seconds: Fit time (histogram)
    Labels: model (collaborative, content, total)
  - marquee_training_runs_total: Finished runs (counter)
    Labels: result (success, failure, skipped, restored)
  - marquee_model_age_seconds: Age of the serving models (gauge)
  - marquee_model_entities: Users, movies and ratings in the serving models (gauge)

Recommendations:
  - marquee_recommendation_requests_total: Requests (counter)
    Labels: algorithm, result (success, empty, error)
  - marquee_recommendation_duration_seconds: Latency (histogram)
  - marquee_recommendation_cache_hits_total / _misses_total

Hybrid weights:
  - marquee_feedback_events_total: Feedback applied (counter), by method
  - marquee_hybrid_content_weight_mean: Mean learned content weight (gauge)
  - marquee_hybrid_weighted_users: Users with a learned blend (gauge)

Data feed circuit breaker:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Labels name, result
  - circuit_breaker_state_transitions_total

Ops API:
  - api_requests_total, api_request_duration_seconds

# Usage

	start := time.Now()
	recs, err := engine.Recommend(ctx, userID, algorithm, n)
	metrics.RecordRecommendation(algorithm.String(), result, time.Since(start))
*/
package metrics
