// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - model training runs and durations
// - recommendation requests, latency and the result cache
// - hybrid weight feedback
// - the data feed circuit breaker
// - the ops API

var (
	// Training Metrics
	TrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marquee_training_duration_seconds",
			Help:    "Duration of model fitting in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"model"}, // "collaborative", "content", "total"
	)

	TrainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_training_runs_total",
			Help: "Total number of training runs",
		},
		[]string{"result"}, // "success", "failure", "skipped", "restored"
	)

	ModelAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marquee_model_age_seconds",
			Help: "Seconds since the serving models were trained",
		},
	)

	ModelEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marquee_model_entities",
			Help: "Number of users and movies in the serving models",
		},
		[]string{"kind"}, // "users", "movies", "ratings"
	)

	// Recommendation Metrics
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_recommendation_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"algorithm", "result"}, // result: "success", "empty", "error"
	)

	RecommendationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marquee_recommendation_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"algorithm"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_recommendation_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_recommendation_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
	)

	// Hybrid Weight Metrics
	FeedbackEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_feedback_events_total",
			Help: "Total number of feedback events applied to hybrid weights",
		},
		[]string{"method"}, // "rl", "gradient"
	)

	ContentWeightMean = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marquee_hybrid_content_weight_mean",
			Help: "Mean content weight across users with learned blends",
		},
	)

	WeightedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marquee_hybrid_weighted_users",
			Help: "Number of users with a learned hybrid blend",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordTraining records the duration of one model fit.
func RecordTraining(model string, duration time.Duration) {
	TrainingDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordTrainingRun counts a finished training run.
func RecordTrainingRun(result string) {
	TrainingRunsTotal.WithLabelValues(result).Inc()
}

// UpdateModelGauges publishes the size and age of the serving models.
func UpdateModelGauges(users, movies, ratings int, trainedAt time.Time) {
	ModelEntities.WithLabelValues("users").Set(float64(users))
	ModelEntities.WithLabelValues("movies").Set(float64(movies))
	ModelEntities.WithLabelValues("ratings").Set(float64(ratings))
	UpdateModelAge(trainedAt)
}

// UpdateModelAge sets the model age gauge. A zero time leaves it unchanged.
func UpdateModelAge(trainedAt time.Time) {
	if trainedAt.IsZero() {
		return
	}
	ModelAge.Set(time.Since(trainedAt).Seconds())
}

// RecordRecommendation records one recommendation request.
func RecordRecommendation(algorithm, result string, duration time.Duration) {
	RecommendationRequests.WithLabelValues(algorithm, result).Inc()
	RecommendationLatency.WithLabelValues(algorithm).Observe(duration.Seconds())
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheHits.Inc()
		return
	}
	CacheMisses.Inc()
}

// RecordFeedback counts a feedback event and refreshes the weight gauges.
func RecordFeedback(method string, contentMean float64, users int) {
	FeedbackEvents.WithLabelValues(method).Inc()
	UpdateWeightGauges(contentMean, users)
}

// UpdateWeightGauges publishes the learned blend summary.
func UpdateWeightGauges(contentMean float64, users int) {
	ContentWeightMean.Set(contentMean)
	WeightedUsers.Set(float64(users))
}

// RecordCircuitBreakerRequest counts a call through a breaker.
func RecordCircuitBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordCircuitBreakerTransition records a state change and updates the state gauge.
func RecordCircuitBreakerTransition(name, from, to string, state float64) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordAPIRequest records an ops API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
