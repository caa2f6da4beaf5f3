// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/marquee/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "MARQUEE_CONFIG"

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, in increasing priority, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variables, lowercased, to koanf keys.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"http_addr":             "server.addr",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"feed_kind":                  "feed.kind",
	"feed_ratings_path":          "feed.ratings_path",
	"feed_movies_path":           "feed.movies_path",
	"feed_duckdb_path":           "feed.duckdb.path",
	"feed_duckdb_threads":        "feed.duckdb.threads",
	"feed_duckdb_ratings":        "feed.duckdb.ratings",
	"feed_duckdb_movies":         "feed.duckdb.movies",
	"feed_duckdb_layout":         "feed.duckdb.layout",
	"feed_duckdb_ratings_query":  "feed.duckdb.ratings_query",
	"feed_duckdb_movies_query":   "feed.duckdb.movies_query",
	"feed_breaker_enabled":       "feed.breaker.enabled",
	"feed_breaker_timeout":       "feed.breaker.timeout",
	"feed_breaker_min_requests":  "feed.breaker.min_requests",
	"feed_breaker_failure_ratio": "feed.breaker.failure_ratio",

	"recommend_seed":               "recommend.seed",
	"recommend_train_interval":     "recommend.training.interval",
	"recommend_max_model_age":      "recommend.training.max_model_age",
	"recommend_train_timeout":      "recommend.training.timeout",
	"recommend_train_on_startup":   "recommend.training.on_startup",
	"recommend_hybrid_method":      "recommend.hybrid.method",
	"recommend_hybrid_adaptive":    "recommend.hybrid.adaptive",
	"recommend_learning_rate":      "recommend.hybrid.learning_rate",
	"recommend_exploration_rate":   "recommend.hybrid.exploration_rate",
	"recommend_like_threshold":     "recommend.hybrid.like_threshold",
	"recommend_svd_components":     "recommend.svd.components",
	"recommend_als_enabled":        "recommend.als.enabled",
	"recommend_als_factors":        "recommend.als.factors",
	"recommend_als_iterations":     "recommend.als.iterations",
	"recommend_als_regularization": "recommend.als.regularization",
	"recommend_content_combined":   "recommend.content.combined",
	"recommend_cache_enabled":      "recommend.cache.enabled",
	"recommend_cache_ttl":          "recommend.cache.ttl",
	"recommend_cache_max_entries":  "recommend.cache.max_entries",
	"recommend_hidden_gem":         "recommend.hidden_gem",

	"storage_backend": "storage.backend",
	"storage_dir":     "storage.dir",
	"storage_retain":  "storage.retain",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
