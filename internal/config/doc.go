// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package config loads the Marquee process configuration.

# Sources

Load layers three koanf sources, later ones winning:

 1. Built-in defaults. Model defaults come from recommend.DefaultConfig.
 2. A YAML file: $MARQUEE_CONFIG, else config.yaml, config.yml, or
    /etc/marquee/config.yaml.
 3. Environment variables listed in the mapping table. Others are ignored.

# Sections

  - server: ops HTTP listener and rate limit
  - logging: zerolog level, format, caller
  - feed: json or duckdb source plus circuit breaker
  - recommend: training schedule and model hyperparameters
  - storage: file or badger model persistence

# Environment Variables

A selection of the mapped variables:

  - HTTP_ADDR: listen address (default: :8090)
  - LOG_LEVEL, LOG_FORMAT: logging (default: info, json)
  - FEED_KIND: json or duckdb (default: json)
  - FEED_RATINGS_PATH, FEED_MOVIES_PATH: JSON feed files
  - FEED_DUCKDB_RATINGS, FEED_DUCKDB_MOVIES: tables or CSV/Parquet paths
  - FEED_DUCKDB_LAYOUT: native or movielens
  - RECOMMEND_TRAIN_INTERVAL: retrain loop period (default: 1h)
  - RECOMMEND_MAX_MODEL_AGE: staleness bound (default: 24h)
  - RECOMMEND_HYBRID_METHOD: reinforcement or gradient
  - STORAGE_BACKEND: file, badger, or none (default: file)
  - STORAGE_DIR: model directory (default: data/models)

# Validation

Field rules are validate struct tags checked by the validation package.
Validate then checks feed and storage requirements and builds the model
configuration once, so a bad hyperparameter fails at startup.
*/
package config
