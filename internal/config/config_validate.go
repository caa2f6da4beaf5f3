// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"errors"
	"fmt"

	"github.com/tomtom215/marquee/internal/validation"
)

// Validate checks field rules, then the rules that span sections.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if _, err := c.ModelConfig(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return nil
}

func (c *Config) validateFeed() error {
	f := c.Feed
	switch f.Kind {
	case "json":
		if f.RatingsPath == "" || f.MoviesPath == "" {
			return errors.New("feed.ratings_path and feed.movies_path are required for the json feed")
		}
	case "duckdb":
		if f.DuckDB.Ratings == "" && f.DuckDB.RatingsQuery == "" {
			return errors.New("feed.duckdb.ratings or feed.duckdb.ratings_query is required for the duckdb feed")
		}
		if f.DuckDB.Movies == "" && f.DuckDB.MoviesQuery == "" {
			return errors.New("feed.duckdb.movies or feed.duckdb.movies_query is required for the duckdb feed")
		}
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Backend != "none" && c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required for the %s backend", c.Storage.Backend)
	}
	return nil
}
