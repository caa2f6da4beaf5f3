// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver

	"github.com/tomtom215/marquee/internal/recommend"
)

// Table layouts understood by DuckDBProvider.
const (
	// LayoutNative uses snake_case columns matching the JSON feed fields.
	LayoutNative = "native"

	// LayoutMovieLens reads ratings.csv (userId, movieId, rating, timestamp)
	// and movies.csv (movieId, title, genres) as published by GroupLens.
	LayoutMovieLens = "movielens"
)

// ErrBadSource is returned for a source that is neither a file nor a table name.
var ErrBadSource = errors.New("invalid feed source")

// DuckDBConfig selects where the feeds come from.
type DuckDBConfig struct {
	// Path is the database file. Empty opens an in-memory database.
	Path string

	// Threads caps DuckDB worker threads. Zero leaves the default.
	Threads int

	// RatingsSource and MoviesSource are table names or paths to
	// .csv, .csv.gz, .tsv, or .parquet files.
	RatingsSource string
	MoviesSource  string

	// Layout is LayoutNative or LayoutMovieLens.
	Layout string

	// RatingsQuery and MoviesQuery replace the generated queries. They must
	// return the native column order.
	RatingsQuery string
	MoviesQuery  string
}

// DuckDBProvider queries ratings and movies through DuckDB, which reads CSV
// and Parquet exports directly.
type DuckDBProvider struct {
	db  *sql.DB
	cfg DuckDBConfig
}

// NewDuckDBProvider opens the database and checks the configured sources.
func NewDuckDBProvider(cfg DuckDBConfig) (*DuckDBProvider, error) {
	if cfg.Layout == "" {
		cfg.Layout = LayoutNative
	}
	if cfg.Layout != LayoutNative && cfg.Layout != LayoutMovieLens {
		return nil, fmt.Errorf("%w: unknown layout %q", ErrBadSource, cfg.Layout)
	}
	if cfg.RatingsQuery == "" {
		if _, err := sourceExpr(cfg.RatingsSource); err != nil {
			return nil, fmt.Errorf("ratings: %w", err)
		}
	}
	if cfg.MoviesQuery == "" {
		if _, err := sourceExpr(cfg.MoviesSource); err != nil {
			return nil, fmt.Errorf("movies: %w", err)
		}
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	connStr := path + "?autoinstall_known_extensions=false&autoload_known_extensions=false"
	if cfg.Threads > 0 {
		connStr += fmt.Sprintf("&threads=%d", cfg.Threads)
	}
	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to duckdb: %w", err)
	}
	return &DuckDBProvider{db: db, cfg: cfg}, nil
}

// Close releases the database.
func (p *DuckDBProvider) Close() error {
	return p.db.Close()
}

// DB exposes the connection for loading tables.
func (p *DuckDBProvider) DB() *sql.DB {
	return p.db
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// sourceExpr turns a table name or file path into a FROM expression.
func sourceExpr(src string) (string, error) {
	if src == "" {
		return "", ErrSourceMissing
	}
	quoted := "'" + strings.ReplaceAll(src, "'", "''") + "'"
	lower := strings.ToLower(src)
	switch {
	case strings.HasSuffix(lower, ".csv"), strings.HasSuffix(lower, ".csv.gz"), strings.HasSuffix(lower, ".tsv"):
		return "read_csv_auto(" + quoted + ", header = true)", nil
	case strings.HasSuffix(lower, ".parquet"):
		return "read_parquet(" + quoted + ")", nil
	case identRe.MatchString(src):
		return src, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadSource, src)
}

func (p *DuckDBProvider) ratingsQuery() (string, error) {
	if p.cfg.RatingsQuery != "" {
		return p.cfg.RatingsQuery, nil
	}
	from, err := sourceExpr(p.cfg.RatingsSource)
	if err != nil {
		return "", err
	}
	user, movie := "user_id", "movie_id"
	if p.cfg.Layout == LayoutMovieLens {
		user, movie = "userId", "movieId"
	}
	return fmt.Sprintf(`SELECT CAST(%s AS VARCHAR), CAST(%s AS BIGINT), CAST(rating AS DOUBLE), CAST("timestamp" AS BIGINT) FROM %s`,
		user, movie, from), nil
}

func (p *DuckDBProvider) moviesQuery() (string, error) {
	if p.cfg.MoviesQuery != "" {
		return p.cfg.MoviesQuery, nil
	}
	from, err := sourceExpr(p.cfg.MoviesSource)
	if err != nil {
		return "", err
	}
	if p.cfg.Layout == LayoutMovieLens {
		return fmt.Sprintf(`SELECT CAST(movieId AS BIGINT), title, CAST(genres AS VARCHAR) FROM %s`, from), nil
	}
	return fmt.Sprintf(`SELECT CAST(id AS BIGINT), title, overview, CAST(genres AS VARCHAR),
		CAST(popularity AS DOUBLE), CAST(vote_average AS DOUBLE), CAST(vote_count AS BIGINT),
		CAST(runtime AS BIGINT), CAST(release_date AS VARCHAR),
		CAST(budget AS DOUBLE), CAST(revenue AS DOUBLE),
		CAST(director_score AS DOUBLE), CAST(actor_score AS DOUBLE)
		FROM %s`, from), nil
}

// Ratings runs the ratings query. A null timestamp leaves the zero time.
func (p *DuckDBProvider) Ratings(ctx context.Context) ([]recommend.Rating, error) {
	query, err := p.ratingsQuery()
	if err != nil {
		return nil, fmt.Errorf("ratings feed: %w", err)
	}
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ratings feed: %w", err)
	}
	defer rows.Close()

	var out []recommend.Rating
	for rows.Next() {
		var (
			user  sql.NullString
			movie sql.NullInt64
			value sql.NullFloat64
			ts    sql.NullInt64
		)
		if err := rows.Scan(&user, &movie, &value, &ts); err != nil {
			return nil, fmt.Errorf("ratings feed: %w: %v", ErrBadRecord, err)
		}
		if !user.Valid || !movie.Valid || !value.Valid {
			return nil, fmt.Errorf("ratings feed: %w: null key column at row %d", ErrBadRecord, len(out)+1)
		}
		r := recommend.Rating{UserID: user.String, MovieID: int(movie.Int64), Value: value.Float64}
		if ts.Valid {
			r.Timestamp = time.Unix(ts.Int64, 0).UTC()
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ratings feed: %w", err)
	}
	return out, nil
}

// Movies runs the catalog query.
func (p *DuckDBProvider) Movies(ctx context.Context) ([]recommend.Movie, error) {
	query, err := p.moviesQuery()
	if err != nil {
		return nil, fmt.Errorf("movies feed: %w", err)
	}
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("movies feed: %w", err)
	}
	defer rows.Close()

	var out []recommend.Movie
	for rows.Next() {
		var m recommend.Movie
		if p.cfg.Layout == LayoutMovieLens && p.cfg.MoviesQuery == "" {
			m, err = scanMovieLensMovie(rows)
		} else {
			m, err = scanNativeMovie(rows)
		}
		if err != nil {
			return nil, fmt.Errorf("movies feed: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("movies feed: %w", err)
	}
	return out, nil
}

func scanMovieLensMovie(rows *sql.Rows) (recommend.Movie, error) {
	var (
		id     sql.NullInt64
		title  sql.NullString
		genres sql.NullString
	)
	if err := rows.Scan(&id, &title, &genres); err != nil {
		return recommend.Movie{}, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	if !id.Valid {
		return recommend.Movie{}, fmt.Errorf("%w: null movie id", ErrBadRecord)
	}
	return movieLensMovie(int(id.Int64), title.String, genres.String), nil
}

func scanNativeMovie(rows *sql.Rows) (recommend.Movie, error) {
	var (
		id                  sql.NullInt64
		title, overview     sql.NullString
		genres, releaseDate sql.NullString
		popularity, voteAvg sql.NullFloat64
		voteCount, runtime  sql.NullInt64
		budget, revenue     sql.NullFloat64
		director, actor     sql.NullFloat64
	)
	if err := rows.Scan(&id, &title, &overview, &genres,
		&popularity, &voteAvg, &voteCount, &runtime, &releaseDate,
		&budget, &revenue, &director, &actor); err != nil {
		return recommend.Movie{}, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	if !id.Valid {
		return recommend.Movie{}, fmt.Errorf("%w: null movie id", ErrBadRecord)
	}
	return recommend.Movie{
		ID:          int(id.Int64),
		Title:       title.String,
		Overview:    overview.String,
		Genres:      ParseGenres(genres.String),
		Popularity:  popularity.Float64,
		VoteAverage: voteAvg.Float64,
		VoteCount:   int(voteCount.Int64),
		Runtime:     int(runtime.Int64),
		ReleaseDate: releaseDate.String,
		Budget:      budget.Float64,
		Revenue:     revenue.Float64,

		DirectorScore: director.Float64,
		ActorScore:    actor.Float64,
	}, nil
}
