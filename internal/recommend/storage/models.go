// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SchemaVersion is the layout of the stored envelope. Blobs written with a
// different value are rejected.
const SchemaVersion = 1

// Model names for the three trained components.
const (
	ModelCollaborative = "collaborative"
	ModelContent       = "content"
	ModelHybrid        = "hybrid"
)

// DefaultMaxAge is the staleness threshold used when none is configured.
const DefaultMaxAge = 24 * time.Hour

var (
	// ErrModelNotFound is returned when no version of a model is stored.
	ErrModelNotFound = errors.New("model not found")

	// ErrChecksumMismatch is returned when a payload does not match its checksum.
	ErrChecksumMismatch = errors.New("model checksum mismatch")

	// ErrSchemaMismatch is returned when a blob was written with another SchemaVersion.
	ErrSchemaMismatch = errors.New("model schema mismatch")

	// ErrInvalidModel is returned when a decoded state fails its own validation.
	ErrInvalidModel = errors.New("invalid model state")
)

// Metadata describes one stored model version.
type Metadata struct {
	Name          string    `json:"name"`
	Algorithm     string    `json:"algorithm"`
	Version       int       `json:"version"`
	SchemaVersion int       `json:"schema_version"`
	SavedAt       time.Time `json:"saved_at"`

	// Rows and Cols record the training matrix shape.
	Rows int `json:"rows"`
	Cols int `json:"cols"`

	// Checksum is the hex SHA-256 of the uncompressed gob payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`
}

// storedBlob is the gob envelope written to the backend.
type storedBlob struct {
	Metadata       Metadata
	CompressedData []byte
}

// validator is implemented by state structs that check their own shapes.
type validator interface {
	Validate() error
}

// Store encodes model state and hands it to a Backend.
type Store struct {
	backend Backend
	logger  zerolog.Logger
	mu      sync.Mutex
	now     func() time.Time
}

// NewStore wraps a backend.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewStore(backend Backend, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.With().Str("component", "model_store").Logger(),
		now:     time.Now,
	}
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Save encodes model and stores it as the given version. A version <= 0 is
// assigned one past the latest stored version.
func (s *Store) Save(ctx context.Context, name, algorithm string, version int, model any, rows, cols int) (Metadata, error) {
	if name == "" {
		return Metadata{}, errors.New("model name is required")
	}
	if v, ok := model.(validator); ok {
		if err := v.Validate(); err != nil {
			return Metadata{}, fmt.Errorf("%w: %s: %w", ErrInvalidModel, name, err)
		}
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(model); err != nil {
		return Metadata{}, fmt.Errorf("encode model: %w", err)
	}
	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return Metadata{}, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return Metadata{}, fmt.Errorf("finalize compression: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if version <= 0 {
		latest, err := s.latest(ctx, name)
		if err != nil && !errors.Is(err, ErrModelNotFound) {
			return Metadata{}, err
		}
		version = latest + 1
	}

	meta := Metadata{
		Name:          name,
		Algorithm:     algorithm,
		Version:       version,
		SchemaVersion: SchemaVersion,
		SavedAt:       s.now().UTC(),
		Rows:          rows,
		Cols:          cols,
		Checksum:      hex.EncodeToString(hash[:]),
		SizeBytes:     int64(compressed.Len()),
	}

	var blob bytes.Buffer
	if err := gob.NewEncoder(&blob).Encode(storedBlob{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		return Metadata{}, fmt.Errorf("encode envelope: %w", err)
	}
	if err := s.backend.Put(ctx, name, version, blob.Bytes()); err != nil {
		return Metadata{}, fmt.Errorf("store %s: %w", name, err)
	}

	s.logger.Debug().
		Str("model", name).
		Int("version", version).
		Int64("size_bytes", meta.SizeBytes).
		Msg("Model saved")
	return meta, nil
}

// latest returns the highest stored version of name.
func (s *Store) latest(ctx context.Context, name string) (int, error) {
	versions, err := s.backend.Versions(ctx, name)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return versions[len(versions)-1], nil
}

// readBlob fetches and decodes the envelope of the latest version.
func (s *Store) readBlob(ctx context.Context, name string) (*storedBlob, error) {
	version, err := s.latest(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := s.backend.Get(ctx, name, version)
	if err != nil {
		return nil, err
	}
	var sb storedBlob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sb); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if sb.Metadata.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: %s has schema %d, want %d",
			ErrSchemaMismatch, name, sb.Metadata.SchemaVersion, SchemaVersion)
	}
	return &sb, nil
}

// Load decodes the latest version of name into target, which must be a
// pointer. Any error means the caller should retrain.
func (s *Store) Load(ctx context.Context, name string, target any) (Metadata, error) {
	sb, err := s.readBlob(ctx, name)
	if err != nil {
		return Metadata{}, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sb.CompressedData))
	if err != nil {
		return Metadata{}, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return Metadata{}, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != sb.Metadata.Checksum {
		return Metadata{}, fmt.Errorf("%w: %s: expected %s, got %s",
			ErrChecksumMismatch, name, sb.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return Metadata{}, fmt.Errorf("decode model: %w", err)
	}
	if v, ok := target.(validator); ok {
		if err := v.Validate(); err != nil {
			return Metadata{}, fmt.Errorf("%w: %s: %w", ErrInvalidModel, name, err)
		}
	}
	return sb.Metadata, nil
}

// Metadata returns the metadata of the latest version without decoding the payload.
func (s *Store) Metadata(ctx context.Context, name string) (Metadata, error) {
	sb, err := s.readBlob(ctx, name)
	if err != nil {
		return Metadata{}, err
	}
	return sb.Metadata, nil
}

// Exists reports whether any version of name is stored.
func (s *Store) Exists(ctx context.Context, name string) bool {
	_, err := s.latest(ctx, name)
	return err == nil
}

// Delete removes every version of name.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// List returns the latest metadata of every stored model, sorted by name.
// Unreadable blobs are skipped.
func (s *Store) List(ctx context.Context) ([]Metadata, error) {
	names, err := s.backend.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	models := make([]Metadata, 0, len(names))
	for _, name := range names {
		meta, err := s.Metadata(ctx, name)
		if err != nil {
			s.logger.Warn().Err(err).Str("model", name).Msg("Skipping unreadable model")
			continue
		}
		models = append(models, meta)
	}
	return models, nil
}

// ShouldRetrain reports whether name is missing, unreadable, or older than
// maxAge. A non-positive maxAge uses DefaultMaxAge.
func (s *Store) ShouldRetrain(ctx context.Context, name string, maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	meta, err := s.Metadata(ctx, name)
	if err != nil {
		return true
	}
	return s.now().Sub(meta.SavedAt) > maxAge
}
