// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package storage persists trained model state across restarts.
//
// # Format
//
// Save gob-encodes a typed state struct, records the SHA-256 of that payload,
// and gzip-compresses it. The compressed payload and its Metadata are wrapped
// in a gob envelope and handed to a Backend:
//
//	envelope:
//	  - Metadata (name, algorithm, version, schema version, saved-at, shape, checksum, size)
//	  - CompressedData
//
// Load rejects an envelope whose SchemaVersion differs (ErrSchemaMismatch), a
// payload whose checksum differs (ErrChecksumMismatch), and a decoded state
// whose Validate method fails (ErrInvalidModel). Callers treat any Load error
// as a signal to retrain.
//
// # Backends
//
// FileBackend writes one file per version:
//
//	/var/lib/marquee/models/
//	  collaborative_v4.gob.gz
//	  collaborative_v5.gob.gz   <- latest
//	  content_v5.gob.gz
//	  hybrid_v12.gob.gz
//
// Writes go to a temporary file that is renamed into place, so a reader never
// sees a partial model. BadgerBackend keeps the same blobs in badger under
// model/{name}/{version}. Both drop versions beyond their retention limit.
//
// # Usage
//
//	backend, err := storage.NewFileBackend(dir, 3)
//	if err != nil {
//	    return err
//	}
//	store := storage.NewStore(backend, logger)
//
//	state, _ := collab.Snapshot()
//	meta, err := store.Save(ctx, storage.ModelCollaborative, "collaborative", 0, state, rows, cols)
//
//	var loaded algorithms.CollaborativeState
//	if _, err := store.Load(ctx, storage.ModelCollaborative, &loaded); err != nil {
//	    // retrain
//	}
//
// # Staleness
//
// ShouldRetrain is true when a model is missing, unreadable, or older than
// the configured maximum age (DefaultMaxAge when unset).
package storage
