// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Backend holds encoded model blobs addressed by name and version.
//
// Implementations return ErrModelNotFound from Get for a missing blob and
// keep at most their configured number of versions per name.
type Backend interface {
	Put(ctx context.Context, name string, version int, blob []byte) error
	Get(ctx context.Context, name string, version int) ([]byte, error)
	// Versions lists the stored versions of name in ascending order.
	Versions(ctx context.Context, name string) ([]int, error)
	Names(ctx context.Context) ([]string, error)
	// Delete removes every version of name.
	Delete(ctx context.Context, name string) error
	Close() error
}

const fileSuffix = ".gob.gz"

// FileBackend stores one file per version as {name}_v{version}.gob.gz.
type FileBackend struct {
	dir    string
	retain int
}

// NewFileBackend creates dir if needed. retain <= 0 keeps every version.
func NewFileBackend(dir string, retain int) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileBackend{dir: dir, retain: retain}, nil
}

func (b *FileBackend) path(name string, version int) string {
	return filepath.Join(b.dir, fmt.Sprintf("%s_v%d%s", name, version, fileSuffix))
}

// parseModelFilename splits "collaborative_v3.gob.gz" into its name and version.
func parseModelFilename(filename string) (name string, version int, ok bool) {
	base, found := strings.CutSuffix(filename, fileSuffix)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(base, "_v")
	if idx <= 0 {
		return "", 0, false
	}
	version, err := strconv.Atoi(base[idx+2:])
	if err != nil || version <= 0 {
		return "", 0, false
	}
	return base[:idx], version, true
}

// scan returns every stored version keyed by model name.
func (b *FileBackend) scan() (map[string][]int, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("read storage directory: %w", err)
	}
	versions := make(map[string][]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseModelFilename(entry.Name())
		if !ok {
			continue
		}
		versions[name] = append(versions[name], version)
	}
	for _, vs := range versions {
		sort.Ints(vs)
	}
	return versions, nil
}

// Put writes the blob to a temporary file and renames it into place, then
// prunes versions beyond the retention limit.
func (b *FileBackend) Put(ctx context.Context, name string, version int, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, ".tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() //nolint:errcheck // temp file is gone after a successful rename

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // sync error takes precedence
		return fmt.Errorf("sync model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmpName, b.path(name, version)); err != nil {
		return fmt.Errorf("rename model file: %w", err)
	}
	return b.prune(name)
}

func (b *FileBackend) prune(name string) error {
	if b.retain <= 0 {
		return nil
	}
	all, err := b.scan()
	if err != nil {
		return err
	}
	versions := all[name]
	for len(versions) > b.retain {
		if err := os.Remove(b.path(name, versions[0])); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("prune %s v%d: %w", name, versions[0], err)
		}
		versions = versions[1:]
	}
	return nil
}

// Get reads one version.
func (b *FileBackend) Get(ctx context.Context, name string, version int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path(name, version))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s v%d", ErrModelNotFound, name, version)
	}
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return data, nil
}

// Versions lists the stored versions of name.
func (b *FileBackend) Versions(_ context.Context, name string) ([]int, error) {
	all, err := b.scan()
	if err != nil {
		return nil, err
	}
	return all[name], nil
}

// Names lists the stored model names in sorted order.
func (b *FileBackend) Names(_ context.Context) ([]string, error) {
	all, err := b.scan()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes every version of name.
func (b *FileBackend) Delete(ctx context.Context, name string) error {
	versions, err := b.Versions(ctx, name)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if err := os.Remove(b.path(name, v)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s v%d: %w", name, v, err)
		}
	}
	return nil
}

// Close is a no-op.
func (b *FileBackend) Close() error { return nil }

const badgerPrefix = "model/"

// BadgerBackend stores blobs in badger under model/{name}/{version}. Versions
// are zero-padded so key order matches version order.
type BadgerBackend struct {
	db     *badger.DB
	retain int
}

// NewBadgerBackend opens a badger database at path. An empty path opens an
// in-memory database.
func NewBadgerBackend(path string, retain int) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerBackend{db: db, retain: retain}, nil
}

func badgerKey(name string, version int) []byte {
	return []byte(fmt.Sprintf("%s%s/%010d", badgerPrefix, name, version))
}

func parseBadgerKey(key []byte) (name string, version int, ok bool) {
	rest, found := strings.CutPrefix(string(key), badgerPrefix)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndexByte(rest, '/')
	if idx <= 0 {
		return "", 0, false
	}
	version, err := strconv.Atoi(rest[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return rest[:idx], version, true
}

// keys collects the keys under prefix without values.
func (b *BadgerBackend) keys(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

// Put stores the blob and drops versions beyond the retention limit in the
// same transaction.
func (b *BadgerBackend) Put(ctx context.Context, name string, version int, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	existing, err := b.Versions(ctx, name)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(badgerKey(name, version), blob); err != nil {
			return fmt.Errorf("store model: %w", err)
		}
		if b.retain <= 0 {
			return nil
		}
		versions := existing
		if !slices.Contains(versions, version) {
			versions = append(versions, version)
			sort.Ints(versions)
		}
		for i := 0; i < len(versions)-b.retain; i++ {
			if versions[i] == version {
				continue
			}
			if err := txn.Delete(badgerKey(name, versions[i])); err != nil {
				return fmt.Errorf("prune %s v%d: %w", name, versions[i], err)
			}
		}
		return nil
	})
}

// Get reads one version.
func (b *BadgerBackend) Get(ctx context.Context, name string, version int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(name, version))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s v%d", ErrModelNotFound, name, version)
	}
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return data, nil
}

// Versions lists the stored versions of name.
func (b *BadgerBackend) Versions(_ context.Context, name string) ([]int, error) {
	keys, err := b.keys([]byte(badgerPrefix + name + "/"))
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	var versions []int
	for _, key := range keys {
		if n, v, ok := parseBadgerKey(key); ok && n == name {
			versions = append(versions, v)
		}
	}
	sort.Ints(versions)
	return versions, nil
}

// Names lists the stored model names in sorted order.
func (b *BadgerBackend) Names(_ context.Context) ([]string, error) {
	keys, err := b.keys([]byte(badgerPrefix))
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	seen := make(map[string]struct{})
	names := []string{}
	for _, key := range keys {
		name, _, ok := parseBadgerKey(key)
		if !ok {
			continue
		}
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes every version of name.
func (b *BadgerBackend) Delete(ctx context.Context, name string) error {
	versions, err := b.Versions(ctx, name)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		for _, v := range versions {
			if err := txn.Delete(badgerKey(name, v)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
