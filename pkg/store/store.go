// Copyright 2026 The FCE Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package store is the indexed, parameterized-SQL-only relational store
// every other FCE component reads and writes through. It owns the fixed
// schema (schema.go), the Semantic Table Registry (registry.go), and a
// per-table writer API (writers.go).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrSchemaStale is returned by Open when an existing database's
// schema_meta.version does not match SchemaVersion. The caller must
// rebuild the store from scratch; the store never attempts an
// in-place migration.
var ErrSchemaStale = fmt.Errorf("store: schema is stale, rebuild required")

// Store wraps a *sql.DB over a pure-Go SQLite file, plus one mutex per
// table to serialize concurrent writers (SQLite permits one writer at a
// time; this keeps write bursts from many phase goroutines from
// surfacing as SQLITE_BUSY).
type Store struct {
	db     *sql.DB
	path   string
	log    *slog.Logger
	mu     sync.Mutex
	tableMu map[string]*sync.Mutex
}

// Config controls where and how a Store is opened.
type Config struct {
	Path   string // filesystem path to the SQLite database file
	Logger *slog.Logger
}

// Open creates (if absent) or opens an existing store at config.Path,
// ensuring the schema is present and current. Returns ErrSchemaStale if
// an existing database was built under a different SchemaVersion.
func Open(ctx context.Context, config Config) (*Store, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("store.open.start", "path", config.Path)

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", config.Path, err)
	}
	// SQLite tolerates exactly one writer; force the pool down to a
	// single connection so writes serialize through database/sql rather
	// than erroring out under concurrent phase goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}

	s := &Store{db: db, path: config.Path, log: logger, tableMu: make(map[string]*sync.Mutex)}
	for _, t := range AllTables() {
		s.tableMu[t.name] = &sync.Mutex{}
	}

	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("store.open.done", "path", config.Path)
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	var existing int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_meta WHERE id = 1").Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		// schema_meta exists but holds no version row: lay down the full
		// schema.
		if _, execErr := s.db.ExecContext(ctx, DDL()); execErr != nil {
			return fmt.Errorf("store: apply schema: %w", execErr)
		}
		if _, execErr := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_meta (id, version) VALUES (1, ?)", SchemaVersion); execErr != nil {
			return fmt.Errorf("store: stamp schema version: %w", execErr)
		}
		return nil
	case err != nil:
		// schema_meta itself doesn't exist yet: same bootstrap path.
		if _, execErr := s.db.ExecContext(ctx, DDL()); execErr != nil {
			return fmt.Errorf("store: apply schema: %w", execErr)
		}
		if _, execErr := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_meta (id, version) VALUES (1, ?)", SchemaVersion); execErr != nil {
			return fmt.Errorf("store: stamp schema version: %w", execErr)
		}
		return nil
	case existing != SchemaVersion:
		return fmt.Errorf("%w: found version %d, want %d", ErrSchemaStale, existing, SchemaVersion)
	default:
		// Schema already present and current; make sure any tables added
		// since the file was created exist too (idempotent CREATE TABLE
		// IF NOT EXISTS covers additive schema changes within a version).
		_, execErr := s.db.ExecContext(ctx, DDL())
		return execErr
	}
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for callers (e.g. pkg/fce) that need
// to run ad hoc read queries beyond the writer API.
func (s *Store) DB() *sql.DB { return s.db }

// Query runs a parameterized, read-only SQL query. args are always bound
// placeholders (?) — callers must never interpolate user-controlled
// values into query.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// Exec runs a parameterized, mutating SQL statement.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back if fn returns an error or panics. Used by writers that
// must apply a batch of rows atomically (§5: "writes to the store occur
// in a single transaction").
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// lockTable returns the per-table mutex, creating one lazily for tables
// not present in the fixed schema (should not happen in practice, but
// keeps WriteDetailRow total over any table name).
func (s *Store) lockTable(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.tableMu[name]; ok {
		return m
	}
	m := &sync.Mutex{}
	s.tableMu[name] = m
	return m
}
