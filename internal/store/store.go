// Package store is a SQLite-backed key-value store. Values are opaque
// bytes; every write path runs inside one transaction under the store
// mutex, so read-modify-write cycles never interleave.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultQuota matches the usual 5 MiB budget of browser local storage.
const DefaultQuota int64 = 5 << 20

var (
	ErrNotFound      = errors.New("key not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cost_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id TEXT NOT NULL,
    icon_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    cost REAL NOT NULL,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_cost_log_timestamp ON cost_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_cost_log_provider ON cost_log(provider);
CREATE INDEX IF NOT EXISTS idx_cost_log_project_id ON cost_log(project_id);
`

type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	quota int64
}

// NewStoreWithPath opens (creating if needed) the database at dbPath.
// quota caps the total bytes of all keys and values; zero or less means
// unlimited.
func NewStoreWithPath(dbPath string, quota int64) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps SQLite from returning SQLITE_BUSY between our own writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, quota: quota}, nil
}

func DefaultDBPath(dataDir string) string {
	return filepath.Join(dataDir, "iconforge.db")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Quota() int64 {
	return s.quota
}

// Get returns the value for key or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.Tx(ctx, func(tx *Tx) error {
		return tx.Put(key, value)
	})
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.Tx(ctx, func(tx *Tx) error {
		return tx.Delete(key)
	})
}

// Update runs fn on the current value of key (nil when absent) and stores
// what it returns. A nil result leaves the key untouched.
func (s *Store) Update(ctx context.Context, key string, fn func(cur []byte) ([]byte, error)) error {
	return s.Tx(ctx, func(tx *Tx) error {
		cur, err := tx.Get(key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		return tx.Put(key, next)
	})
}

// Tx runs fn inside a single serialized transaction. Any error from fn
// rolls back every write it made.
func (s *Store) Tx(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&Tx{ctx: ctx, tx: sqlTx, quota: s.quota}); err != nil {
		sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Usage reports the bytes taken by all keys and values.
func (s *Store) Usage(ctx context.Context) (int64, error) {
	var used int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM kv`).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("failed to compute usage: %w", err)
	}
	return used, nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Clear removes every key and the cost log.
func (s *Store) Clear(ctx context.Context) error {
	return s.Tx(ctx, func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(ctx, `DELETE FROM kv`); err != nil {
			return fmt.Errorf("failed to clear keys: %w", err)
		}
		if _, err := tx.tx.ExecContext(ctx, `DELETE FROM cost_log`); err != nil {
			return fmt.Errorf("failed to clear cost log: %w", err)
		}
		return nil
	})
}

// Tx is a handle on an open transaction. It is only valid inside the
// callback passed to Store.Tx.
type Tx struct {
	ctx   context.Context
	tx    *sql.Tx
	quota int64
}

func (t *Tx) Get(key string) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRowContext(t.ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Put writes key, failing with ErrQuotaExceeded when the store would grow
// past its quota.
func (t *Tx) Put(key string, value []byte) error {
	if t.quota > 0 {
		var others int64
		err := t.tx.QueryRowContext(t.ctx,
			`SELECT COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM kv WHERE key != ?`, key).Scan(&others)
		if err != nil {
			return fmt.Errorf("failed to compute usage: %w", err)
		}
		if need := others + int64(len(key)+len(value)); need > t.quota {
			return fmt.Errorf("%w: writing %s needs %d of %d bytes", ErrQuotaExceeded, key, need, t.quota)
		}
	}

	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (t *Tx) Delete(key string) error {
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
