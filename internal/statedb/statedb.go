// Package statedb is the local durable key/value store, one SQLite file per
// data directory.
package statedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/claude/liftlog/internal/kv"
)

// FileName is the database file created inside the data directory.
const FileName = "liftlog.db"

// StateDB stores tracker keys in a SQLite table.
type StateDB struct {
	db *sql.DB
}

var _ kv.Store = (*StateDB)(nil)

// Open opens (or creates) the SQLite database at dir/liftlog.db.
func Open(ctx context.Context, dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, FileName)
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging state db: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv_items (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating kv table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// Get implements kv.Store.
func (s *StateDB) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_items WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

// MultiGet implements kv.Store.
func (s *StateDB) MultiGet(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv_items WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("multi get: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning kv row: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Set implements kv.Store.
func (s *StateDB) Set(ctx context.Context, key, value string) error {
	return s.Apply(ctx, []kv.Op{kv.Set(key, value)})
}

// Remove implements kv.Store.
func (s *StateDB) Remove(ctx context.Context, key string) error {
	return s.Apply(ctx, []kv.Op{kv.Remove(key)})
}

// Apply implements kv.Store. The batch runs in one SQLite transaction.
func (s *StateDB) Apply(ctx context.Context, ops []kv.Op) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, op := range ops {
		if op.Remove {
			_, err = tx.ExecContext(ctx, `DELETE FROM kv_items WHERE key = ?`, op.Key)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO kv_items (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				op.Key, op.Value,
			)
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", op.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the state database.
func (s *StateDB) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
