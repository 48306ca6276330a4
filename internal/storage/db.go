// Package storage is the PostgreSQL durable key/value store used when the
// tracker runs against a shared server database.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claude/liftlog/internal/kv"
)

// DB wraps a pgxpool.Pool and implements kv.Store over the kv_items table.
type DB struct {
	Pool *pgxpool.Pool
}

var _ kv.Store = (*DB)(nil)

// New creates a new DB with a connection pool.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	db.Pool.Close()
	return nil
}

// RunMigrations applies all pending migrations from the given directory.
func RunMigrations(dsn, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Get implements kv.Store.
func (db *DB) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := db.Pool.QueryRow(ctx, `SELECT value FROM kv_items WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

// MultiGet implements kv.Store.
func (db *DB) MultiGet(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	rows, err := db.Pool.Query(ctx, `SELECT key, value FROM kv_items WHERE key = ANY($1)`, keys)
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
func (db *DB) Set(ctx context.Context, key, value string) error {
	return db.Apply(ctx, []kv.Op{kv.Set(key, value)})
}

// Remove implements kv.Store.
func (db *DB) Remove(ctx context.Context, key string) error {
	return db.Apply(ctx, []kv.Op{kv.Remove(key)})
}

// Apply implements kv.Store. The batch is sent as one pgx.Batch inside a
// transaction so its operations apply in order.
func (db *DB) Apply(ctx context.Context, ops []kv.Op) error {
	if len(ops) == 0 {
		return ctx.Err()
	}
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, op := range ops {
		if op.Remove {
			batch.Queue(`DELETE FROM kv_items WHERE key = $1`, op.Key)
			continue
		}
		batch.Queue(`
			INSERT INTO kv_items (key, value, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			op.Key, op.Value)
	}

	br := tx.SendBatch(ctx, batch)
	for _, op := range ops {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("writing %s: %w", op.Key, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
