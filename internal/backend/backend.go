// Package backend opens the durable store selected in the configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/kv"
	"github.com/claude/liftlog/internal/statedb"
	"github.com/claude/liftlog/internal/storage"
)

// Open returns the configured store. The postgres driver applies pending
// migrations from cfg.MigrationsDir before connecting. The caller closes
// the store.
func Open(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (kv.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store, state is lost on exit")
		return kv.NewMemory(), nil

	case config.DriverSQLite:
		db, err := statedb.Open(ctx, cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		log.Info("sqlite store opened", "dir", cfg.Dir)
		return db, nil

	case config.DriverPostgres:
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, cfg.MigrationsDir); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("migrations applied")
		db, err := storage.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connecting database: %w", err)
		}
		log.Info("database connected", "host", cfg.Database.Host, "name", cfg.Database.Name)
		return db, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
