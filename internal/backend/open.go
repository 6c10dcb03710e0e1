// Package backend opens the storage.Store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/housesplit/internal/config"
	"github.com/mmynk/housesplit/internal/storage"
	"github.com/mmynk/housesplit/internal/storage/bolt"
	"github.com/mmynk/housesplit/internal/storage/postgres"
	"github.com/mmynk/housesplit/internal/storage/sqlite"
)

// Open returns the configured store. The caller must Close it.
func Open(ctx context.Context, cfg config.StoreConfig) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "backend", cfg.Backend, "database", cfg.SQLitePath)
		return store, nil

	case config.BackendBolt:
		store, err := bolt.New(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "backend", cfg.Backend, "database", cfg.BoltPath)
		return store, nil

	case config.BackendPostgres:
		store, err := postgres.New(ctx, postgres.Config{
			URL:      cfg.PostgresURL,
			MaxConns: cfg.PostgresMaxConns,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "backend", cfg.Backend, "channel", postgres.Channel)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
