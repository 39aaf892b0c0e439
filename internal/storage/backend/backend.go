// Package backend opens the storage.Store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/mmynk/splittrack/internal/config"
	"github.com/mmynk/splittrack/internal/storage"
	"github.com/mmynk/splittrack/internal/storage/postgres"
	"github.com/mmynk/splittrack/internal/storage/sqlite"
)

// Open creates the store named by cfg.DataBackend.
func Open(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.DataBackend {
	case config.BackendSQLite:
		return sqlite.New(cfg.DBPath)
	case config.BackendPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}
}

// Describe returns a log-safe description of where the store lives.
func Describe(cfg *config.Config) string {
	if cfg.DataBackend == config.BackendPostgres {
		return "postgres"
	}
	return cfg.DBPath
}
