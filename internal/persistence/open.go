// Package persistence selects and opens the study store backend.
package persistence

import (
	"context"
	"fmt"

	"studyloader/internal/infra/persistence/memory"
	"studyloader/internal/infra/persistence/postgres"
	"studyloader/internal/infra/persistence/sqlite"
	"studyloader/pkg/domain"
)

// Driver identifies a concrete persistent storage implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / dry runs)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Config selects the backend and its connection settings.
type Config struct {
	Driver      Driver `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Open constructs the configured store. An empty driver defaults to sqlite.
// The returned close function releases backend resources and is never nil.
func Open(ctx context.Context, cfg Config) (domain.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case DriverMemory:
		return memory.NewStore(), noop, nil
	case DriverSQLite, "":
		s, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case DriverPostgres:
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// Flush persists buffered state when the store supports it.
func Flush(ctx context.Context, store domain.Store) error {
	if f, ok := store.(domain.Flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}
