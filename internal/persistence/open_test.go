package persistence

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"studyloader/internal/infra/persistence/memory"
	"studyloader/internal/infra/persistence/postgres"
	"studyloader/internal/infra/persistence/postgres/testutil"
	"studyloader/internal/infra/persistence/sqlite"
	"studyloader/pkg/domain"
)

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	store, closeFn, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close memory: %v", err)
	}
	if err := Flush(ctx, store); err != nil {
		t.Fatalf("flush without flusher should be a no-op: %v", err)
	}

	store, closeFn, err = Open(ctx, Config{SQLitePath: filepath.Join(t.TempDir(), "state.db")})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if _, ok := store.(*sqlite.Store); !ok {
		t.Fatalf("expected sqlite default, got %T", store)
	}
	if _, err := store.AddStudy(ctx, domain.Study{StableID: "brca_tcga"}); err != nil {
		t.Fatalf("add study: %v", err)
	}
	if err := Flush(ctx, store); err != nil {
		t.Fatalf("flush sqlite: %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close sqlite: %v", err)
	}
}

func TestOpenPostgresUsesOverriddenDriver(t *testing.T) {
	db, _ := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	store, closeFn, err := Open(context.Background(), Config{Driver: DriverPostgres, PostgresDSN: "postgres://stub"})
	if err != nil {
		t.Fatalf("postgres: %v", err)
	}
	defer func() { _ = closeFn() }()
	if _, ok := store.(*postgres.Store); !ok {
		t.Fatalf("expected postgres store, got %T", store)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, closeFn, err := Open(context.Background(), Config{Driver: "oracle"}); err == nil || closeFn == nil {
		t.Fatalf("expected error and non-nil close func")
	}
}
