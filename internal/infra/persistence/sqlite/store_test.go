package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"studyloader/pkg/domain"
)

func TestSQLiteStoreFlushAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := NewStore(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	ctx := context.Background()
	study, err := store.AddStudy(ctx, domain.Study{StableID: "brca_tcga", Name: "Breast"})
	if err != nil {
		t.Fatalf("add study: %v", err)
	}
	patient, err := store.AddPatient(ctx, domain.Patient{StableID: "TCGA-A1-A0SB", StudyID: study.ID})
	if err != nil {
		t.Fatalf("add patient: %v", err)
	}
	event, err := store.AddMutationEvent(ctx, domain.MutationEvent{EntrezID: 673, ProteinChange: "V600E"})
	if err != nil {
		t.Fatalf("add event: %v", err)
	}
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	if reloaded.Path() != path {
		t.Fatalf("unexpected path %s", reloaded.Path())
	}
	got, ok, err := reloaded.GetStudy(ctx, "brca_tcga")
	if err != nil || !ok || got.ID != study.ID {
		t.Fatalf("expected study after reload: %+v %v %v", got, ok, err)
	}
	if _, ok, _ := reloaded.GetPatientByStudy(ctx, patient.StableID, study.ID); !ok {
		t.Fatalf("expected patient after reload")
	}
	again, _ := reloaded.AddMutationEvent(ctx, domain.MutationEvent{EntrezID: 673, ProteinChange: "V600E"})
	if again.ID != event.ID {
		t.Fatalf("expected event index rebuilt, got %d want %d", again.ID, event.ID)
	}
}

func TestSQLiteStoreUnflushedChangesAreDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	ctx := context.Background()
	if _, err := store.AddStudy(ctx, domain.Study{StableID: "luad_tcga"}); err != nil {
		t.Fatalf("add study: %v", err)
	}
	_ = store.Close()
	reloaded, err := NewStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer func() { _ = reloaded.Close() }()
	if studies, _ := reloaded.ListStudies(ctx); len(studies) != 0 {
		t.Fatalf("expected empty store without flush, got %+v", studies)
	}
}

func TestSQLiteStoreCreatesStateTable(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	var name string
	if err := store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", "state").Scan(&name); err != nil {
		t.Fatalf("lookup state table: %v", err)
	}
	if err := store.Flush(context.Background()); err != nil {
		t.Fatalf("flush empty store: %v", err)
	}
	var buckets int
	if err := store.DB().QueryRow("SELECT COUNT(*) FROM state").Scan(&buckets); err != nil {
		t.Fatalf("count buckets: %v", err)
	}
	if buckets == 0 {
		t.Fatalf("expected bucket rows after flush")
	}
}
