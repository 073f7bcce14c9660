package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/daybookhq/daybook/internal/model"
)

// setupSQLite creates a temporary SQLite store for testing.
func setupSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// sampleWorkspace builds a workspace with a couple of tasks.
func sampleWorkspace(t *testing.T) *model.Workspace {
	t.Helper()

	ws := model.DefaultWorkspace()
	ws.AddMember("Priya")

	hours := 1.5
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	done := &model.Task{
		ID:            "t1",
		Title:         "Fix bug",
		Status:        model.StatusDone,
		Priority:      model.PriorityHigh,
		Category:      "work",
		LogDate:       "2026-02-10",
		Assignee:      "Priya",
		CreatedAt:     now,
		CompletedAt:   &now,
		DurationHours: &hours,
	}
	todo := &model.Task{
		ID:        "t2",
		Title:     "Write report",
		Status:    model.StatusTodo,
		Priority:  model.PriorityNormal,
		LogDate:   "2026-02-12",
		CreatedAt: now,
	}
	ws.Prepend(done)
	ws.Prepend(todo)
	return ws
}

func TestSQLiteRoundTrip(t *testing.T) {
	st := setupSQLite(t)
	ctx := context.Background()
	ws := sampleWorkspace(t)

	if err := st.Save(ctx, "acct-1", ws); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := st.Load(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(ws, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteLoadUnknownAccount(t *testing.T) {
	st := setupSQLite(t)

	got, err := st.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Load of unknown account should not fail: %v", err)
	}
	if diff := cmp.Diff(model.DefaultWorkspace(), got); diff != "" {
		t.Errorf("expected default workspace (-want +got):\n%s", diff)
	}
}

func TestSQLiteSaveReplaces(t *testing.T) {
	st := setupSQLite(t)
	ctx := context.Background()

	if err := st.Save(ctx, "acct-1", sampleWorkspace(t)); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := st.Save(ctx, "acct-1", model.DefaultWorkspace()); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := st.Load(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got.Tasks) != 0 {
		t.Errorf("Save merged instead of replaced: %d tasks remain", len(got.Tasks))
	}
}

func TestSQLiteDeleteTask(t *testing.T) {
	st := setupSQLite(t)
	ctx := context.Background()

	if err := st.Save(ctx, "acct-1", sampleWorkspace(t)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := st.DeleteTask(ctx, "acct-1", "t1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}

	got, err := st.Load(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Task("t1") != nil {
		t.Error("t1 still present after delete")
	}
	if got.Task("t2") == nil {
		t.Error("t2 was removed by deleting t1")
	}

	// Deleting an absent task is idempotent.
	if err := st.DeleteTask(ctx, "acct-1", "t1"); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
	if err := st.DeleteTask(ctx, "no-such-account", "t1"); err != nil {
		t.Errorf("delete for unknown account should be a no-op, got %v", err)
	}
}

func TestSQLiteAccountRegistry(t *testing.T) {
	st := setupSQLite(t)
	ctx := context.Background()

	rec := AccountRecord{
		Account:    model.Account{ID: "a1", DisplayName: "Elena", Contact: "e@x.com", Style: "ocean"},
		SecretHash: []byte("hash"),
	}
	if err := st.SaveAccount(ctx, rec); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}

	dup := AccountRecord{
		Account: model.Account{ID: "a2", DisplayName: "Other", Contact: "e@x.com"},
	}
	if err := st.SaveAccount(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate contact: got %v, want ErrConflict", err)
	}

	got, err := st.AccountByContact(ctx, "e@x.com")
	if err != nil {
		t.Fatalf("AccountByContact failed: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("account mismatch (-want +got):\n%s", diff)
	}

	if _, err := st.AccountByContact(ctx, "missing@x.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing contact: got %v, want ErrNotFound", err)
	}

	acct, err := st.AccountByID(ctx, "a1")
	if err != nil {
		t.Fatalf("AccountByID failed: %v", err)
	}
	if acct.DisplayName != "Elena" {
		t.Errorf("AccountByID returned %q, want Elena", acct.DisplayName)
	}
}

func TestSQLiteExportImportRoundTrip(t *testing.T) {
	src := setupSQLite(t)
	ctx := context.Background()

	rec := AccountRecord{
		Account:    model.Account{ID: "a1", DisplayName: "Elena", Contact: "e@x.com"},
		SecretHash: []byte("hash"),
	}
	if err := src.SaveAccount(ctx, rec); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}
	ws := sampleWorkspace(t)
	if err := src.Save(ctx, "a1", ws); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	encoded, err := src.Export(ctx)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dst := setupSQLite(t)
	if err := dst.Import(ctx, encoded); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	got, err := dst.Load(ctx, "a1")
	if err != nil {
		t.Fatalf("Load after import failed: %v", err)
	}
	if diff := cmp.Diff(ws, got); diff != "" {
		t.Errorf("imported workspace mismatch (-want +got):\n%s", diff)
	}

	acct, err := dst.AccountByID(ctx, "a1")
	if err != nil {
		t.Fatalf("account did not survive import: %v", err)
	}
	if acct.Contact != "e@x.com" {
		t.Errorf("account contact = %q after import", acct.Contact)
	}
}

func TestSQLiteImportMalformedRejectedAtomically(t *testing.T) {
	st := setupSQLite(t)
	ctx := context.Background()

	ws := sampleWorkspace(t)
	if err := st.Save(ctx, "a1", ws); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for _, encoded := range []string{
		"",
		"garbage",
		"daybook1:not-base64!!!",
		"daybook1:aGVsbG8=", // valid base64, not gzip
	} {
		if err := st.Import(ctx, encoded); !errors.Is(err, ErrBadSnapshot) {
			t.Errorf("Import(%q): got %v, want ErrBadSnapshot", encoded, err)
		}
	}

	// The database must be untouched after every rejected import.
	got, err := st.Load(ctx, "a1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(ws, got); diff != "" {
		t.Errorf("rejected import modified the database (-want +got):\n%s", diff)
	}
}
