package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/daybookhq/daybook/internal/model"
)

func setupFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()

	dir := t.TempDir()
	fs, err := OpenFile(dir)
	if err != nil {
		t.Fatalf("failed to open file store: %v", err)
	}
	return fs, dir
}

func TestFileStoreRoundTrip(t *testing.T) {
	fs, _ := setupFileStore(t)
	ctx := context.Background()
	ws := sampleWorkspace(t)

	if err := fs.Save(ctx, "acct-1", ws); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := fs.Load(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(ws, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStoreLoadUnknownAccount(t *testing.T) {
	fs, _ := setupFileStore(t)

	got, err := fs.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Load of unknown account should not fail: %v", err)
	}
	if diff := cmp.Diff(model.DefaultWorkspace(), got); diff != "" {
		t.Errorf("expected default workspace (-want +got):\n%s", diff)
	}
}

func TestFileStoreIgnoresStrayTempFiles(t *testing.T) {
	fs, dir := setupFileStore(t)
	ctx := context.Background()
	ws := sampleWorkspace(t)

	if err := fs.Save(ctx, "acct-1", ws); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Simulate a crash between serialize and rename: a leftover temp file
	// must not shadow the durable value.
	stray := filepath.Join(dir, "workspaces", "acct-1.json.tmp-999")
	if err := os.WriteFile(stray, []byte("{partial"), 0644); err != nil {
		t.Fatalf("failed to plant stray temp file: %v", err)
	}

	got, err := fs.Load(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(ws, got); diff != "" {
		t.Errorf("stray temp file corrupted the load (-want +got):\n%s", diff)
	}
}

func TestFileStoreAccountConflict(t *testing.T) {
	fs, _ := setupFileStore(t)
	ctx := context.Background()

	first := AccountRecord{Account: model.Account{ID: "a1", DisplayName: "Elena", Contact: "e@x.com"}}
	if err := fs.SaveAccount(ctx, first); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}

	dup := AccountRecord{Account: model.Account{ID: "a2", Contact: "e@x.com"}}
	if err := fs.SaveAccount(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate contact: got %v, want ErrConflict", err)
	}
}

func TestFileStoreExportImport(t *testing.T) {
	src, _ := setupFileStore(t)
	ctx := context.Background()

	rec := AccountRecord{Account: model.Account{ID: "a1", DisplayName: "Elena", Contact: "e@x.com"}}
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

	dst, _ := setupFileStore(t)
	// A pre-existing workspace absent from the snapshot must be removed.
	if err := dst.Save(ctx, "stale", model.DefaultWorkspace()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
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

	stale, err := dst.Load(ctx, "stale")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(stale.Tasks) != 0 || len(stale.Team) != 1 {
		t.Error("stale workspace not fully replaced by import")
	}
	if _, err := os.Stat(filepath.Join(dst.dir, "workspaces", "stale.json")); !os.IsNotExist(err) {
		t.Error("stale workspace file survived import")
	}
}

func TestFileStoreImportFailureLeavesStoreIntact(t *testing.T) {
	fs, dir := setupFileStore(t)
	ctx := context.Background()

	rec := AccountRecord{Account: model.Account{ID: "a1", DisplayName: "Elena", Contact: "e@x.com"}}
	if err := fs.SaveAccount(ctx, rec); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}
	ws := sampleWorkspace(t)
	if err := fs.Save(ctx, "a1", ws); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A workspace keyed with a path separator cannot be written as a file,
	// so the import fails midway. The previous state must survive whole.
	encoded, err := EncodeSnapshot(&Snapshot{
		Accounts: []AccountRecord{
			{Account: model.Account{ID: "a2", DisplayName: "Marco", Contact: "m@x.com"}},
		},
		Workspaces: map[string]*model.Workspace{
			"a2":       model.DefaultWorkspace(),
			"nested/x": model.DefaultWorkspace(),
		},
	})
	if err != nil {
		t.Fatalf("EncodeSnapshot failed: %v", err)
	}

	if err := fs.Import(ctx, encoded); err == nil {
		t.Fatal("Import with an unwritable workspace should fail")
	}

	got, err := fs.Load(ctx, "a1")
	if err != nil {
		t.Fatalf("Load after failed import: %v", err)
	}
	if diff := cmp.Diff(ws, got); diff != "" {
		t.Errorf("failed import altered workspace (-want +got):\n%s", diff)
	}
	if _, err := fs.AccountByContact(ctx, "e@x.com"); err != nil {
		t.Errorf("failed import altered account registry: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "workspaces", "a2.json")); !os.IsNotExist(err) {
		t.Error("failed import left a partial workspace behind")
	}

	staging, err := filepath.Glob(filepath.Join(dir, "import-*"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(staging) != 0 {
		t.Errorf("failed import left staging directories: %v", staging)
	}
}

func TestFileStoreWatch(t *testing.T) {
	fs, dir := setupFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed, err := fs.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// An external process rewriting a workspace file must surface the
	// account ID on the channel.
	path := filepath.Join(dir, "workspaces", "acct-9.json")
	if err := os.WriteFile(path, []byte(`{"tasks":[],"team":["Self"]}`), 0644); err != nil {
		t.Fatalf("external write failed: %v", err)
	}

	select {
	case id := <-changed:
		if id != "acct-9" {
			t.Errorf("watch emitted %q, want acct-9", id)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}
