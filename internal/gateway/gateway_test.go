package gateway

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/store"
)

func quietConfig() *Config {
	return &Config{Logger: log.New(io.Discard, "", 0)}
}

func durableAccount() model.Account {
	return model.Account{ID: "acct-1", DisplayName: "Elena", Contact: "e@x.com"}
}

func guestAccount() model.Account {
	return model.Account{ID: "guest-1", DisplayName: "Guest", Ephemeral: true}
}

func TestGuestCallsNeverReachStore(t *testing.T) {
	mem := store.NewMemStore()
	gw := New(mem, quietConfig())
	ctx := context.Background()
	guest := guestAccount()

	ws, err := gw.FetchWorkspace(ctx, guest)
	if err != nil {
		t.Fatalf("FetchWorkspace failed: %v", err)
	}
	if diff := cmp.Diff(model.DefaultWorkspace(), ws); diff != "" {
		t.Errorf("guest fetch should yield defaults (-want +got):\n%s", diff)
	}

	for i := 0; i < 20; i++ {
		ws.Prepend(&model.Task{ID: model.NewID(), Title: "t", Status: model.StatusTodo,
			Priority: model.PriorityNormal, LogDate: "2026-02-10"})
		if err := gw.SyncWorkspace(ctx, guest, ws); err != nil {
			t.Fatalf("guest sync %d failed: %v", i, err)
		}
	}
	if err := gw.DeleteTask(ctx, guest, "anything"); err != nil {
		t.Fatalf("guest delete failed: %v", err)
	}

	if ops := mem.Ops(); ops != 0 {
		t.Errorf("guest session performed %d store operations, want 0", ops)
	}
}

func TestSyncWorkspaceRoundTrip(t *testing.T) {
	mem := store.NewMemStore()
	gw := New(mem, quietConfig())
	ctx := context.Background()
	acct := durableAccount()

	ws := model.DefaultWorkspace()
	ws.Prepend(&model.Task{ID: "t1", Title: "Fix bug", Status: model.StatusTodo,
		Priority: model.PriorityNormal, LogDate: "2026-02-10"})

	if err := gw.SyncWorkspace(ctx, acct, ws); err != nil {
		t.Fatalf("SyncWorkspace failed: %v", err)
	}

	got, err := gw.FetchWorkspace(ctx, acct)
	if err != nil {
		t.Fatalf("FetchWorkspace failed: %v", err)
	}
	if got.Task("t1") == nil {
		t.Error("synced task missing after fetch")
	}
}

func TestStorageFailureIsDistinguishable(t *testing.T) {
	mem := store.NewMemStore()
	mem.SetErr(errors.New("disk on fire"))
	gw := New(mem, quietConfig())
	ctx := context.Background()

	err := gw.SyncWorkspace(ctx, durableAccount(), model.DefaultWorkspace())
	if err == nil {
		t.Fatal("expected sync failure")
	}
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("got %v, want ErrStorageUnavailable", err)
	}

	if _, err := gw.FetchWorkspace(ctx, durableAccount()); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("fetch: got %v, want ErrStorageUnavailable", err)
	}
}

func TestSupportsTaskDelete(t *testing.T) {
	// MemStore has no fine-grained path; the SQLite store does.
	if New(store.NewMemStore(), quietConfig()).SupportsTaskDelete() {
		t.Error("memory-backed gateway should not report fine-grained delete")
	}

	st, err := store.OpenSQLite(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	defer st.Close()
	if !New(st, quietConfig()).SupportsTaskDelete() {
		t.Error("sqlite-backed gateway should report fine-grained delete")
	}
}

func TestDeleteTaskRejectsUnsupportedStore(t *testing.T) {
	gw := New(store.NewMemStore(), quietConfig())

	if err := gw.DeleteTask(context.Background(), durableAccount(), "t1"); err == nil {
		t.Error("expected an error from a store without fine-grained delete")
	}
}

func TestDeleteTaskUsesFineGrainedPath(t *testing.T) {
	st, err := store.OpenSQLite(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	defer st.Close()

	gw := New(st, quietConfig())
	ctx := context.Background()
	acct := durableAccount()

	ws := model.DefaultWorkspace()
	ws.AddMember("Priya")
	ws.Prepend(&model.Task{ID: "t1", Title: "Fix bug", Status: model.StatusTodo,
		Priority: model.PriorityNormal, LogDate: "2026-02-10"})
	ws.Prepend(&model.Task{ID: "t2", Title: "Write report", Status: model.StatusTodo,
		Priority: model.PriorityNormal, LogDate: "2026-02-10"})
	if err := gw.SyncWorkspace(ctx, acct, ws); err != nil {
		t.Fatalf("SyncWorkspace failed: %v", err)
	}

	if err := gw.DeleteTask(ctx, acct, "t1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}

	got, err := gw.FetchWorkspace(ctx, acct)
	if err != nil {
		t.Fatalf("FetchWorkspace failed: %v", err)
	}
	if got.Task("t1") != nil {
		t.Error("t1 still stored after fine-grained delete")
	}
	if got.Task("t2") == nil {
		t.Error("t2 lost by fine-grained delete")
	}
	if !got.HasMember("Priya") {
		t.Errorf("fine-grained delete rewrote the roster: %v", got.Team)
	}
}
