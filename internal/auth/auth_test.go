package auth

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/store"
)

func setupService(t *testing.T) (*Service, *store.MemStore) {
	t.Helper()
	mem := store.NewMemStore()
	return NewService(mem, log.New(io.Discard, "", 0)), mem
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	acct, err := svc.Register(ctx, "Elena", "elena@example.com", "hunter2", "dark")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if acct.ID == "" || acct.Ephemeral {
		t.Fatalf("unexpected account: %+v", acct)
	}

	got, ws, err := svc.Login(ctx, "elena@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if got.ID != acct.ID {
		t.Errorf("login returned account %s, want %s", got.ID, acct.ID)
	}
	// Registration provisions the default workspace.
	if len(ws.Tasks) != 0 || len(ws.Team) != 1 || ws.Team[0] != model.Self {
		t.Errorf("workspace not the default: %+v", ws)
	}
}

func TestLoginRejectsBadSecret(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Elena", "elena@example.com", "hunter2", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, _, err := svc.Login(ctx, "elena@example.com", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong secret: got %v, want ErrBadCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "hunter2"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown contact: got %v, want ErrBadCredentials", err)
	}
}

func TestRegisterDuplicateContact(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Elena", "elena@example.com", "hunter2", ""); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	_, err := svc.Register(ctx, "Other", "elena@example.com", "different", "")
	if !errors.Is(err, ErrContactTaken) {
		t.Errorf("got %v, want ErrContactTaken", err)
	}
	if !errors.Is(err, store.ErrConflict) {
		t.Error("ErrContactTaken should wrap store.ErrConflict")
	}
}

func TestGuestNeverTouchesStore(t *testing.T) {
	svc, mem := setupService(t)

	acct := svc.Guest("Visitor")
	if !acct.Ephemeral {
		t.Error("guest account not marked ephemeral")
	}
	if acct.DisplayName != "Visitor" {
		t.Errorf("display name = %q", acct.DisplayName)
	}
	if mem.Ops() != 0 {
		t.Errorf("guest creation reached the store %d times", mem.Ops())
	}
	if svc.Current() == nil || svc.Current().ID != acct.ID {
		t.Error("guest session not current")
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if svc.Current() != nil {
		t.Fatal("fresh service should have no session")
	}

	acct, err := svc.Register(ctx, "Elena", "elena@example.com", "hunter2", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if svc.Current() == nil {
		t.Fatal("registration should start a session")
	}

	svc.SignOut()
	if svc.Current() != nil {
		t.Error("session survived sign-out")
	}

	resumed, ws, err := svc.Resume(ctx, acct.ID)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed.ID != acct.ID || ws == nil {
		t.Errorf("resume returned %+v", resumed)
	}
}
