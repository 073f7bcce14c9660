package store

import (
	"context"
	"sync"

	"github.com/daybookhq/daybook/internal/model"
)

// MemStore is an in-memory Store for tests and throwaway sessions.
//
// It counts every operation (guest-isolation tests assert the count stays
// zero) and can be forced to fail to exercise error paths. It deliberately
// does not implement TaskDeleter, so deletions against it flow through full
// workspace writes.
type MemStore struct {
	mu         sync.Mutex
	workspaces map[string]*model.Workspace
	accounts   map[string]AccountRecord // keyed by account ID
	ops        int
	err        error
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		workspaces: make(map[string]*model.Workspace),
		accounts:   make(map[string]AccountRecord),
	}
}

// Ops returns the number of store operations performed so far.
func (m *MemStore) Ops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops
}

// SetErr forces every subsequent operation to fail with err (wrapped in
// ErrUnavailable). Pass nil to restore normal behavior.
func (m *MemStore) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemStore) Load(ctx context.Context, accountID string) (*model.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	if m.err != nil {
		return nil, m.wrapErr()
	}
	ws, ok := m.workspaces[accountID]
	if !ok {
		return model.DefaultWorkspace(), nil
	}
	return ws.Clone(), nil
}

func (m *MemStore) Save(ctx context.Context, accountID string, ws *model.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	if m.err != nil {
		return m.wrapErr()
	}
	m.workspaces[accountID] = ws.Clone()
	return nil
}

func (m *MemStore) SaveAccount(ctx context.Context, rec AccountRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	if m.err != nil {
		return m.wrapErr()
	}
	for _, existing := range m.accounts {
		if existing.Account.Contact == rec.Account.Contact {
			return ErrConflict
		}
	}
	m.accounts[rec.Account.ID] = rec
	return nil
}

func (m *MemStore) AccountByContact(ctx context.Context, contact string) (AccountRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	if m.err != nil {
		return AccountRecord{}, m.wrapErr()
	}
	for _, rec := range m.accounts {
		if rec.Account.Contact == contact {
			return rec, nil
		}
	}
	return AccountRecord{}, ErrNotFound
}

func (m *MemStore) AccountByID(ctx context.Context, id string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	if m.err != nil {
		return model.Account{}, m.wrapErr()
	}
	rec, ok := m.accounts[id]
	if !ok {
		return model.Account{}, ErrNotFound
	}
	return rec.Account, nil
}

func (m *MemStore) Export(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	if m.err != nil {
		return "", m.wrapErr()
	}
	snap := &Snapshot{Workspaces: make(map[string]*model.Workspace, len(m.workspaces))}
	for _, rec := range m.accounts {
		snap.Accounts = append(snap.Accounts, rec)
	}
	for id, ws := range m.workspaces {
		snap.Workspaces[id] = ws.Clone()
	}
	return EncodeSnapshot(snap)
}

func (m *MemStore) Import(ctx context.Context, encoded string) error {
	snap, err := DecodeSnapshot(encoded)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	if m.err != nil {
		return m.wrapErr()
	}
	m.accounts = make(map[string]AccountRecord, len(snap.Accounts))
	for _, rec := range snap.Accounts {
		m.accounts[rec.Account.ID] = rec
	}
	m.workspaces = make(map[string]*model.Workspace, len(snap.Workspaces))
	for id, ws := range snap.Workspaces {
		m.workspaces[id] = ws.Clone()
	}
	return nil
}

func (m *MemStore) Close() error {
	return nil
}

// wrapErr joins the forced error under ErrUnavailable. Callers hold m.mu.
func (m *MemStore) wrapErr() error {
	return &unavailableError{cause: m.err}
}

// unavailableError wraps a cause so both ErrUnavailable and the cause are
// visible to errors.Is.
type unavailableError struct {
	cause error
}

func (e *unavailableError) Error() string {
	return "storage unavailable: " + e.cause.Error()
}

func (e *unavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

func (e *unavailableError) Unwrap() error {
	return e.cause
}
