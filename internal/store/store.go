// Package store provides durable persistence for daybook workspaces.
//
// A Store maps account IDs to workspaces and keeps the account registry.
// Three implementations share the contract:
//
//   - SQLite (embedded, WAL mode) for normal use
//   - JSON files with atomic renames, plus fsnotify change watching
//   - an in-memory fake for tests and throwaway sessions
//
// Every write is a full replace of one account's workspace; there is no
// durable history or versioning. Reading an unknown account yields the
// default workspace, never an error.
package store

import (
	"context"
	"errors"

	"github.com/daybookhq/daybook/internal/model"
)

// Common errors returned by store operations.
//
// These can be checked with errors.Is():
//
//	if errors.Is(err, store.ErrUnavailable) {
//	    // storage medium failed; durable data is untouched
//	}
var (
	// ErrUnavailable is returned when the underlying medium fails.
	// It is fatal to the call but never corrupts previously durable data.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrConflict is returned when a registration would collide with an
	// existing account (same contact). Nothing is applied.
	ErrConflict = errors.New("account already exists")

	// ErrNotFound is returned when an account lookup misses.
	// Workspace reads never return it; they substitute defaults.
	ErrNotFound = errors.New("account not found")

	// ErrBadSnapshot is returned when an import payload is malformed.
	// The database is left exactly as it was.
	ErrBadSnapshot = errors.New("malformed snapshot")
)

// AccountRecord pairs an account with its secret hash for the registry.
type AccountRecord struct {
	Account    model.Account `json:"account"`
	SecretHash []byte        `json:"secret_hash,omitempty"`
}

// Store is the persistence contract.
//
// Save is idempotent and total: it replaces the stored workspace, never
// merges. The new value must be fully serialized before any durable bytes
// are touched, so a failure cannot leave a partial overwrite.
type Store interface {
	// Load returns the workspace for accountID, or the default workspace
	// when no entry exists.
	Load(ctx context.Context, accountID string) (*model.Workspace, error)

	// Save atomically replaces the workspace for accountID.
	Save(ctx context.Context, accountID string, ws *model.Workspace) error

	// SaveAccount registers a durable account. Returns ErrConflict if the
	// contact is already taken.
	SaveAccount(ctx context.Context, rec AccountRecord) error

	// AccountByContact looks up an account by its contact address.
	AccountByContact(ctx context.Context, contact string) (AccountRecord, error)

	// AccountByID looks up an account by ID.
	AccountByID(ctx context.Context, id string) (model.Account, error)

	// Export serializes the whole database to a transportable string.
	Export(ctx context.Context) (string, error)

	// Import fully replaces the database from an exported snapshot.
	// Malformed input is rejected without partial application.
	Import(ctx context.Context, encoded string) error

	// Close releases the store's resources.
	Close() error
}

// TaskDeleter is the optional fine-grained deletion path. Stores that do
// not implement it are served by a full Save of the post-delete workspace.
type TaskDeleter interface {
	// DeleteTask removes one task from the stored workspace.
	// Deleting an absent task is a no-op (idempotent).
	DeleteTask(ctx context.Context, accountID, taskID string) error
}
