// Package gateway is the boundary between the workspace engine and durable
// storage.
//
// The gateway owns account-class branching: calls for an ephemeral (guest)
// account succeed immediately without touching the store. For durable
// accounts it shapes requests, injects a bounded artificial latency to
// model a remote call, serializes writes per account, and translates store
// failures into a single distinguishable error.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/store"
)

// ErrStorageUnavailable is returned when the persistence store fails.
// Local state remains the optimistic truth; callers report and continue.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Config holds gateway configuration.
type Config struct {
	// Latency is the upper bound of the artificial delay added to every
	// durable-account call. Zero disables the delay entirely.
	Latency time.Duration

	// Logger for gateway activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults: no artificial latency and a
// stderr logger.
func DefaultConfig() *Config {
	return &Config{
		Logger: log.New(os.Stderr, "[gateway] ", log.LstdFlags),
	}
}

// Gateway wraps a store.Store with the boundary semantics above.
type Gateway struct {
	store  store.Store
	config *Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-account write serialization
}

// New creates a Gateway over the given store.
func New(st store.Store, config *Config) *Gateway {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[gateway] ", log.LstdFlags)
	}
	return &Gateway{
		store:  st,
		config: config,
		locks:  make(map[string]*sync.Mutex),
	}
}

// FetchWorkspace reads the account's workspace for session hydration.
// Guests get a fresh default workspace without a store call; an unknown
// durable account also gets defaults (absence is not an error).
func (g *Gateway) FetchWorkspace(ctx context.Context, acct model.Account) (*model.Workspace, error) {
	if acct.Ephemeral {
		return model.DefaultWorkspace(), nil
	}
	if err := g.simulateLatency(ctx); err != nil {
		return nil, err
	}

	ws, err := g.store.Load(ctx, acct.ID)
	if err != nil {
		return nil, g.translate("fetch workspace", err)
	}
	return ws, nil
}

// SyncWorkspace persists the workspace snapshot as a full replace.
// Writes for the same account are never issued concurrently.
func (g *Gateway) SyncWorkspace(ctx context.Context, acct model.Account, ws *model.Workspace) error {
	if acct.Ephemeral {
		return nil
	}
	if err := g.simulateLatency(ctx); err != nil {
		return err
	}

	lock := g.accountLock(acct.ID)
	lock.Lock()
	defer lock.Unlock()

	if err := g.store.Save(ctx, acct.ID, ws); err != nil {
		return g.translate("sync workspace", err)
	}
	g.config.Logger.Printf("Synced workspace for %s (%d tasks, %d members)",
		acct.ID, len(ws.Tasks), len(ws.Team))
	return nil
}

// SupportsTaskDelete reports whether the store can remove a single task
// without rewriting the whole workspace.
func (g *Gateway) SupportsTaskDelete() bool {
	_, ok := g.store.(store.TaskDeleter)
	return ok
}

// DeleteTask removes one task from durable storage via the store's
// fine-grained path. Callers must check SupportsTaskDelete first; stores
// without it take deletions through the next full SyncWorkspace, which
// keeps writes ordered behind any concurrent sync.
func (g *Gateway) DeleteTask(ctx context.Context, acct model.Account, taskID string) error {
	if acct.Ephemeral {
		return nil
	}
	deleter, ok := g.store.(store.TaskDeleter)
	if !ok {
		return fmt.Errorf("delete task: store has no fine-grained delete")
	}
	if err := g.simulateLatency(ctx); err != nil {
		return err
	}

	lock := g.accountLock(acct.ID)
	lock.Lock()
	defer lock.Unlock()

	if err := deleter.DeleteTask(ctx, acct.ID, taskID); err != nil {
		return g.translate("delete task", err)
	}
	g.config.Logger.Printf("Deleted task %s for %s", taskID, acct.ID)
	return nil
}

// accountLock returns the write mutex for an account, creating it on first
// use. Different accounts never contend.
func (g *Gateway) accountLock(accountID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[accountID] = lock
	}
	return lock
}

// simulateLatency sleeps for a bounded random delay, respecting ctx.
func (g *Gateway) simulateLatency(ctx context.Context) error {
	if g.config.Latency <= 0 {
		return nil
	}
	delay := g.config.Latency/2 + time.Duration(rand.Int63n(int64(g.config.Latency/2)+1))
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// translate wraps a store failure so callers can errors.Is against
// ErrStorageUnavailable while keeping the cause in the message.
func (g *Gateway) translate(op string, err error) error {
	g.config.Logger.Printf("WARNING: %s failed: %v", op, err)
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}
