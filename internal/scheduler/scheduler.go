// Package scheduler coalesces bursts of workspace mutations into single
// outbound writes.
//
// Every dirty-mark (re)starts a quiescence timer; when the timer fires
// without being reset, the scheduler calls the sync function with whatever
// the workspace looks like at that moment (last-writer-wins over the whole
// burst). At most one write is in flight at a time. A failed sync leaves
// the workspace dirty so the next mutation retries naturally; there is no
// background retry and therefore no retry storm.
package scheduler

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

// State is the scheduler's observable sync status.
//
// Happy path: Idle → Syncing → Synced → Idle.
// Failure path: Syncing → Error → Idle, re-armed by the next mutation.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateSynced  State = "synced"
	StateError   State = "error"
)

// Config holds scheduler configuration.
type Config struct {
	// Quiescence is how long after the last mutation a sync is issued.
	Quiescence time.Duration

	// DisplayWindow is how long the Synced or Error state is held before
	// returning to Idle, so observers can show the outcome.
	DisplayWindow time.Duration

	// Logger for scheduler activity.
	Logger *log.Logger

	// Notify, when set, is called after every state transition.
	Notify func(State)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Quiescence:    1500 * time.Millisecond,
		DisplayWindow: 1200 * time.Millisecond,
		Logger:        log.New(os.Stderr, "[scheduler] ", log.LstdFlags),
	}
}

// SyncFunc performs one outbound write of the current workspace snapshot.
type SyncFunc func(ctx context.Context) error

// Scheduler debounces dirty-marks into sync calls.
//
// Start() must be called before MarkDirty or Flush; Stop() drains a
// pending dirty write before returning.
type Scheduler struct {
	config *Config
	syncFn SyncFunc

	mu    sync.Mutex
	state State
	dirty bool
	gen   int // invalidates stale display-window callbacks

	kick  chan struct{}
	flush chan chan error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler that will call syncFn on quiescence.
func New(syncFn SyncFunc, config *Config) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[scheduler] ", log.LstdFlags)
	}
	if config.Quiescence <= 0 {
		config.Quiescence = 1500 * time.Millisecond
	}
	if config.DisplayWindow <= 0 {
		config.DisplayWindow = 1200 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		config: config,
		syncFn: syncFn,
		state:  StateIdle,
		kick:   make(chan struct{}, 1),
		flush:  make(chan chan error),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the run loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop shuts the run loop down. If the workspace is still dirty, one final
// sync is performed so a clean shutdown never loses a pending write.
func (s *Scheduler) Stop() error {
	s.cancel()
	s.wg.Wait()

	if !s.Dirty() {
		return nil
	}
	s.setState(StateSyncing)
	if err := s.syncFn(context.Background()); err != nil {
		s.config.Logger.Printf("WARNING: final sync failed: %v", err)
		s.setState(StateError)
		return err
	}
	s.setDirty(false)
	s.setState(StateIdle)
	return nil
}

// MarkDirty records a local mutation and (re)starts the quiescence timer.
// Safe to call from any goroutine; never blocks.
func (s *Scheduler) MarkDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
		// A kick is already pending; the timer restarts when the loop
		// processes it.
	}
}

// Flush forces an immediate sync of a dirty workspace, bypassing the
// quiescence window. A clean workspace flushes to nil instantly.
func (s *Scheduler) Flush(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case s.flush <- reply:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current sync status.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dirty reports whether local mutations are awaiting a sync.
func (s *Scheduler) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// run is the single loop that owns the debounce timer and issues syncs.
// Executing syncs inline here guarantees at most one in-flight write.
func (s *Scheduler) run() {
	defer s.wg.Done()

	timer := time.NewTimer(s.config.Quiescence)
	stopTimer(timer)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-s.kick:
			stopTimer(timer)
			timer.Reset(s.config.Quiescence)

		case <-timer.C:
			if s.Dirty() {
				_ = s.runSync(s.ctx)
			}

		case reply := <-s.flush:
			stopTimer(timer)
			if s.Dirty() {
				reply <- s.runSync(s.ctx)
			} else {
				reply <- nil
			}
		}
	}
}

// runSync performs one write and drives the state machine through its
// display window.
func (s *Scheduler) runSync(ctx context.Context) error {
	s.setDirty(false)
	s.setState(StateSyncing)

	err := s.syncFn(ctx)
	if err != nil {
		s.config.Logger.Printf("WARNING: sync failed: %v", err)
		// The workspace stays dirty, but the timer is not re-armed: the
		// next mutation retries, not a background loop.
		s.setDirty(true)
		s.holdThenIdle(StateError)
		return err
	}

	s.holdThenIdle(StateSynced)
	return nil
}

// holdThenIdle shows an outcome state for the display window, then falls
// back to Idle unless a newer transition superseded it.
func (s *Scheduler) holdThenIdle(outcome State) {
	s.mu.Lock()
	s.state = outcome
	s.gen++
	gen := s.gen
	notify := s.config.Notify
	s.mu.Unlock()
	if notify != nil {
		notify(outcome)
	}

	time.AfterFunc(s.config.DisplayWindow, func() {
		s.mu.Lock()
		if s.gen != gen || s.state != outcome {
			s.mu.Unlock()
			return
		}
		s.state = StateIdle
		s.mu.Unlock()
		if notify != nil {
			notify(StateIdle)
		}
	})
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.gen++
	notify := s.config.Notify
	s.mu.Unlock()
	if notify != nil {
		notify(state)
	}
}

func (s *Scheduler) setDirty(dirty bool) {
	s.mu.Lock()
	s.dirty = dirty
	s.mu.Unlock()
}

// stopTimer drains a stdlib timer so Reset is safe.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
