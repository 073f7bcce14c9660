// Package engine owns the live workspace for the active session.
//
// Mutations validate input, apply synchronously to the in-memory workspace,
// and return immediately; persistence happens later, when the scheduler's
// quiescence window closes. Callers never wait on the network. Every
// mutation either fully applies or fully no-ops, so no error can corrupt
// the workspace.
package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/daybookhq/daybook/internal/gateway"
	"github.com/daybookhq/daybook/internal/model"
)

// EntryContext tells CreateTask which view the task was created from,
// which decides the default status.
type EntryContext int

const (
	// EntryDiary logs already-completed work; new tasks default to done.
	EntryDiary EntryContext = iota
	// EntryPlanner plans pending work; new tasks default to todo.
	EntryPlanner
)

// DirtyMarker arms the sync scheduler. Satisfied by *scheduler.Scheduler.
type DirtyMarker interface {
	MarkDirty()
}

// Config holds engine configuration.
type Config struct {
	// RehomeOnComplete controls whether completing a task outside its
	// original log date rewrites the log date to "today", so the
	// completion is logged against the day the work actually finished.
	RehomeOnComplete bool

	// Now is the clock; tests inject a fixed one.
	Now func() time.Time

	// NewID is the ID-generation capability.
	NewID func() string

	// Logger for engine activity, including non-fatal remote-delete
	// warnings.
	Logger *log.Logger
}

// DefaultConfig returns the defaults: re-home on completion enabled,
// wall clock, UUIDv4 IDs.
func DefaultConfig() *Config {
	return &Config{
		RehomeOnComplete: true,
		Now:              time.Now,
		NewID:            model.NewID,
		Logger:           log.New(os.Stderr, "[engine] ", log.LstdFlags),
	}
}

// TaskInput is the caller-supplied portion of a new task.
type TaskInput struct {
	Title    string
	Notes    string
	Detail   string
	Category string
	Priority model.Priority
	Assignee string
	// DueDate, when set, wins over the ambient view date as the new
	// task's log date.
	DueDate       string
	DurationHours *float64
}

// Engine holds the authoritative workspace for one session.
type Engine struct {
	account model.Account
	gw      *gateway.Gateway
	config  *Config

	mu sync.Mutex
	ws *model.Workspace

	marker DirtyMarker

	remote sync.WaitGroup // outstanding background deletions
}

// New creates an engine for the account. If initial is non-nil it is used
// as the hydrated workspace (login bundles one to avoid a redundant read);
// otherwise call Hydrate before mutating.
func New(acct model.Account, initial *model.Workspace, gw *gateway.Gateway, config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.NewID == nil {
		config.NewID = model.NewID
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	if initial == nil {
		initial = model.DefaultWorkspace()
	}
	return &Engine{
		account: acct,
		gw:      gw,
		config:  config,
		ws:      initial,
	}
}

// SetDirtyMarker wires the scheduler in. Ephemeral accounts never arm it,
// so a guest engine can leave this unset.
func (e *Engine) SetDirtyMarker(m DirtyMarker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.marker = m
}

// Account returns the session's account.
func (e *Engine) Account() model.Account {
	return e.account
}

// Hydrate reads the durable workspace once at session start.
func (e *Engine) Hydrate(ctx context.Context) error {
	ws, err := e.gw.FetchWorkspace(ctx, e.account)
	if err != nil {
		return fmt.Errorf("failed to hydrate workspace: %w", err)
	}
	e.mu.Lock()
	e.ws = ws
	e.mu.Unlock()
	return nil
}

// Snapshot returns a deep copy of the current workspace, safe for the
// scheduler, summary, and display layers.
func (e *Engine) Snapshot() *model.Workspace {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ws.Clone()
}

// SyncFunc returns the closure the scheduler calls on quiescence. It takes
// the snapshot at call time, not arm time: last writer wins over the whole
// accumulated burst.
func (e *Engine) SyncFunc() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return e.gw.SyncWorkspace(ctx, e.account, e.Snapshot())
	}
}

// CreateTask validates input, assigns identity, and prepends the new task.
// logDate is the explicit due date when supplied, else viewDate (the date
// currently in view). Blank titles are rejected.
func (e *Engine) CreateTask(input TaskInput, entry EntryContext, viewDate string) (*model.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be blank", ErrValidation)
	}

	if input.Priority != "" && !input.Priority.Valid() {
		return nil, fmt.Errorf("%w: invalid priority %q", ErrValidation, input.Priority)
	}

	logDate := viewDate
	if input.DueDate != "" {
		logDate = input.DueDate
	}
	if !model.ValidDate(logDate) {
		return nil, fmt.Errorf("%w: invalid log date %q", ErrValidation, logDate)
	}
	if input.DurationHours != nil && *input.DurationHours < 0 {
		return nil, fmt.Errorf("%w: duration must be non-negative", ErrValidation)
	}

	now := e.config.Now()
	task := &model.Task{
		ID:            e.config.NewID(),
		Title:         strings.TrimSpace(input.Title),
		Notes:         input.Notes,
		Detail:        input.Detail,
		Category:      input.Category,
		Priority:      input.Priority,
		Assignee:      input.Assignee,
		CreatedAt:     now,
		LogDate:       logDate,
		TargetDate:    input.DueDate,
		DurationHours: input.DurationHours,
	}
	switch entry {
	case EntryDiary:
		task.Status = model.StatusDone
		task.CompletedAt = &now
	default:
		task.Status = model.StatusTodo
	}
	task.SetDefaults()

	e.mu.Lock()
	e.ws.Prepend(task)
	e.mu.Unlock()
	e.markDirty()
	return task.Clone(), nil
}

// SetStatus transitions a task. All transitions are permitted; reapplying
// the current status is a no-op with respect to observable state (the
// completion timestamp does not advance). Completing a task outside its
// original log date re-homes it to today when the policy is enabled.
func (e *Engine) SetStatus(id string, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}

	e.mu.Lock()
	task := e.ws.Task(id)
	if task == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if task.Status == status {
		e.mu.Unlock()
		return nil
	}

	now := e.config.Now()
	task.Status = status
	if status == model.StatusDone {
		task.CompletedAt = &now
		today := now.Format(model.DateLayout)
		if e.config.RehomeOnComplete && task.LogDate != today {
			task.LogDate = today
		}
	} else {
		task.CompletedAt = nil
	}
	e.mu.Unlock()
	e.markDirty()
	return nil
}

// Reassign sets a task's assignee. Membership is deliberately not
// validated: dangling references are tolerated and surfaced at display
// time instead of being dropped.
func (e *Engine) Reassign(id, memberName string) error {
	e.mu.Lock()
	task := e.ws.Task(id)
	if task == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	task.Assignee = memberName
	e.mu.Unlock()
	e.markDirty()
	return nil
}

// SetDuration records hours spent. Negative input is rejected and the
// prior value kept.
func (e *Engine) SetDuration(id string, hours float64) error {
	if hours < 0 {
		return fmt.Errorf("%w: duration must be non-negative (got %v)", ErrValidation, hours)
	}

	e.mu.Lock()
	task := e.ws.Task(id)
	if task == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	task.DurationHours = &hours
	e.mu.Unlock()
	e.markDirty()
	return nil
}

// Reschedule moves a task to a new log date with a stated reason. Both
// arguments are required; a missing one makes the whole call a signalled
// no-op.
func (e *Engine) Reschedule(id, newLogDate, reason string) error {
	if newLogDate == "" || strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: reschedule requires both a target date and a reason", ErrValidation)
	}
	if !model.ValidDate(newLogDate) {
		return fmt.Errorf("%w: invalid date %q", ErrValidation, newLogDate)
	}

	e.mu.Lock()
	task := e.ws.Task(id)
	if task == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	task.LogDate = newLogDate
	task.PostponeReason = strings.TrimSpace(reason)
	e.mu.Unlock()
	e.markDirty()
	return nil
}

// DeleteTask removes the task from the session immediately. Stores with a
// fine-grained delete get a targeted background request; a remote failure
// is reported as a warning and the local removal stands, since for the
// session the in-memory state is the source of truth. Stores without one
// take the removal through the next debounced sync instead, so the write
// cannot land out of order with later mutations.
func (e *Engine) DeleteTask(id string) error {
	e.mu.Lock()
	if !e.ws.RemoveTask(id) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.mu.Unlock()

	if e.account.Ephemeral {
		return nil
	}
	if !e.gw.SupportsTaskDelete() {
		e.markDirty()
		return nil
	}

	e.remote.Add(1)
	go func() {
		defer e.remote.Done()
		if err := e.gw.DeleteTask(context.Background(), e.account, id); err != nil {
			e.config.Logger.Printf("WARNING: remote deletion of %s failed (local removal kept): %v", id, err)
		}
	}()
	return nil
}

// WaitRemote blocks until outstanding background deletions finish.
// Called on shutdown so short-lived processes don't orphan deletes.
func (e *Engine) WaitRemote() {
	e.remote.Wait()
}

// AddMember adds a team member. Duplicate names are rejected.
func (e *Engine) AddMember(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: member name must not be blank", ErrValidation)
	}

	e.mu.Lock()
	if e.ws.HasMember(name) {
		e.mu.Unlock()
		return fmt.Errorf("%w: member %q already exists", ErrValidation, name)
	}
	e.ws.AddMember(name)
	e.mu.Unlock()
	e.markDirty()
	return nil
}

// RenameMember renames a member and cascades the rename to every task
// assigned to the old name, atomically with the roster change (same
// mutation, same dirty-mark). Renaming to an existing name is rejected.
func (e *Engine) RenameMember(old, new string) error {
	new = strings.TrimSpace(new)
	if new == "" {
		return fmt.Errorf("%w: new member name must not be blank", ErrValidation)
	}

	e.mu.Lock()
	if !e.ws.HasMember(old) {
		e.mu.Unlock()
		return fmt.Errorf("%w: member %q does not exist", ErrValidation, old)
	}
	if old != new && e.ws.HasMember(new) {
		e.mu.Unlock()
		return fmt.Errorf("%w: member %q already exists", ErrValidation, new)
	}
	if old == new {
		e.mu.Unlock()
		return nil
	}
	e.ws.RenameMember(old, new)
	e.mu.Unlock()
	e.markDirty()
	return nil
}

// RemoveMember drops a member from the roster. Self is never removable.
// Tasks assigned to the removed member keep their (now dangling)
// reference.
func (e *Engine) RemoveMember(name string) error {
	if name == model.Self {
		return fmt.Errorf("%w: %q cannot be removed", ErrValidation, model.Self)
	}

	e.mu.Lock()
	if !e.ws.RemoveMember(name) {
		e.mu.Unlock()
		return fmt.Errorf("%w: member %q does not exist", ErrValidation, name)
	}
	e.mu.Unlock()
	e.markDirty()
	return nil
}

// TasksOn returns copies of the tasks logged on date.
func (e *Engine) TasksOn(date string) []*model.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneTasks(e.ws.TasksOn(date))
}

// CompletedOn returns copies of the done tasks logged on date.
func (e *Engine) CompletedOn(date string) []*model.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneTasks(e.ws.CompletedOn(date))
}

// PendingOn returns copies of the pending tasks logged on date.
func (e *Engine) PendingOn(date string) []*model.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneTasks(e.ws.PendingOn(date))
}

// AssigneeLabel resolves a task's assignee for display, marking dangling
// references as former members.
func (e *Engine) AssigneeLabel(t *model.Task) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ws.AssigneeLabel(t)
}

// Team returns a copy of the roster in display order.
func (e *Engine) Team() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.ws.Team...)
}

// markDirty arms the scheduler. Ephemeral accounts never arm it: guest
// workspaces are session-only.
func (e *Engine) markDirty() {
	if e.account.Ephemeral {
		return
	}
	e.mu.Lock()
	marker := e.marker
	e.mu.Unlock()
	if marker != nil {
		marker.MarkDirty()
	}
}

func cloneTasks(tasks []*model.Task) []*model.Task {
	out := make([]*model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
