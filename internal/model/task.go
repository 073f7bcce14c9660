// Package model provides the core data structures for daybook workspaces.
package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for log and target dates.
const DateLayout = "2006-01-02"

// Status represents the lifecycle state of a task.
// All transitions between states are permitted; none is terminal.
type Status string

const (
	// StatusTodo indicates planned work that has not started.
	StatusTodo Status = "todo"
	// StatusInProgress indicates work that has started but is not finished.
	StatusInProgress Status = "in_progress"
	// StatusDone indicates completed work.
	StatusDone Status = "done"
)

// Valid reports whether s is a recognized status value.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority is a coarse importance level for a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a recognized priority value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// Task is a single diary/planner entry.
//
// LogDate determines which day's view the task belongs to. It is mutable
// (postponement rewrites it) but always a valid calendar date string.
// CompletedAt is set if and only if the task's status was done at the most
// recent status transition.
type Task struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
	// Detail carries long-form description text, distinct from Notes.
	Detail string `json:"detail,omitempty"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	Category string   `json:"category,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// TargetDate is an explicit due date, when the creator supplied one.
	TargetDate string `json:"target_date,omitempty"`
	LogDate    string `json:"log_date"`

	// Assignee references a team-member name. The reference may dangle
	// (member removed after assignment); such tasks stay visible and
	// editable.
	Assignee       string   `json:"assignee,omitempty"`
	PostponeReason string   `json:"postpone_reason,omitempty"`
	DurationHours  *float64 `json:"duration_hours,omitempty"`
}

// Validate checks that the task's field values are consistent.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	if !ValidDate(t.LogDate) {
		return fmt.Errorf("invalid log date %q", t.LogDate)
	}
	if t.TargetDate != "" && !ValidDate(t.TargetDate) {
		return fmt.Errorf("invalid target date %q", t.TargetDate)
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if (t.Status == StatusDone) != (t.CompletedAt != nil) {
		return fmt.Errorf("completed_at must be set exactly when status is done")
	}
	if t.DurationHours != nil && *t.DurationHours < 0 {
		return fmt.Errorf("duration must be non-negative (got %v)", *t.DurationHours)
	}
	return nil
}

// SetDefaults applies default values for optional fields.
func (t *Task) SetDefaults() {
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityNormal
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.DurationHours != nil {
		h := *t.DurationHours
		c.DurationHours = &h
	}
	return &c
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
