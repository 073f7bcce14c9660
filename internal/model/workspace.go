package model

import (
	"fmt"
	"slices"
)

// Self is the sentinel team member present in every durable workspace.
// It cannot be removed, only surrounded by other members.
const Self = "Self"

// Workspace is the full task list plus team roster for one account.
//
// Tasks are kept most-recent-first; the team preserves insertion order for
// display. The engine owns the live copy for a session; the store owns the
// durable copy keyed by account ID.
type Workspace struct {
	Tasks []*Task  `json:"tasks"`
	Team  []string `json:"team"`
}

// DefaultWorkspace returns the workspace every account starts with:
// no tasks and a team of just Self.
func DefaultWorkspace() *Workspace {
	return &Workspace{
		Tasks: []*Task{},
		Team:  []string{Self},
	}
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (w *Workspace) Clone() *Workspace {
	c := &Workspace{
		Tasks: make([]*Task, len(w.Tasks)),
		Team:  slices.Clone(w.Team),
	}
	for i, t := range w.Tasks {
		c.Tasks[i] = t.Clone()
	}
	return c
}

// Validate checks the workspace invariants: unique task IDs, valid tasks,
// and unique member names.
func (w *Workspace) Validate() error {
	seen := make(map[string]bool, len(w.Tasks))
	for _, t := range w.Tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task %s: %w", t.ID, err)
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate task id %s", t.ID)
		}
		seen[t.ID] = true
	}
	members := make(map[string]bool, len(w.Team))
	for _, m := range w.Team {
		if m == "" {
			return fmt.Errorf("empty member name")
		}
		if members[m] {
			return fmt.Errorf("duplicate member %q", m)
		}
		members[m] = true
	}
	return nil
}

// Task returns the task with the given ID, or nil if absent.
func (w *Workspace) Task(id string) *Task {
	for _, t := range w.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Prepend inserts a task at the front of the list (most-recent-first order).
func (w *Workspace) Prepend(t *Task) {
	w.Tasks = append([]*Task{t}, w.Tasks...)
}

// RemoveTask deletes the task with the given ID.
// Returns false if no such task exists.
func (w *Workspace) RemoveTask(id string) bool {
	for i, t := range w.Tasks {
		if t.ID == id {
			w.Tasks = append(w.Tasks[:i], w.Tasks[i+1:]...)
			return true
		}
	}
	return false
}

// HasMember reports whether name is on the team (case-sensitive exact match).
func (w *Workspace) HasMember(name string) bool {
	return slices.Contains(w.Team, name)
}

// AddMember appends a member name. Uniqueness is the caller's concern.
func (w *Workspace) AddMember(name string) {
	w.Team = append(w.Team, name)
}

// RenameMember replaces old with new in the roster and cascades the rename
// to every task assigned to old. Returns the number of tasks touched, or -1
// if old is not a member.
func (w *Workspace) RenameMember(old, new string) int {
	i := slices.Index(w.Team, old)
	if i < 0 {
		return -1
	}
	w.Team[i] = new
	touched := 0
	for _, t := range w.Tasks {
		if t.Assignee == old {
			t.Assignee = new
			touched++
		}
	}
	return touched
}

// RemoveMember drops name from the roster. Tasks assigned to the removed
// member keep their assignee reference (it dangles). Returns false if name
// is not a member.
func (w *Workspace) RemoveMember(name string) bool {
	i := slices.Index(w.Team, name)
	if i < 0 {
		return false
	}
	w.Team = append(w.Team[:i], w.Team[i+1:]...)
	return true
}

// AssigneeLabel returns the display label for a task's assignee: the bare
// name for current members, the name marked as a former member for dangling
// references, and "" for unassigned tasks.
func (w *Workspace) AssigneeLabel(t *Task) string {
	if t.Assignee == "" {
		return ""
	}
	if w.HasMember(t.Assignee) {
		return t.Assignee
	}
	return fmt.Sprintf("%s (former member)", t.Assignee)
}

// TasksOn returns the tasks whose log date equals date, in list order.
func (w *Workspace) TasksOn(date string) []*Task {
	var out []*Task
	for _, t := range w.Tasks {
		if t.LogDate == date {
			out = append(out, t)
		}
	}
	return out
}

// CompletedOn returns the done tasks logged on date (the diary view).
func (w *Workspace) CompletedOn(date string) []*Task {
	var out []*Task
	for _, t := range w.TasksOn(date) {
		if t.Status == StatusDone {
			out = append(out, t)
		}
	}
	return out
}

// PendingOn returns the not-done tasks logged on date (the planner view).
func (w *Workspace) PendingOn(date string) []*Task {
	var out []*Task
	for _, t := range w.TasksOn(date) {
		if t.Status != StatusDone {
			out = append(out, t)
		}
	}
	return out
}
