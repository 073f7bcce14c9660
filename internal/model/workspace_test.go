package model

import (
	"testing"
	"time"
)

// newTestTask builds a minimal valid task for workspace tests.
func newTestTask(id, title, assignee string) *Task {
	return &Task{
		ID:        id,
		Title:     title,
		Status:    StatusTodo,
		Priority:  PriorityNormal,
		LogDate:   "2026-02-10",
		Assignee:  assignee,
		CreatedAt: time.Now(),
	}
}

func TestDefaultWorkspace(t *testing.T) {
	w := DefaultWorkspace()

	if len(w.Tasks) != 0 {
		t.Errorf("expected empty task list, got %d tasks", len(w.Tasks))
	}
	if len(w.Team) != 1 || w.Team[0] != Self {
		t.Errorf("expected team [Self], got %v", w.Team)
	}
}

func TestPrependOrder(t *testing.T) {
	w := DefaultWorkspace()
	w.Prepend(newTestTask("a", "first", ""))
	w.Prepend(newTestTask("b", "second", ""))

	if w.Tasks[0].ID != "b" || w.Tasks[1].ID != "a" {
		t.Errorf("expected most-recent-first order [b a], got [%s %s]", w.Tasks[0].ID, w.Tasks[1].ID)
	}
}

func TestRenameMemberCascades(t *testing.T) {
	w := DefaultWorkspace()
	w.AddMember("Priya")
	w.Prepend(newTestTask("a", "one", "Priya"))
	w.Prepend(newTestTask("b", "two", "Priya"))
	w.Prepend(newTestTask("c", "three", Self))

	touched := w.RenameMember("Priya", "Priyanka")
	if touched != 2 {
		t.Errorf("expected 2 tasks touched, got %d", touched)
	}

	for _, task := range w.Tasks {
		if task.Assignee == "Priya" {
			t.Errorf("task %s still assigned to old name", task.ID)
		}
	}
	if w.Tasks[0].Assignee != Self {
		t.Errorf("unrelated assignee changed: %s", w.Tasks[0].Assignee)
	}
	if !w.HasMember("Priyanka") || w.HasMember("Priya") {
		t.Errorf("roster not updated: %v", w.Team)
	}
}

func TestRenameMemberUnknown(t *testing.T) {
	w := DefaultWorkspace()
	if touched := w.RenameMember("Nobody", "Someone"); touched != -1 {
		t.Errorf("expected -1 for unknown member, got %d", touched)
	}
}

func TestRemoveMemberLeavesDanglingAssignee(t *testing.T) {
	w := DefaultWorkspace()
	w.AddMember("Sam")
	w.Prepend(newTestTask("a", "one", "Sam"))

	if !w.RemoveMember("Sam") {
		t.Fatal("RemoveMember failed")
	}

	task := w.Task("a")
	if task == nil {
		t.Fatal("task disappeared after member removal")
	}
	if task.Assignee != "Sam" {
		t.Errorf("assignee reference was rewritten to %q, want dangling %q", task.Assignee, "Sam")
	}
	if got := w.AssigneeLabel(task); got != "Sam (former member)" {
		t.Errorf("AssigneeLabel = %q, want former-member label", got)
	}
}

func TestAssigneeLabel(t *testing.T) {
	w := DefaultWorkspace()
	w.AddMember("Kim")

	current := newTestTask("a", "one", "Kim")
	unassigned := newTestTask("b", "two", "")

	if got := w.AssigneeLabel(current); got != "Kim" {
		t.Errorf("current member label = %q, want %q", got, "Kim")
	}
	if got := w.AssigneeLabel(unassigned); got != "" {
		t.Errorf("unassigned label = %q, want empty", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	w := DefaultWorkspace()
	hours := 2.5
	task := newTestTask("a", "one", Self)
	task.DurationHours = &hours
	w.Prepend(task)

	c := w.Clone()
	c.Tasks[0].Title = "changed"
	*c.Tasks[0].DurationHours = 9
	c.Team[0] = "Other"

	if w.Tasks[0].Title != "one" {
		t.Errorf("clone shares task structs with original")
	}
	if *w.Tasks[0].DurationHours != 2.5 {
		t.Errorf("clone shares duration pointer with original")
	}
	if w.Team[0] != Self {
		t.Errorf("clone shares team slice with original")
	}
}

func TestDateViews(t *testing.T) {
	w := DefaultWorkspace()

	done := newTestTask("a", "done today", "")
	done.Status = StatusDone
	now := time.Now()
	done.CompletedAt = &now
	w.Prepend(done)

	pending := newTestTask("b", "pending today", "")
	w.Prepend(pending)

	other := newTestTask("c", "other day", "")
	other.LogDate = "2026-02-11"
	w.Prepend(other)

	if got := len(w.TasksOn("2026-02-10")); got != 2 {
		t.Errorf("TasksOn = %d tasks, want 2", got)
	}
	if got := w.CompletedOn("2026-02-10"); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("CompletedOn returned wrong tasks: %v", got)
	}
	if got := w.PendingOn("2026-02-10"); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("PendingOn returned wrong tasks: %v", got)
	}
}

func TestWorkspaceValidate(t *testing.T) {
	w := DefaultWorkspace()
	w.Prepend(newTestTask("a", "one", ""))
	if err := w.Validate(); err != nil {
		t.Fatalf("valid workspace rejected: %v", err)
	}

	dup := DefaultWorkspace()
	dup.Prepend(newTestTask("a", "one", ""))
	dup.Prepend(newTestTask("a", "two", ""))
	if err := dup.Validate(); err == nil {
		t.Error("expected error for duplicate task id")
	}

	team := DefaultWorkspace()
	team.AddMember(Self)
	if err := team.Validate(); err == nil {
		t.Error("expected error for duplicate member")
	}
}

func TestTaskValidate(t *testing.T) {
	task := newTestTask("a", "one", "")
	if err := task.Validate(); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}

	bad := newTestTask("b", "two", "")
	bad.LogDate = "2026-13-99"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for malformed log date")
	}

	done := newTestTask("c", "three", "")
	done.Status = StatusDone
	if err := done.Validate(); err == nil {
		t.Error("expected error for done task without completed_at")
	}

	neg := newTestTask("d", "four", "")
	hours := -1.0
	neg.DurationHours = &hours
	if err := neg.Validate(); err == nil {
		t.Error("expected error for negative duration")
	}
}
