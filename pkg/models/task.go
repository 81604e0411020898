package models

import (
	"strings"
	"time"
)

// TaskStatus represents the current state of a task.
// The string values are persisted and must stay stable.
type TaskStatus string

const (
	// TaskStatusTodo indicates the task has not started.
	TaskStatusTodo TaskStatus = "todo"
	// TaskStatusDoing indicates the task is being worked on.
	TaskStatusDoing TaskStatus = "doing"
	// TaskStatusPending indicates the task is waiting on input. Requires a reason.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusBlocked indicates the task cannot proceed. Requires a reason.
	TaskStatusBlocked TaskStatus = "blocked"
	// TaskStatusDone indicates the task completed.
	TaskStatusDone TaskStatus = "done"
)

// TaskStatuses lists every recognized status in lifecycle order.
var TaskStatuses = []TaskStatus{
	TaskStatusTodo,
	TaskStatusDoing,
	TaskStatusPending,
	TaskStatusBlocked,
	TaskStatusDone,
}

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusDoing, TaskStatusPending, TaskStatusBlocked, TaskStatusDone:
		return true
	default:
		return false
	}
}

// RequiresReason reports whether entering this status needs a status reason.
func (s TaskStatus) RequiresReason() bool {
	return s == TaskStatusPending || s == TaskStatusBlocked
}

// ParseTaskStatus normalizes raw input into a TaskStatus.
// The second return value is false for unrecognized values.
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	s := TaskStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// EntryKind identifies one of a task's append-only lists.
type EntryKind string

const (
	EntryBlocker  EntryKind = "blocker"
	EntryArtifact EntryKind = "artifact"
	EntryWorklog  EntryKind = "worklog"
)

// TaskEntry is one item in a task's blockers, artifacts or worklog.
type TaskEntry struct {
	Content   string    `json:"content"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Board groups tasks under a managing agent.
type Board struct {
	// BoardID is the unique identifier, a title slug plus hex suffix.
	BoardID string `json:"boardId"`
	// Title is the board's display title.
	Title string `json:"title"`
	// Owner is the agent id that created the board.
	Owner string `json:"owner"`
	// IsDefault marks the implicit board created for a manager on first task.
	IsDefault bool `json:"isDefault"`
	// CreatedAt is when the board was created.
	CreatedAt time.Time `json:"createdAt"`
}

// Task is a unit of tracked work assigned to exactly one agent.
type Task struct {
	// TaskID is the unique identifier.
	TaskID string `json:"taskId"`
	// BoardID is the board this task belongs to.
	BoardID string `json:"boardId"`
	// Project is a free-form path marker. Defaults to "~".
	Project string `json:"project"`
	// Owner is the agent that created the task.
	Owner string `json:"owner"`
	// AssignedTo is the agent responsible for the task.
	AssignedTo string `json:"assignedTo"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description"`
	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`
	// StatusReason explains a pending or blocked status.
	StatusReason *string `json:"statusReason"`
	// Blockers, Artifacts and Worklog are append-only, oldest first.
	Blockers  []TaskEntry `json:"blockers"`
	Artifacts []TaskEntry `json:"artifacts"`
	Worklog   []TaskEntry `json:"worklog"`
	// CreatedAt is immutable.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is bumped by every mutation.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Reason returns the status reason or "".
func (t Task) Reason() string {
	if t.StatusReason == nil {
		return ""
	}
	return *t.StatusReason
}
