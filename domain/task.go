package domain

import "time"

// Status identifies the board column a task belongs to.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// legacyDoneStatus is an older wire value some backend deployments still emit
// for finished tasks. It is accepted on read and mapped to StatusDone, never
// written back.
const legacyDoneStatus = "completed"

// NormalizeStatus maps a raw wire status onto one of the four board statuses.
// ok is false for values that do not belong on the board.
func NormalizeStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return s, true
	}
	if raw == legacyDoneStatus {
		return StatusDone, true
	}
	return "", false
}

// Priority ranks a task relative to others in its column.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task represents a single board item as returned by the task API.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	ProjectID   string     `json:"projectId,omitempty"`
}
