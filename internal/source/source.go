// Package source provides access to the upstream task service: read paths
// consumed by the poller and write paths that must flag their own changes
// as self-originated.
package source

import (
	"context"

	"github.com/oscarh/taskwatch/internal/task"
)

// Source is the task service capability the watcher consumes. Read methods
// return the normalized task representation; mutations are the origin of
// "self-made" changes that the next poll must suppress.
type Source interface {
	// ListTasksForDay returns the tasks scheduled on a civil date
	// (YYYY-MM-DD).
	ListTasksForDay(ctx context.Context, day string) ([]task.Task, error)

	// ListBacklogTasks returns tasks with no scheduled day.
	ListBacklogTasks(ctx context.Context) ([]task.Task, error)

	// GetTask retrieves a single task by ID.
	GetTask(ctx context.Context, id string) (*task.Task, error)

	// UpdateTask applies the given changes and returns the updated task.
	UpdateTask(ctx context.Context, id string, update TaskUpdate) (*task.Task, error)

	// Close cleans up any resources held by this source.
	Close() error
}

// CompleteTask marks a task done through any Source.
func CompleteTask(ctx context.Context, s Source, id string) (*task.Task, error) {
	done := true
	return s.UpdateTask(ctx, id, TaskUpdate{Completed: &done})
}

// ReopenTask clears a task's completed flag through any Source.
func ReopenTask(ctx context.Context, s Source, id string) (*task.Task, error) {
	done := false
	return s.UpdateTask(ctx, id, TaskUpdate{Completed: &done})
}

// TaskUpdate contains the fields to change on a task. Nil pointers leave
// the field untouched; empty-string pointers clear it.
type TaskUpdate struct {
	Text         *string           `json:"text,omitempty"`
	Notes        *string           `json:"notes,omitempty"`
	Completed    *bool             `json:"completed,omitempty"`
	DueDate      *string           `json:"dueDate,omitempty"`
	SnoozeUntil  *string           `json:"snoozeUntil,omitempty"`
	TimeEstimate *int              `json:"timeEstimate,omitempty"`
	TimeHorizon  *task.TimeHorizon `json:"timeHorizon,omitempty"`
}
