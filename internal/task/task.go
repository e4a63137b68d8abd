// Package task defines the normalized task model observed from the upstream
// API and the compact snapshot persisted between polls.
package task

import "time"

// HorizonType is a task's backlog-bucket classification, used when the task
// has no specific scheduled day.
type HorizonType string

const (
	HorizonSoon        HorizonType = "soon"
	HorizonNext        HorizonType = "next"
	HorizonNextQuarter HorizonType = "next-quarter"
	HorizonLater       HorizonType = "later"
	HorizonSomeday     HorizonType = "someday"
	HorizonNever       HorizonType = "never"
)

// TimeHorizon classifies a backlog task, optionally relative to a reference
// date (civil date, YYYY-MM-DD).
type TimeHorizon struct {
	Type       HorizonType `json:"type"`
	RelativeTo string      `json:"relativeTo,omitempty"`
}

// Task is the normalized task representation returned by a Source.
// Dates (dueDate, snoozeUntil) are civil dates in YYYY-MM-DD form;
// completedAt is RFC3339.
type Task struct {
	ID           string       `json:"id"`
	Text         string       `json:"text"`
	Notes        string       `json:"notes,omitempty"`
	Completed    bool         `json:"completed"`
	CompletedAt  string       `json:"completedAt,omitempty"`
	SnoozeUntil  string       `json:"snoozeUntil,omitempty"`
	DueDate      string       `json:"dueDate,omitempty"`
	TimeEstimate int          `json:"timeEstimate,omitempty"`
	TimeHorizon  *TimeHorizon `json:"timeHorizon,omitempty"`
	CategoryIDs  []string     `json:"categoryIds,omitempty"`
	UpdatedAt    time.Time    `json:"updatedAt,omitempty"`
}

// Horizon returns the backlog-bucket type, or "" when the task has none.
func (t Task) Horizon() HorizonType {
	if t.TimeHorizon == nil {
		return ""
	}
	return t.TimeHorizon.Type
}
