// Package webhook defines the outbound event payload and the signed HTTP
// dispatcher that delivers it.
package webhook

import (
	"time"

	"github.com/google/uuid"

	"github.com/oscarh/taskwatch/internal/task"
)

// EventType identifies what kind of task change an event describes.
type EventType string

const (
	EventTaskCreated     EventType = "task.created"
	EventTaskCompleted   EventType = "task.completed"
	EventTaskUncompleted EventType = "task.uncompleted"
	EventTaskDeleted     EventType = "task.deleted"
	EventTaskUpdated     EventType = "task.updated"
	EventTaskScheduled   EventType = "task.scheduled"
)

// AllEventTypes returns every event type the engine can emit.
func AllEventTypes() []EventType {
	return []EventType{
		EventTaskCreated, EventTaskCompleted, EventTaskUncompleted,
		EventTaskDeleted, EventTaskUpdated, EventTaskScheduled,
	}
}

// Change is one field-level delta in an event's change map.
type Change struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// EventData carries the task state around a change. Task is absent for
// deletions; Previous is present when the prior snapshot is known; Changes
// holds field-level deltas for updated and scheduled events.
type EventData struct {
	Task     *task.Snapshot    `json:"task,omitempty"`
	Previous *task.Snapshot    `json:"previous,omitempty"`
	Changes  map[string]Change `json:"changes,omitempty"`
}

// Event is the webhook payload POSTed to a subscriber endpoint.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	SubscriberID string    `json:"subscriberId"`
	Data         EventData `json:"data"`
}

// NewEvent assembles an event with a fresh ID and the given emission time.
func NewEvent(subscriberID string, typ EventType, data EventData, at time.Time) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         typ,
		Timestamp:    at.UTC(),
		SubscriberID: subscriberID,
		Data:         data,
	}
}
