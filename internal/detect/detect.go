// Package detect classifies the delta between two task snapshots into a
// single typed webhook event.
package detect

import (
	"github.com/oscarh/taskwatch/internal/task"
	"github.com/oscarh/taskwatch/internal/webhook"
)

// Classify compares an old and new snapshot and returns the event type, an
// optional field-level change map, and whether an event applies at all.
//
// The priority ladder is exclusive; the first matching rule wins, so a task
// that both completes and changes its due date within one poll interval
// reports only task.completed. Field-level granularity is surfaced only for
// task.updated.
func Classify(old, new *task.Snapshot) (webhook.EventType, map[string]webhook.Change, bool) {
	switch {
	case old == nil && new == nil:
		return "", nil, false
	case old != nil && new == nil:
		return webhook.EventTaskDeleted, nil, true
	case old == nil:
		return webhook.EventTaskCreated, nil, true
	}

	if old.Hash == new.Hash {
		return "", nil, false
	}

	if !old.Completed && new.Completed {
		return webhook.EventTaskCompleted, nil, true
	}
	if old.Completed && !new.Completed {
		return webhook.EventTaskUncompleted, nil, true
	}

	if old.SnoozeUntil != new.SnoozeUntil {
		changes := map[string]webhook.Change{
			"snoozeUntil": {Old: nullable(old.SnoozeUntil), New: nullable(new.SnoozeUntil)},
		}
		return webhook.EventTaskScheduled, changes, true
	}

	if old.HorizonType != new.HorizonType {
		changes := map[string]webhook.Change{
			"timeHorizon": {Old: nullable(string(old.HorizonType)), New: nullable(string(new.HorizonType))},
		}
		return webhook.EventTaskScheduled, changes, true
	}

	changes := make(map[string]webhook.Change)
	if old.Text != new.Text {
		changes["text"] = webhook.Change{Old: old.Text, New: new.Text}
	}
	if old.DueDate != new.DueDate {
		changes["dueDate"] = webhook.Change{Old: nullable(old.DueDate), New: nullable(new.DueDate)}
	}
	if old.TimeEstimate != new.TimeEstimate {
		changes["timeEstimate"] = webhook.Change{Old: old.TimeEstimate, New: new.TimeEstimate}
	}
	if len(changes) == 0 {
		// The hash moved on a field without its own change key (notes,
		// categories); report the update without a change map.
		changes = nil
	}
	return webhook.EventTaskUpdated, changes, true
}

// nullable maps an empty string to JSON null in change maps.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
