package detect

import (
	"testing"
	"time"

	"github.com/oscarh/taskwatch/internal/task"
	"github.com/oscarh/taskwatch/internal/webhook"
)

func snap(mutate func(*task.Task)) *task.Snapshot {
	tk := task.Task{
		ID:          "t1",
		Text:        "Buy milk",
		DueDate:     "2025-01-10",
		SnoozeUntil: "2025-01-08",
		TimeHorizon: &task.TimeHorizon{Type: task.HorizonSoon},
	}
	if mutate != nil {
		mutate(&tk)
	}
	s := task.NewSnapshot(tk, time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC))
	return &s
}

func TestClassifyDeleted(t *testing.T) {
	typ, changes, ok := Classify(snap(nil), nil)

	if !ok || typ != webhook.EventTaskDeleted {
		t.Fatalf("got (%v, %v), want task.deleted", typ, ok)
	}
	if changes != nil {
		t.Error("deleted events carry no change map")
	}
}

func TestClassifyCreated(t *testing.T) {
	typ, _, ok := Classify(nil, snap(nil))

	if !ok || typ != webhook.EventTaskCreated {
		t.Fatalf("got (%v, %v), want task.created", typ, ok)
	}
}

func TestClassifyBothNil(t *testing.T) {
	if _, _, ok := Classify(nil, nil); ok {
		t.Error("two nil snapshots should produce no event")
	}
}

func TestClassifyEqualHashNoEvent(t *testing.T) {
	if _, _, ok := Classify(snap(nil), snap(nil)); ok {
		t.Error("identical fingerprints should produce no event")
	}
}

func TestClassifyCompleted(t *testing.T) {
	newSnap := snap(func(tk *task.Task) {
		tk.Completed = true
		tk.CompletedAt = "2025-01-07T10:00:00Z"
		// Completion wins even when other fields change in the same interval.
		tk.DueDate = "2025-02-01"
	})

	typ, changes, ok := Classify(snap(nil), newSnap)

	if !ok || typ != webhook.EventTaskCompleted {
		t.Fatalf("got (%v, %v), want task.completed", typ, ok)
	}
	if changes != nil {
		t.Error("completed events carry no change map")
	}
}

func TestClassifyUncompleted(t *testing.T) {
	oldSnap := snap(func(tk *task.Task) { tk.Completed = true })

	typ, _, ok := Classify(oldSnap, snap(nil))

	if !ok || typ != webhook.EventTaskUncompleted {
		t.Fatalf("got (%v, %v), want task.uncompleted", typ, ok)
	}
}

func TestClassifyScheduledSnooze(t *testing.T) {
	newSnap := snap(func(tk *task.Task) { tk.SnoozeUntil = "2025-01-20" })

	typ, changes, ok := Classify(snap(nil), newSnap)

	if !ok || typ != webhook.EventTaskScheduled {
		t.Fatalf("got (%v, %v), want task.scheduled", typ, ok)
	}
	ch, present := changes["snoozeUntil"]
	if !present {
		t.Fatal("expected snoozeUntil change entry")
	}
	if ch.Old != "2025-01-08" || ch.New != "2025-01-20" {
		t.Errorf("snoozeUntil change = %+v", ch)
	}
}

func TestClassifyScheduledSnoozeBeatsHorizon(t *testing.T) {
	newSnap := snap(func(tk *task.Task) {
		tk.SnoozeUntil = "2025-01-20"
		tk.TimeHorizon = &task.TimeHorizon{Type: task.HorizonLater}
	})

	typ, changes, ok := Classify(snap(nil), newSnap)

	if !ok || typ != webhook.EventTaskScheduled {
		t.Fatalf("got (%v, %v), want task.scheduled", typ, ok)
	}
	if _, present := changes["timeHorizon"]; present {
		t.Error("snooze-date branch takes priority; timeHorizon should not appear")
	}
	if _, present := changes["snoozeUntil"]; !present {
		t.Error("expected snoozeUntil change entry")
	}
}

func TestClassifyScheduledHorizon(t *testing.T) {
	newSnap := snap(func(tk *task.Task) {
		tk.TimeHorizon = &task.TimeHorizon{Type: task.HorizonSomeday}
	})

	typ, changes, ok := Classify(snap(nil), newSnap)

	if !ok || typ != webhook.EventTaskScheduled {
		t.Fatalf("got (%v, %v), want task.scheduled", typ, ok)
	}
	ch := changes["timeHorizon"]
	if ch.Old != string(task.HorizonSoon) || ch.New != string(task.HorizonSomeday) {
		t.Errorf("timeHorizon change = %+v", ch)
	}
}

func TestClassifyUpdatedFields(t *testing.T) {
	oldSnap := snap(func(tk *task.Task) { tk.DueDate = "" })
	newSnap := snap(func(tk *task.Task) {
		tk.Text = "Buy oat milk"
		tk.DueDate = "2025-01-10"
		tk.TimeEstimate = 20
	})

	typ, changes, ok := Classify(oldSnap, newSnap)

	if !ok || typ != webhook.EventTaskUpdated {
		t.Fatalf("got (%v, %v), want task.updated", typ, ok)
	}
	if len(changes) != 3 {
		t.Fatalf("expected 3 change entries, got %v", changes)
	}
	if changes["text"].New != "Buy oat milk" {
		t.Errorf("text change = %+v", changes["text"])
	}
	if changes["dueDate"].Old != nil {
		t.Errorf("empty old dueDate should be null, got %v", changes["dueDate"].Old)
	}
	if changes["dueDate"].New != "2025-01-10" {
		t.Errorf("dueDate change = %+v", changes["dueDate"])
	}
	if changes["timeEstimate"].Old != 0 || changes["timeEstimate"].New != 20 {
		t.Errorf("timeEstimate change = %+v", changes["timeEstimate"])
	}
}

func TestClassifyUpdatedWithoutTrackedFieldDiffs(t *testing.T) {
	// Notes are fingerprinted but have no change-map key.
	newSnap := snap(func(tk *task.Task) { tk.Notes = "remember the coupon" })

	typ, changes, ok := Classify(snap(nil), newSnap)

	if !ok || typ != webhook.EventTaskUpdated {
		t.Fatalf("got (%v, %v), want task.updated", typ, ok)
	}
	if changes != nil {
		t.Errorf("change map should be omitted when no tracked field differs, got %v", changes)
	}
}
