package source

import (
	"context"

	"github.com/oscarh/taskwatch/internal/logging"
	"github.com/oscarh/taskwatch/internal/task"
	"github.com/oscarh/taskwatch/internal/webhook"
)

// OriginRecorder records that a coming change for (subscriber, taskID) was
// caused by this system. Satisfied by *store.Store.
type OriginRecorder interface {
	MarkOrigin(ctx context.Context, subscriber, taskID, eventType string) error
}

// RecordingSource wraps a Source so that every mutation leaves a self-origin
// marker behind. The next poll cycle that detects the resulting change finds
// the marker and suppresses the echo.
type RecordingSource struct {
	Source

	subscriber string
	recorder   OriginRecorder
	log        *logging.Logger
}

// NewRecordingSource wraps src for the given subscriber.
func NewRecordingSource(src Source, subscriber string, recorder OriginRecorder) *RecordingSource {
	return &RecordingSource{
		Source:     src,
		subscriber: subscriber,
		recorder:   recorder,
		log:        logging.WithSubscriber(subscriber),
	}
}

// UpdateTask applies the update, then records the event type the mutation
// will surface as. A failed marker write is logged, not fatal: the worst
// case is one echoed webhook rather than a lost mutation.
func (r *RecordingSource) UpdateTask(ctx context.Context, id string, update TaskUpdate) (*task.Task, error) {
	updated, err := r.Source.UpdateTask(ctx, id, update)
	if err != nil {
		return nil, err
	}

	eventType := eventTypeFor(update)
	if err := r.recorder.MarkOrigin(ctx, r.subscriber, id, string(eventType)); err != nil {
		r.log.WithError(err).WithField("task", id).Warn("failed to record self-origin marker")
	}
	return updated, nil
}

// eventTypeFor maps a mutation onto the event type the next poll will
// classify it as, mirroring the detector's priority order.
func eventTypeFor(update TaskUpdate) webhook.EventType {
	switch {
	case update.Completed != nil && *update.Completed:
		return webhook.EventTaskCompleted
	case update.Completed != nil:
		return webhook.EventTaskUncompleted
	case update.SnoozeUntil != nil || update.TimeHorizon != nil:
		return webhook.EventTaskScheduled
	default:
		return webhook.EventTaskUpdated
	}
}
