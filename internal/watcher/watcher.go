// Package watcher orchestrates poll cycles: fetch tasks for a tier's day
// window, diff against stored snapshots, suppress self-originated changes,
// dispatch webhook events, and persist the merged state.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oscarh/taskwatch/internal/clock"
	"github.com/oscarh/taskwatch/internal/detect"
	"github.com/oscarh/taskwatch/internal/logging"
	"github.com/oscarh/taskwatch/internal/scope"
	"github.com/oscarh/taskwatch/internal/source"
	"github.com/oscarh/taskwatch/internal/store"
	"github.com/oscarh/taskwatch/internal/task"
	"github.com/oscarh/taskwatch/internal/webhook"
)

// Subscriber pairs a subscriber ID with its delivery endpoint.
type Subscriber struct {
	ID       string
	Endpoint webhook.Endpoint
}

// Config holds per-watcher polling behavior.
type Config struct {
	// Windows sizes the past and future tiers.
	Windows scope.Windows

	// BatchSize is how many days are fetched concurrently per batch;
	// BatchDelay is the pause between batches. Both exist to respect the
	// task service's rate limits.
	BatchSize  int
	BatchDelay time.Duration

	// DryRun detects and logs changes but skips delivery.
	DryRun bool
}

// Stats summarizes one poll cycle.
type Stats struct {
	Subscriber string
	Tier       scope.Tier
	FirstPoll  bool
	Fetched    int
	New        int
	Changed    int
	Dispatched int
	Skipped    int
	Suppressed int
	Failed     int
	Elapsed    time.Duration
}

// Watcher runs poll cycles for subscribers.
type Watcher struct {
	source     source.Source
	store      *store.Store
	dispatcher *webhook.Dispatcher
	clk        clock.Clock
	cfg        Config
	log        *logging.Logger
}

// New creates a Watcher.
func New(src source.Source, st *store.Store, d *webhook.Dispatcher, clk clock.Clock, cfg Config) *Watcher {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 3
	}
	return &Watcher{
		source:     src,
		store:      st,
		dispatcher: d,
		clk:        clk,
		cfg:        cfg,
		log:        logging.Get(),
	}
}

// RunCycle performs one poll cycle for one subscriber and tier.
//
// The first poll for a subscriber stores every observed task as a baseline
// and emits nothing, so a new subscriber is not flooded with created events.
// After the baseline, a task observed without a prior snapshot is stored
// silently too: a task that only now enters the polled window is not
// distinguishable from one that always existed outside it, so no created
// event is ever emitted for it. Deletions are likewise never derived from
// absence, because a task missing from this tier's window may still exist in
// another tier's unpolled window.
//
// Fetch and store errors abort the cycle with state untouched; the tier's
// next tick retries naturally. A failed delivery for one task never blocks
// snapshot persistence or events for the rest of the cycle.
func (w *Watcher) RunCycle(ctx context.Context, sub Subscriber, tier scope.Tier) (*Stats, error) {
	start := time.Now()
	log := w.log.WithSubscriber(sub.ID).WithTier(string(tier))
	stats := &Stats{Subscriber: sub.ID, Tier: tier}

	days := scope.Days(tier, w.cfg.Windows, w.clk)
	current, err := w.fetchWindow(ctx, days, scope.IncludesBacklog(tier))
	if err != nil {
		return nil, fmt.Errorf("fetch %s window: %w", tier, err)
	}
	stats.Fetched = len(current)

	state, err := w.store.LoadState(ctx, sub.ID)
	if err != nil {
		// Without a trustworthy baseline, diffing would manufacture
		// false events; treat the cycle as aborted.
		return nil, fmt.Errorf("load state: %w", err)
	}

	now := w.clk.Now()

	if len(state.Tasks) == 0 {
		return w.storeBaseline(ctx, sub.ID, current, now, stats, start, log)
	}

	updated := make(map[string]task.Snapshot)
	for id, tk := range current {
		snap := task.NewSnapshot(tk, now)

		prev, known := state.Tasks[id]
		if !known {
			updated[id] = snap
			stats.New++
			continue
		}
		if prev.Hash == snap.Hash {
			continue
		}

		stats.Changed++
		// The snapshot advances whether or not the event goes out.
		updated[id] = snap

		typ, changes, ok := detect.Classify(&prev, &snap)
		if !ok {
			continue
		}

		if origin, found, oerr := w.store.ConsumeOrigin(ctx, sub.ID, id); oerr != nil {
			log.WithError(oerr).WithField("task", id).Warn("origin marker check failed, emitting anyway")
		} else if found {
			stats.Suppressed++
			log.WithFields(map[string]interface{}{
				"task": id, "event": typ, "origin": origin,
			}).Debug("suppressed self-originated change")
			continue
		}

		if w.cfg.DryRun {
			log.WithFields(map[string]interface{}{"task": id, "event": typ}).Info("dry run, would deliver")
			continue
		}

		ev := webhook.NewEvent(sub.ID, typ, webhook.EventData{
			Task:     &snap,
			Previous: &prev,
			Changes:  changes,
		}, now)

		res := w.dispatcher.Send(ctx, sub.Endpoint, ev)
		switch {
		case res.Skipped:
			stats.Skipped++
		case res.Delivered:
			stats.Dispatched++
		default:
			stats.Failed++
		}
	}

	if err := w.store.PutSnapshots(ctx, sub.ID, updated); err != nil {
		return nil, fmt.Errorf("persist state: %w", err)
	}
	if err := w.store.TouchLastPoll(ctx, sub.ID, now); err != nil {
		log.WithError(err).Warn("failed to record last poll time")
	}

	stats.Elapsed = time.Since(start)
	log.WithFields(map[string]interface{}{
		"fetched": stats.Fetched, "changed": stats.Changed,
		"dispatched": stats.Dispatched, "suppressed": stats.Suppressed,
		"failed": stats.Failed, "elapsed_ms": stats.Elapsed.Milliseconds(),
	}).Debug("poll cycle complete")

	return stats, nil
}

// storeBaseline persists the first observation of a subscriber's tasks
// without emitting any events.
func (w *Watcher) storeBaseline(ctx context.Context, subscriber string, current map[string]task.Task, now time.Time, stats *Stats, start time.Time, log *logging.Logger) (*Stats, error) {
	stats.FirstPoll = true

	snaps := make(map[string]task.Snapshot, len(current))
	for id, tk := range current {
		snaps[id] = task.NewSnapshot(tk, now)
	}

	if err := w.store.PutSnapshots(ctx, subscriber, snaps); err != nil {
		return nil, fmt.Errorf("store baseline: %w", err)
	}
	if err := w.store.TouchLastPoll(ctx, subscriber, now); err != nil {
		log.WithError(err).Warn("failed to record last poll time")
	}

	stats.New = len(snaps)
	stats.Elapsed = time.Since(start)
	log.WithField("tasks", len(snaps)).Info("first poll, baseline stored")
	return stats, nil
}

// fetchWindow fetches all days of a tier's window in fixed-size concurrent
// batches with a fixed delay between batches, plus the backlog when asked.
func (w *Watcher) fetchWindow(ctx context.Context, days []string, backlog bool) (map[string]task.Task, error) {
	out := make(map[string]task.Task)
	var mu sync.Mutex

	for i := 0; i < len(days); i += w.cfg.BatchSize {
		end := i + w.cfg.BatchSize
		if end > len(days) {
			end = len(days)
		}

		var wg sync.WaitGroup
		errs := make([]error, end-i)
		for j, day := range days[i:end] {
			wg.Add(1)
			go func(j int, day string) {
				defer wg.Done()
				tasks, err := w.source.ListTasksForDay(ctx, day)
				if err != nil {
					errs[j] = fmt.Errorf("day %s: %w", day, err)
					return
				}
				mu.Lock()
				for _, tk := range tasks {
					out[tk.ID] = tk
				}
				mu.Unlock()
			}(j, day)
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}

		if end < len(days) && w.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(w.cfg.BatchDelay):
			}
		}
	}

	if backlog {
		tasks, err := w.source.ListBacklogTasks(ctx)
		if err != nil {
			return nil, fmt.Errorf("backlog: %w", err)
		}
		for _, tk := range tasks {
			out[tk.ID] = tk
		}
	}

	return out, nil
}
