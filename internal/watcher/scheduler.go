package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/oscarh/taskwatch/internal/logging"
	"github.com/oscarh/taskwatch/internal/scope"
)

// Scheduler owns the four tier timers. Each tier runs on its own goroutine
// with its own period; within a tier, subscribers are polled sequentially,
// so a slow fetch delays siblings in the same tier but never another tier.
// Cross-tier overlap for the same subscriber is expected and safe: the
// store's per-task merge policy prevents lost updates.
type Scheduler struct {
	watcher     *Watcher
	subscribers []Subscriber
	periods     map[scope.Tier]time.Duration
	log         *logging.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler. Tiers missing from periods fall back to
// the scope package defaults.
func NewScheduler(w *Watcher, subscribers []Subscriber, periods map[scope.Tier]time.Duration) *Scheduler {
	defaults := map[scope.Tier]time.Duration{
		scope.TierToday:  scope.DefaultTodayInterval,
		scope.TierWeek:   scope.DefaultWeekInterval,
		scope.TierPast:   scope.DefaultPastInterval,
		scope.TierFuture: scope.DefaultFutureInterval,
	}
	for tier, d := range periods {
		if d > 0 {
			defaults[tier] = d
		}
	}

	return &Scheduler{
		watcher:     w,
		subscribers: subscribers,
		periods:     defaults,
		log:         logging.Get(),
	}
}

// Start launches the tier timers. Idempotent: it reports whether this call
// performed the transition.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	for _, tier := range scope.AllTiers() {
		s.wg.Add(1)
		go s.runTier(ctx, tier, s.periods[tier])
	}

	s.log.WithFields(map[string]interface{}{
		"subscribers": len(s.subscribers),
		"today":       s.periods[scope.TierToday].String(),
		"week":        s.periods[scope.TierWeek].String(),
		"past":        s.periods[scope.TierPast].String(),
		"future":      s.periods[scope.TierFuture].String(),
	}).Info("watcher started")

	return true
}

// Stop cancels all tier timers and waits for in-flight cycles to wind down.
// Idempotent: it reports whether this call performed the transition.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("watcher stopped")
	return true
}

// Running reports whether the scheduler is currently started.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runTier(ctx context.Context, tier scope.Tier, period time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollTier(ctx, tier)
		}
	}
}

// pollTier runs one cycle per subscriber, sequentially. One subscriber's
// failure is logged and never aborts the others.
func (s *Scheduler) pollTier(ctx context.Context, tier scope.Tier) {
	for _, sub := range s.subscribers {
		if ctx.Err() != nil {
			return
		}

		stats, err := s.watcher.RunCycle(ctx, sub, tier)
		if err != nil {
			s.log.WithSubscriber(sub.ID).WithTier(string(tier)).WithError(err).Error("poll cycle failed")
			continue
		}
		if stats.Dispatched > 0 || stats.Failed > 0 {
			s.log.WithSubscriber(sub.ID).WithTier(string(tier)).WithFields(map[string]interface{}{
				"dispatched": stats.Dispatched, "failed": stats.Failed,
			}).Info("webhook events delivered")
		}
	}
}
