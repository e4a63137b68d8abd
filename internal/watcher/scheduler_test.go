package watcher

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/oscarh/taskwatch/internal/scope"
	"github.com/oscarh/taskwatch/internal/store"
	"github.com/oscarh/taskwatch/internal/webhook"
)

func newTestScheduler(t *testing.T, periods map[scope.Tier]time.Duration) (*Scheduler, *fakeSource) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	st := store.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), store.DefaultOriginTTL)
	t.Cleanup(func() { st.Close() })

	src := newFakeSource()
	w := New(src, st, webhook.NewDispatcher(), testClock, Config{DryRun: true})
	subs := []Subscriber{{ID: "sub-1", Endpoint: webhook.Endpoint{URL: "http://127.0.0.1:1", Secret: "s"}}}

	return NewScheduler(w, subs, periods), src
}

func TestSchedulerStartStopIdempotent(t *testing.T) {
	s, _ := newTestScheduler(t, nil)

	if s.Running() {
		t.Fatal("scheduler should not be running before Start")
	}
	if !s.Start(context.Background()) {
		t.Error("first Start should report the transition")
	}
	if s.Start(context.Background()) {
		t.Error("second Start should be a no-op")
	}
	if !s.Running() {
		t.Error("Running() should be true after Start")
	}

	if !s.Stop() {
		t.Error("first Stop should report the transition")
	}
	if s.Stop() {
		t.Error("second Stop should be a no-op")
	}
	if s.Running() {
		t.Error("Running() should be false after Stop")
	}
}

func TestSchedulerRestartable(t *testing.T) {
	s, _ := newTestScheduler(t, nil)

	ctx := context.Background()
	if !s.Start(ctx) || !s.Stop() {
		t.Fatal("first start/stop round failed")
	}
	if !s.Start(ctx) {
		t.Error("scheduler should start again after Stop")
	}
	if !s.Stop() {
		t.Error("scheduler should stop again")
	}
}

func TestSchedulerRunsCycles(t *testing.T) {
	s, src := newTestScheduler(t, map[scope.Tier]time.Duration{
		scope.TierToday:  5 * time.Millisecond,
		scope.TierWeek:   time.Hour,
		scope.TierPast:   time.Hour,
		scope.TierFuture: time.Hour,
	})

	s.Start(context.Background())
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for src.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("scheduler never ran a poll cycle")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSchedulerDefaultPeriods(t *testing.T) {
	s, _ := newTestScheduler(t, map[scope.Tier]time.Duration{
		scope.TierToday: time.Minute,
	})

	if s.periods[scope.TierToday] != time.Minute {
		t.Errorf("today period = %v, want override", s.periods[scope.TierToday])
	}
	if s.periods[scope.TierWeek] != scope.DefaultWeekInterval {
		t.Errorf("week period = %v, want default", s.periods[scope.TierWeek])
	}
	if s.periods[scope.TierPast] != scope.DefaultPastInterval {
		t.Errorf("past period = %v, want default", s.periods[scope.TierPast])
	}
	if s.periods[scope.TierFuture] != scope.DefaultFutureInterval {
		t.Errorf("future period = %v, want default", s.periods[scope.TierFuture])
	}
}
