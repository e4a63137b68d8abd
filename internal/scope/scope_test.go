package scope

import (
	"testing"
	"time"

	"github.com/oscarh/taskwatch/internal/clock"
)

// Wednesday 2025-01-15. Its week runs Monday 2025-01-13 to Sunday 2025-01-19.
var wednesday = clock.Fixed{T: time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)}

func TestDaysToday(t *testing.T) {
	days := Days(TierToday, DefaultWindows, wednesday)

	if len(days) != 1 || days[0] != "2025-01-15" {
		t.Errorf("today tier days = %v, want [2025-01-15]", days)
	}
}

func TestDaysWeekExcludesToday(t *testing.T) {
	days := Days(TierWeek, DefaultWindows, wednesday)

	want := []string{
		"2025-01-13", "2025-01-14", "2025-01-16",
		"2025-01-17", "2025-01-18", "2025-01-19",
	}
	assertDays(t, days, want)
}

func TestDaysPast(t *testing.T) {
	w := Windows{PastWeeks: 1, PastExtraDays: 2}
	days := Days(TierPast, w, wednesday)

	// One full prior week (Jan 6-12) plus the two days before it.
	want := []string{
		"2025-01-04", "2025-01-05",
		"2025-01-06", "2025-01-07", "2025-01-08", "2025-01-09",
		"2025-01-10", "2025-01-11", "2025-01-12",
	}
	assertDays(t, days, want)
}

func TestDaysFuture(t *testing.T) {
	w := Windows{FutureWeeks: 1, FutureExtraDays: 2}
	days := Days(TierFuture, w, wednesday)

	// Next full week (Jan 20-26) plus the two days after it.
	want := []string{
		"2025-01-20", "2025-01-21", "2025-01-22", "2025-01-23",
		"2025-01-24", "2025-01-25", "2025-01-26",
		"2025-01-27", "2025-01-28",
	}
	assertDays(t, days, want)
}

func TestWeekStartSunday(t *testing.T) {
	// Sunday 2025-01-19 belongs to the week starting Monday 2025-01-13.
	sunday := clock.Fixed{T: time.Date(2025, 1, 19, 8, 0, 0, 0, time.UTC)}
	days := Days(TierWeek, DefaultWindows, sunday)

	want := []string{
		"2025-01-13", "2025-01-14", "2025-01-15",
		"2025-01-16", "2025-01-17", "2025-01-18",
	}
	assertDays(t, days, want)
}

func TestWeekStartMonday(t *testing.T) {
	monday := clock.Fixed{T: time.Date(2025, 1, 13, 0, 5, 0, 0, time.UTC)}
	days := Days(TierToday, DefaultWindows, monday)

	if len(days) != 1 || days[0] != "2025-01-13" {
		t.Errorf("today tier days = %v, want [2025-01-13]", days)
	}
}

func TestDaysPastMultipleWeeks(t *testing.T) {
	w := Windows{PastWeeks: 2}
	days := Days(TierPast, w, wednesday)

	if len(days) != 14 {
		t.Fatalf("expected 14 days for two past weeks, got %d", len(days))
	}
	if days[0] != "2024-12-30" {
		t.Errorf("earliest past day = %s, want 2024-12-30", days[0])
	}
	if days[13] != "2025-01-12" {
		t.Errorf("latest past day = %s, want 2025-01-12", days[13])
	}
}

func TestIncludesBacklog(t *testing.T) {
	if !IncludesBacklog(TierToday) {
		t.Error("today tier should include the backlog")
	}
	for _, tier := range []Tier{TierWeek, TierPast, TierFuture} {
		if IncludesBacklog(tier) {
			t.Errorf("%s tier should not include the backlog", tier)
		}
	}
}

func TestTierValid(t *testing.T) {
	for _, tier := range AllTiers() {
		if !tier.Valid() {
			t.Errorf("tier %q should be valid", tier)
		}
	}
	if Tier("yesterday").Valid() {
		t.Error("unknown tier should be invalid")
	}
}

func assertDays(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d days %v, want %d days %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
