// Package scope computes, per polling tier, which calendar days must be
// re-fetched from the task source.
package scope

import (
	"time"

	"github.com/oscarh/taskwatch/internal/clock"
)

// Tier is one of the four independent polling schedules. Each tier has its
// own period and its own day-set rule.
type Tier string

const (
	TierToday  Tier = "today"
	TierWeek   Tier = "week"
	TierPast   Tier = "past"
	TierFuture Tier = "future"
)

// Default polling periods per tier.
const (
	DefaultTodayInterval  = 30 * time.Second
	DefaultWeekInterval   = 5 * time.Minute
	DefaultPastInterval   = 15 * time.Minute
	DefaultFutureInterval = 10 * time.Minute
)

// DayFormat is the civil-date layout used throughout the poller.
const DayFormat = "2006-01-02"

// AllTiers returns the four tiers in a stable order.
func AllTiers() []Tier {
	return []Tier{TierToday, TierWeek, TierPast, TierFuture}
}

// Valid reports whether t names a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierToday, TierWeek, TierPast, TierFuture:
		return true
	}
	return false
}

// Windows configures how far the past and future tiers reach: full
// Monday-Sunday weeks plus extra individual days beyond them.
type Windows struct {
	PastWeeks       int
	PastExtraDays   int
	FutureWeeks     int
	FutureExtraDays int
}

// DefaultWindows is the window configuration used when none is supplied.
var DefaultWindows = Windows{
	PastWeeks:       2,
	PastExtraDays:   3,
	FutureWeeks:     3,
	FutureExtraDays: 4,
}

// Days returns the calendar days (YYYY-MM-DD, ascending) the tier must
// re-fetch, computed from the clock's current date:
//
//   - today: the single current date.
//   - week: every day of the current Monday-Sunday week except today.
//   - past: PastWeeks full prior weeks, preceded by PastExtraDays individual
//     days immediately before the earliest of those weeks.
//   - future: FutureWeeks full upcoming weeks, followed by FutureExtraDays
//     individual days immediately after the latest of those weeks.
//
// Backlog tasks have no day; the today tier covers them, see IncludesBacklog.
func Days(tier Tier, w Windows, clk clock.Clock) []string {
	now := clk.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monday := weekStart(today)

	var days []time.Time
	switch tier {
	case TierToday:
		days = []time.Time{today}

	case TierWeek:
		for i := 0; i < 7; i++ {
			d := monday.AddDate(0, 0, i)
			if d.Equal(today) {
				continue
			}
			days = append(days, d)
		}

	case TierPast:
		earliest := monday.AddDate(0, 0, -7*w.PastWeeks)
		for i := w.PastExtraDays; i >= 1; i-- {
			days = append(days, earliest.AddDate(0, 0, -i))
		}
		for i := 0; i < 7*w.PastWeeks; i++ {
			days = append(days, earliest.AddDate(0, 0, i))
		}

	case TierFuture:
		first := monday.AddDate(0, 0, 7)
		for i := 0; i < 7*w.FutureWeeks; i++ {
			days = append(days, first.AddDate(0, 0, i))
		}
		latest := first.AddDate(0, 0, 7*w.FutureWeeks-1)
		for i := 1; i <= w.FutureExtraDays; i++ {
			days = append(days, latest.AddDate(0, 0, i))
		}
	}

	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Format(DayFormat)
	}
	return out
}

// IncludesBacklog reports whether the tier's poll must also fetch the full
// backlog. Backlog membership is only observable through the today tier.
func IncludesBacklog(tier Tier) bool {
	return tier == TierToday
}

// weekStart returns the Monday of the week containing d. A Sunday maps to
// six days past its Monday.
func weekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
