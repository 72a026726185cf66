// Package schedule computes usage-counter reset times.
//
// All computations are pure functions of the inputs and operate in UTC.
// Callers normalize timestamps exactly once, at the boundary where they
// enter the engine, by passing them through Normalize.
package schedule

import (
	"time"

	"github.com/xraph/quota/tier"
)

// CycleDays is the length of one anchored billing cycle.
const CycleDays = 30

// Cycle is CycleDays as a duration.
const Cycle = CycleDays * 24 * time.Hour

// Normalize converts a timestamp to UTC. Every timestamp entering the
// engine passes through here so that downstream math never mixes zones.
func Normalize(t time.Time) time.Time {
	return t.UTC()
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextWeekly returns the start of the next calendar week after now:
// midnight UTC on the following Monday. When now is itself a Monday the
// result is the Monday one week out, so the returned instant is always
// strictly in the future.
func NextWeekly(now time.Time) time.Time {
	now = now.UTC()
	days := (8 - int(now.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	return StartOfDay(now).AddDate(0, 0, days)
}

// NextAnchored returns the next 30-day multiple of the anchor's day that
// falls strictly after now. The anchor is the subscription start; cycles
// tick every CycleDays from its calendar day regardless of when the
// counter was last reset, and every boundary lands on midnight UTC.
func NextAnchored(anchor, now time.Time) time.Time {
	anchor = StartOfDay(anchor)
	now = now.UTC()

	periods := floorDiv(int64(now.Sub(anchor)), int64(Cycle))
	return anchor.Add(time.Duration(periods+1) * Cycle)
}

// NextUnanchored returns a rolling reset 30 days out, on midnight UTC.
// Used for monthly tiers that have no recorded subscription start.
func NextUnanchored(now time.Time) time.Time {
	return StartOfDay(now).Add(Cycle)
}

// NextReset returns the next reset instant for the given tier definition.
// Anchored tiers require a non-zero anchor; without one they fall back to
// a rolling 30-day window.
func NextReset(def tier.Definition, now, anchor time.Time) time.Time {
	if def.Period == tier.PeriodWeekly {
		return NextWeekly(now)
	}
	if def.Anchored && !anchor.IsZero() {
		return NextAnchored(anchor, now)
	}
	return NextUnanchored(now)
}

// floorDiv divides a by b rounding toward negative infinity. Plain Go
// integer division truncates toward zero, which gives the wrong period
// index when now precedes the anchor.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
