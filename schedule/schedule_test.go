package schedule

import (
	"testing"
	"time"

	"github.com/xraph/quota/tier"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestNextWeekly(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"midweek Wednesday", date(2026, time.March, 4, 15, 30), date(2026, time.March, 9, 0, 0)},
		{"Sunday evening", date(2026, time.March, 8, 23, 59), date(2026, time.March, 9, 0, 0)},
		{"Monday midnight skips to next week", date(2026, time.March, 9, 0, 0), date(2026, time.March, 16, 0, 0)},
		{"Monday afternoon skips to next week", date(2026, time.March, 9, 14, 0), date(2026, time.March, 16, 0, 0)},
		{"Saturday", date(2026, time.March, 7, 8, 0), date(2026, time.March, 9, 0, 0)},
		{"month boundary", date(2026, time.March, 31, 10, 0), date(2026, time.April, 6, 0, 0)},
		{"year boundary", date(2026, time.December, 30, 10, 0), date(2027, time.January, 4, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextWeekly(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("NextWeekly(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestNextWeeklyStrictlyFuture(t *testing.T) {
	// Walk every day of a month at several times of day; the result must
	// always land strictly after now, on a Monday, at midnight UTC.
	for day := 1; day <= 31; day++ {
		for _, hour := range []int{0, 9, 23} {
			now := date(2026, time.May, day, hour, 0)
			got := NextWeekly(now)
			if !got.After(now) {
				t.Errorf("NextWeekly(%v) = %v not strictly after now", now, got)
			}
			if got.Weekday() != time.Monday {
				t.Errorf("NextWeekly(%v) = %v not a Monday", now, got)
			}
			if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
				t.Errorf("NextWeekly(%v) = %v not midnight", now, got)
			}
			if got.Sub(now) > 7*24*time.Hour {
				t.Errorf("NextWeekly(%v) = %v more than a week out", now, got)
			}
		}
	}
}

func TestNextAnchored(t *testing.T) {
	// Boundaries tick from the anchor's day at midnight UTC; the
	// anchor's time of day is discarded.
	anchor := date(2026, time.January, 15, 9, 30)
	day0 := date(2026, time.January, 15, 0, 0)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"within first cycle", day0.Add(5 * 24 * time.Hour), day0.Add(Cycle)},
		{"just before first boundary", day0.Add(Cycle - time.Minute), day0.Add(Cycle)},
		{"exactly on boundary", day0.Add(Cycle), day0.Add(2 * Cycle)},
		{"mid third cycle", day0.Add(2*Cycle + 12*time.Hour), day0.Add(3 * Cycle)},
		{"long dormancy", day0.Add(10*Cycle + time.Hour), day0.Add(11 * Cycle)},
		{"now equals anchor", anchor, day0.Add(Cycle)},
		{"now before anchor day", day0.Add(-time.Hour), day0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextAnchored(anchor, tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("NextAnchored(%v, %v) = %v, want %v", anchor, tt.now, got, tt.want)
			}
		})
	}
}

func TestNextAnchoredAlignment(t *testing.T) {
	// Results stay on exact 30-day multiples of the anchor's day, at
	// midnight UTC, no matter how far now drifts.
	anchor := date(2026, time.February, 3, 17, 45)
	day0 := date(2026, time.February, 3, 0, 0)
	for i := 0; i < 40; i++ {
		now := anchor.Add(time.Duration(i) * 19 * time.Hour)
		got := NextAnchored(anchor, now)
		if diff := got.Sub(day0); diff%Cycle != 0 {
			t.Fatalf("NextAnchored(%v, %v) = %v, not aligned to anchor day", anchor, now, got)
		}
		if !got.Equal(StartOfDay(got)) {
			t.Fatalf("NextAnchored(%v, %v) = %v, not midnight UTC", anchor, now, got)
		}
		if !got.After(now) {
			t.Fatalf("NextAnchored(%v, %v) = %v, not strictly future", anchor, now, got)
		}
	}
}

func TestNextUnanchored(t *testing.T) {
	now := date(2026, time.June, 10, 11, 0)
	want := date(2026, time.July, 10, 0, 0)
	if got := NextUnanchored(now); !got.Equal(want) {
		t.Errorf("NextUnanchored(%v) = %v, want %v", now, got, want)
	}
	if got := NextUnanchored(now); !got.After(now) {
		t.Errorf("NextUnanchored(%v) = %v, not strictly future", now, got)
	}
}

func TestNextReset(t *testing.T) {
	now := date(2026, time.March, 4, 15, 30) // Wednesday
	anchor := date(2026, time.February, 1, 8, 0)

	weekly := tier.Definition{Tier: tier.Free, Period: tier.PeriodWeekly}
	anchored := tier.Definition{Tier: tier.Pro, Period: tier.PeriodMonthly, Anchored: true}

	tests := []struct {
		name   string
		def    tier.Definition
		anchor time.Time
		want   time.Time
	}{
		{"weekly ignores anchor", weekly, anchor, date(2026, time.March, 9, 0, 0)},
		{"anchored with anchor", anchored, anchor, NextAnchored(anchor, now)},
		{"anchored without anchor falls back to rolling", anchored, time.Time{}, date(2026, time.April, 3, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextReset(tt.def, now, tt.anchor)
			if !got.Equal(tt.want) {
				t.Errorf("NextReset = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2026, time.March, 4, 2, 30, 0, 0, loc) // 2026-03-03T21:30Z
	want := date(2026, time.March, 3, 0, 0)
	if got := StartOfDay(in); !got.Equal(want) {
		t.Errorf("StartOfDay(%v) = %v, want %v", in, got, want)
	}
}

func TestNormalize(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	in := time.Date(2026, time.March, 4, 20, 0, 0, 0, loc)
	got := Normalize(in)
	if got.Location() != time.UTC {
		t.Errorf("Normalize location: got %v, want UTC", got.Location())
	}
	if !got.Equal(in) {
		t.Errorf("Normalize changed the instant: %v != %v", got, in)
	}
}
