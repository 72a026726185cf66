package gate

import (
	"strings"
	"testing"
	"time"

	"github.com/xraph/quota/tier"
)

func TestEvaluate(t *testing.T) {
	resetAt := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	free := tier.Definition{Tier: tier.Free, Limit: 3, Period: tier.PeriodWeekly}
	pro := tier.Definition{Tier: tier.Pro, Limit: 1000, Period: tier.PeriodMonthly, Anchored: true}

	tests := []struct {
		name    string
		def     tier.Definition
		current int64
		allowed bool
	}{
		{"under limit", free, 0, true},
		{"one below limit", free, 2, true},
		{"at limit", free, 3, false},
		{"over limit", free, 5, false},
		{"pro under limit", pro, 999, true},
		{"pro at limit", pro, 1000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.def, tt.current, resetAt)
			if d.Allowed != tt.allowed {
				t.Errorf("Allowed: got %v, want %v", d.Allowed, tt.allowed)
			}
			if d.Current != tt.current || d.Limit != tt.def.Limit {
				t.Errorf("counts: got current=%d limit=%d", d.Current, d.Limit)
			}
			if !d.ResetAt.Equal(resetAt) {
				t.Errorf("ResetAt: got %v, want %v", d.ResetAt, resetAt)
			}
			if tt.allowed && d.Message != "" {
				t.Errorf("allowed decision carries message %q", d.Message)
			}
			if !tt.allowed && d.Message == "" {
				t.Error("denial missing message")
			}
		})
	}
}

func TestDenialMessage(t *testing.T) {
	resetAt := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

	weekly := DenialMessage(tier.Definition{Limit: 3, Period: tier.PeriodWeekly}, resetAt)
	for _, want := range []string{"3", "week", "Mar 9, 2026"} {
		if !strings.Contains(weekly, want) {
			t.Errorf("weekly message %q missing %q", weekly, want)
		}
	}

	monthly := DenialMessage(tier.Definition{Limit: 100, Period: tier.PeriodMonthly}, resetAt)
	for _, want := range []string{"100", "month", "Mar 9, 2026"} {
		if !strings.Contains(monthly, want) {
			t.Errorf("monthly message %q missing %q", monthly, want)
		}
	}
}
