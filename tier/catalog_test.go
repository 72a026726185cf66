package tier

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/xraph/quota/types"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		tier     Tier
		limit    int64
		period   Period
		anchored bool
	}{
		{Free, 3, PeriodWeekly, false},
		{Standard, 100, PeriodMonthly, true},
		{Pro, 1000, PeriodMonthly, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			d, ok := c.Lookup(tt.tier)
			if !ok {
				t.Fatalf("Lookup(%q) missing", tt.tier)
			}
			if d.Limit != tt.limit {
				t.Errorf("Limit: got %d, want %d", d.Limit, tt.limit)
			}
			if d.Period != tt.period {
				t.Errorf("Period: got %q, want %q", d.Period, tt.period)
			}
			if d.Anchored != tt.anchored {
				t.Errorf("Anchored: got %v, want %v", d.Anchored, tt.anchored)
			}
		})
	}
}

func TestResolveUnknownFallsBackToFree(t *testing.T) {
	c := DefaultCatalog()

	for _, unknown := range []Tier{"", "enterprise", "PRO", "legacy"} {
		d := c.Resolve(unknown)
		if d.Tier != Free {
			t.Errorf("Resolve(%q): got tier %q, want %q", unknown, d.Tier, Free)
		}
		if d.Limit != 3 {
			t.Errorf("Resolve(%q): got limit %d, want 3", unknown, d.Limit)
		}
	}
}

func TestResolveUnknownLogsFallback(t *testing.T) {
	var buf bytes.Buffer
	c := DefaultCatalog().WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	if d := c.Resolve("enterprise"); d.Tier != Free {
		t.Fatalf("Resolve(enterprise): got tier %q, want %q", d.Tier, Free)
	}
	if !strings.Contains(buf.String(), "unknown tier") {
		t.Errorf("fallback to free not logged: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "enterprise") {
		t.Errorf("log should carry the offending tier: %q", buf.String())
	}

	buf.Reset()
	c.Resolve(Pro)
	if buf.Len() != 0 {
		t.Errorf("known tier should not log: %q", buf.String())
	}
}

func TestResolveKnown(t *testing.T) {
	c := DefaultCatalog()
	d := c.Resolve(Pro)
	if d.Tier != Pro || d.Limit != 1000 {
		t.Errorf("Resolve(Pro): got %+v", d)
	}
}

func TestNewCatalogOverride(t *testing.T) {
	c := NewCatalog(
		Definition{Tier: Free, Limit: 3, Period: PeriodWeekly},
		Definition{Tier: Free, Limit: 10, Period: PeriodWeekly},
	)
	d := c.Resolve(Free)
	if d.Limit != 10 {
		t.Errorf("later definition should win: got limit %d, want 10", d.Limit)
	}
}

func TestTierValid(t *testing.T) {
	tests := []struct {
		tier  Tier
		valid bool
		paid  bool
	}{
		{Free, true, false},
		{Standard, true, true},
		{Pro, true, true},
		{"", false, false},
		{"enterprise", false, false},
	}

	for _, tt := range tests {
		if got := tt.tier.Valid(); got != tt.valid {
			t.Errorf("%q.Valid(): got %v, want %v", tt.tier, got, tt.valid)
		}
		if got := tt.tier.Paid(); got != tt.paid {
			t.Errorf("%q.Paid(): got %v, want %v", tt.tier, got, tt.paid)
		}
	}
}

func TestCatalogTiers(t *testing.T) {
	c := DefaultCatalog()
	tiers := c.Tiers()
	if len(tiers) != 3 {
		t.Errorf("got %d tiers, want 3", len(tiers))
	}
}

func TestCatalogPrices(t *testing.T) {
	c := DefaultCatalog()
	if d := c.Resolve(Free); !d.Price.Equal(types.USD(0)) {
		t.Errorf("free price: got %v, want $0.00", d.Price)
	}
	if d := c.Resolve(Standard); !d.Price.IsPositive() {
		t.Errorf("standard price should be positive, got %v", d.Price)
	}
}
