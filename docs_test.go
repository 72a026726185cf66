package quota_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/quota"
	"github.com/xraph/quota/geolocate"
	"github.com/xraph/quota/provider"
	"github.com/xraph/quota/store/memory"
	"github.com/xraph/quota/tier"
	"github.com/xraph/quota/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from the package doc
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		st := memory.New()

		resolver := geolocate.ResolverFunc(func(_ context.Context, _ geolocate.Image) (*geolocate.Guess, error) {
			return &geolocate.Guess{Lat: 48.8584, Lng: 2.2945, Place: "Paris, France", Tokens: 1200, CostMicros: 3400}, nil
		})

		// Initialize the engine
		eng := quota.New(st,
			quota.WithLogger(slog.Default()),
			quota.WithResolver(resolver),
			quota.WithSweepInterval(time.Hour),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop() //nolint:errcheck

		// Accounts appear on first sight of the identity key
		if _, err := eng.RegisterAccount(ctx, "ext_user_123", "user@example.com"); err != nil {
			t.Fatal(err)
		}

		// A billed action flows through the gate, the resolver, and the ledger
		result, err := eng.Process(ctx, "ext_user_123", geolocate.Image{Data: []byte{0xff, 0xd8}})
		if err != nil {
			t.Fatal(err)
		}
		if result.Guess.Place != "Paris, France" {
			t.Errorf("unexpected place: %s", result.Guess.Place)
		}
		if result.Usage.Current != 1 {
			t.Errorf("usage after one action = %d, want 1", result.Usage.Current)
		}

		// Provider webhooks feed the reconciler
		err = eng.Reconcile(ctx, provider.State{
			EventID: "evt_doc_1",
			Key:     "ext_user_123",
			Paid:    true,
			Status:  "active",
			Plan:    "pro",
		})
		if err != nil {
			t.Fatal(err)
		}

		a, err := eng.GetAccount(ctx, "ext_user_123")
		if err != nil {
			t.Fatal(err)
		}
		if a.Tier != tier.Pro {
			t.Errorf("tier after upgrade = %s, want %s", a.Tier, tier.Pro)
		}

		// Usage answers the status query the client renders
		report, err := eng.Usage(ctx, "ext_user_123")
		if err != nil {
			t.Fatal(err)
		}
		if report.Limit != 1000 {
			t.Errorf("pro limit = %d, want 1000", report.Limit)
		}
	})

	// Test custom catalog example
	t.Run("CatalogExample", func(t *testing.T) {
		catalog := tier.NewCatalog(
			tier.Definition{Tier: tier.Free, Limit: 3, Period: tier.PeriodWeekly},
			tier.Definition{Tier: tier.Pro, Limit: 1000, Period: tier.PeriodMonthly, Anchored: true},
		)

		eng := quota.New(memory.New(), quota.WithCatalog(catalog))
		if eng.Catalog().Resolve(tier.Pro).Limit != 1000 {
			t.Error("catalog not wired through")
		}
	})

	// Test Money type examples
	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = types.USD(1499) // $14.99
		_ = types.Zero("usd")

		// Per-call costs accrue in micro-dollars
		m := types.USDFromMicros(3400)
		if m.Amount != 0 {
			t.Errorf("3400 micro-dollars should truncate below one cent, got %d", m.Amount)
		}

		// Arithmetic
		m1 := types.USD(499)
		m2 := types.USD(1000)
		_ = m1.Add(m2)
		if !m1.LessThan(m2) {
			t.Error("499 < 1000")
		}

		// Formatting
		_ = m1.String()      // "$4.99"
		_ = m1.FormatMajor() // "4.99"
	})
}
