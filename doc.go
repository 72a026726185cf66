// Package quota provides a usage-metering and subscription-reconciliation
// engine for metered, tiered services.
//
// Quota is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - Per-account usage ledgers with atomic increment-and-append
//   - Lazy reset-on-read with race-safe conditional resets
//   - Weekly and anchored 30-day reset scheduling
//   - Billing-provider reconciliation with webhook dedupe
//   - Self-healing repair of legacy calendar-anchored reset dates
//   - A plugin system for audit trails and metrics
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/quota"
//	    "github.com/xraph/quota/store/postgres"
//	)
//
//	// Initialize store
//	store, err := postgres.New(databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create engine
//	eng := quota.New(store, quota.WithResolver(visionClient))
//
//	// Start the engine (begins background workers)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// The tier catalog is immutable after startup and maps each tier to its
// call limit and reset cadence:
//
//	catalog := tier.NewCatalog(
//	    tier.Definition{Tier: tier.Free, Limit: 3, Period: tier.PeriodWeekly},
//	    tier.Definition{Tier: tier.Pro, Limit: 1000, Period: tier.PeriodMonthly, Anchored: true},
//	)
//
// A billed action flows through the gate, the resolver, and the ledger:
//
//	result, err := eng.Process(ctx, userKey, img)
//	if quota.IsQuotaError(err) {
//	    // Render the denial message; suggest an upgrade.
//	}
//
// Provider webhooks feed the reconciler:
//
//	err := eng.Reconcile(ctx, provider.State{
//	    EventID: delivery.ID,
//	    Key:     delivery.UserID,
//	    Paid:    true,
//	    Status:  "active",
//	    Plan:    "pro",
//	})
//
// Reconciliation is idempotent: redelivered webhooks are deduped by event
// id, and the usage counter only resets on an actual tier transition.
//
// # Concurrency
//
// All ledger mutations are single atomic store writes. Two simultaneous
// billed actions from the same account never under-count, and two racing
// reset attempts resolve to exactly one reset via a conditional write on
// the reset instant. When the store is unreachable or slow, the gate
// fails closed.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	acct_01h2xcejqtf2nbrexx3vqjhp41  // Account ID
//	uevt_01h2xcejqtf2nbrexx3vqjhp41  // Usage event ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package quota
