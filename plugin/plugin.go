// Package plugin provides an extensible plugin system for Quota.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated is called when a new account is registered.
type OnAccountCreated interface {
	Plugin
	OnAccountCreated(ctx context.Context, acct interface{}) error
}

// OnTierChanged is called when reconciliation moves an account to a
// different tier.
type OnTierChanged interface {
	Plugin
	OnTierChanged(ctx context.Context, accountKey, oldTier, newTier string) error
}

// ──────────────────────────────────────────────────
// Usage hooks
// ──────────────────────────────────────────────────

// OnUsageRecorded is called after a billed action is written to the ledger.
type OnUsageRecorded interface {
	Plugin
	OnUsageRecorded(ctx context.Context, accountKey string, event interface{}) error
}

// OnQuotaExceeded is called when the gate denies a billed action.
type OnQuotaExceeded interface {
	Plugin
	OnQuotaExceeded(ctx context.Context, accountKey string, used, limit int64) error
}

// OnLedgerReset is called when a usage counter is zeroed, whether by
// lazy reset-on-read, a tier change, or the sweep.
type OnLedgerReset interface {
	Plugin
	OnLedgerReset(ctx context.Context, accountKey string, resetAt time.Time) error
}

// OnAnchorRepaired is called when the self-healing check backfills a
// missing anchor date.
type OnAnchorRepaired interface {
	Plugin
	OnAnchorRepaired(ctx context.Context, accountKey string, anchor, resetAt time.Time) error
}

// ──────────────────────────────────────────────────
// Billing provider hooks
// ──────────────────────────────────────────────────

// OnWebhookReceived is called for every provider webhook, including
// duplicate deliveries.
type OnWebhookReceived interface {
	Plugin
	OnWebhookReceived(ctx context.Context, eventID, accountKey string, duplicate bool) error
}

// ──────────────────────────────────────────────────
// Sweep hooks
// ──────────────────────────────────────────────────

// OnSweepCompleted is called after a batch reset pass finishes.
type OnSweepCompleted interface {
	Plugin
	OnSweepCompleted(ctx context.Context, reset int, elapsed time.Duration) error
}
