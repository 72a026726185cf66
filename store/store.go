package store

import (
	"context"
	"time"

	"github.com/xraph/quota/account"
	"github.com/xraph/quota/ledger"
)

// Store is the unified storage interface for all Quota entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Account methods
	UpsertAccount(ctx context.Context, a *account.Account) (created bool, err error)
	GetAccount(ctx context.Context, key string) (*account.Account, error)
	UpdateAccount(ctx context.Context, a *account.Account) error
	// ApplyPatch writes the reconciliation outcome: account fields always,
	// plus a ledger reset (counter zeroed, history kept) when the patch
	// carries a tier change. The account update lands first, then the
	// ledger reset; each write is individually atomic. A failure between
	// the two leaves the account on the new tier with its old counter,
	// which the next scheduled reset clears.
	ApplyPatch(ctx context.Context, key string, p *account.Patch, now time.Time) error
	// SetAnchor backfills a missing anchor date and rewrites the ledger
	// reset instant in one write.
	SetAnchor(ctx context.Context, key string, anchor, resetAt time.Time) error

	// Ledger methods
	CreateLedger(ctx context.Context, l *ledger.Ledger) error
	GetLedger(ctx context.Context, accountKey string) (*ledger.Ledger, error)
	// ResetLedgerIfDue zeroes the counter and advances the reset instant
	// only when the stored instant is still at or before now. Returns
	// whether this call performed the reset; a racing caller sees false.
	ResetLedgerIfDue(ctx context.Context, accountKey string, now, next time.Time) (bool, error)
	// AddUsage increments the counter and appends the event atomically,
	// trimming history to the newest historyLimit entries.
	AddUsage(ctx context.Context, accountKey string, e ledger.Event, historyLimit int) error
	// ListDueAccounts returns account keys whose reset instant is at or
	// before now, up to limit.
	ListDueAccounts(ctx context.Context, now time.Time, limit int) ([]string, error)

	// Webhook dedupe methods
	// MarkWebhook records a provider delivery id. Returns true on first
	// sight, false for a redelivery.
	MarkWebhook(ctx context.Context, eventID string, at time.Time) (first bool, err error)
	// UnmarkWebhook releases a recorded delivery id so the provider's
	// redelivery is processed again. Called when applying a delivery
	// failed after the id was claimed. Unknown ids are a no-op.
	UnmarkWebhook(ctx context.Context, eventID string) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
