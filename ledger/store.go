package ledger

import (
	"context"
	"time"
)

type Store interface {
	Create(ctx context.Context, l *Ledger) error
	Get(ctx context.Context, accountKey string) (*Ledger, error)
	// ResetIfDue zeroes the counter and advances the reset instant only if
	// the stored reset instant is still at or before now. The conditional
	// write is what keeps two racing callers from double-resetting.
	ResetIfDue(ctx context.Context, accountKey string, now, next time.Time) (reset bool, err error)
	// AddUsage increments the counter and appends the event in one atomic
	// write, trimming history to the newest historyLimit entries.
	AddUsage(ctx context.Context, accountKey string, e Event, historyLimit int) error
	// ListDue returns account keys whose reset instant is at or before now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]string, error)
}
