package account

import (
	"context"
	"time"
)

type Store interface {
	Upsert(ctx context.Context, a *Account) (created bool, err error)
	Get(ctx context.Context, key string) (*Account, error)
	Update(ctx context.Context, a *Account) error
	ApplyPatch(ctx context.Context, key string, p *Patch, now time.Time) error
	// SetAnchor backfills a missing anchor and rewrites the ledger reset
	// instant in one write; used by the self-healing repair.
	SetAnchor(ctx context.Context, key string, anchor, resetAt time.Time) error
}
