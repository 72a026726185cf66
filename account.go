package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/quota/account"
	"github.com/xraph/quota/id"
	"github.com/xraph/quota/ledger"
	"github.com/xraph/quota/schedule"
	"github.com/xraph/quota/tier"
	"github.com/xraph/quota/types"
)

// ──────────────────────────────────────────────────
// Account Management
// ──────────────────────────────────────────────────

// RegisterAccount creates the account and its ledger on first sight of an
// identity key. Safe to call on every interaction: an existing account is
// returned unchanged.
func (e *Engine) RegisterAccount(ctx context.Context, key, email string) (*account.Account, error) {
	if key == "" {
		return nil, ValidationError{Field: "key", Message: "identity key is required"}
	}

	now := schedule.Normalize(e.clock())

	a := &account.Account{
		Entity: types.NewEntity(),
		ID:     id.NewAccountID(),
		Key:    key,
		Email:  email,
		Tier:   tier.Free,
		Status: account.StatusTrial,
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	created, err := e.store.UpsertAccount(sctx, a)
	if err != nil {
		return nil, e.storeErr(err)
	}
	if !created {
		return a, nil
	}

	def := e.catalog.Resolve(a.Tier)
	led := &ledger.Ledger{
		Entity:     types.NewEntity(),
		AccountKey: key,
		Current:    0,
		ResetAt:    schedule.NextReset(def, now, time.Time{}),
	}
	if err := e.store.CreateLedger(sctx, led); err != nil && !errors.Is(err, ErrAlreadyExists) {
		return nil, e.storeErr(err)
	}

	e.logger.Info("account registered", "key", key, "tier", a.Tier)
	e.plugins.EmitAccountCreated(ctx, a)

	return a, nil
}

// GetAccount retrieves an account by its identity key.
func (e *Engine) GetAccount(ctx context.Context, key string) (*account.Account, error) {
	if key == "" {
		return nil, ValidationError{Field: "key", Message: "identity key is required"}
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	a, err := e.store.GetAccount(sctx, key)
	if err != nil {
		return nil, e.storeErr(err)
	}
	return a, nil
}

// loadState reads the account and ledger, lazily creating a missing
// ledger and running the anchor repair. Every code path that consults the
// ledger goes through here so the repair fires on any read.
func (e *Engine) loadState(ctx context.Context, key string, now time.Time) (*account.Account, *ledger.Ledger, tier.Definition, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	a, err := e.store.GetAccount(sctx, key)
	if err != nil {
		return nil, nil, tier.Definition{}, e.storeErr(err)
	}

	def := e.catalog.Resolve(a.EffectiveTier())

	led, err := e.store.GetLedger(sctx, key)
	if IsNotFound(err) {
		led = &ledger.Ledger{
			Entity:     types.NewEntity(),
			AccountKey: key,
			ResetAt:    schedule.NextReset(def, now, a.Anchor()),
		}
		if createErr := e.store.CreateLedger(sctx, led); createErr != nil && !errors.Is(createErr, ErrAlreadyExists) {
			return nil, nil, tier.Definition{}, e.storeErr(createErr)
		}
	} else if err != nil {
		return nil, nil, tier.Definition{}, e.storeErr(err)
	}

	// Repair keys off the stored tier, not the effective one, so a
	// past-due pro account still gets its anchor fixed.
	if err := e.healAnchor(sctx, a, led, e.catalog.Resolve(a.Tier), now); err != nil {
		return nil, nil, tier.Definition{}, err
	}

	return a, led, def, nil
}

// healAnchor repairs ledgers whose reset date was computed against a
// calendar-month boundary before anchoring existed. Signature: an
// anchored tier, no recorded anchor, and a reset landing on the 1st.
// It backfills the anchor one cycle before the bad reset and moves the
// reset a full cycle out from today. Once the anchor is set the
// heuristic never fires again for that account.
func (e *Engine) healAnchor(ctx context.Context, a *account.Account, led *ledger.Ledger, def tier.Definition, now time.Time) error {
	if !def.Anchored || a.AnchorAt != nil || led.ResetAt.IsZero() {
		return nil
	}
	if led.ResetAt.UTC().Day() != 1 {
		return nil
	}

	anchor := led.ResetAt.UTC().Add(-schedule.Cycle)
	resetAt := schedule.StartOfDay(now).Add(schedule.Cycle)

	if err := e.store.SetAnchor(ctx, a.Key, anchor, resetAt); err != nil {
		return e.storeErr(err)
	}

	a.AnchorAt = &anchor
	led.ResetAt = resetAt

	e.logger.Info("repaired calendar-anchored reset",
		"key", a.Key,
		"anchor", anchor,
		"reset_at", resetAt,
	)
	e.plugins.EmitAnchorRepaired(ctx, a.Key, anchor, resetAt)

	return nil
}

// storeErr classifies a persistence failure. Known sentinels pass
// through; deadline hits become retryable timeouts; anything else is
// internal.
func (e *Engine) storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case IsNotFound(err) || errors.Is(err, ErrAlreadyExists):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrStoreTimeout, err)
	case errors.Is(err, ErrStoreClosed) || errors.Is(err, ErrStoreNotReady):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}
