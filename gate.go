package quota

import (
	"context"
	"time"

	"github.com/xraph/quota/gate"
	"github.com/xraph/quota/id"
	"github.com/xraph/quota/ledger"
	"github.com/xraph/quota/schedule"
	"github.com/xraph/quota/tier"
)

// ──────────────────────────────────────────────────
// Quota Gate
// ──────────────────────────────────────────────────

// Check decides whether the account may perform a billed action right
// now, applying any due reset first. A denial is a Decision with
// Allowed=false, not an error; errors mean the check itself failed and
// the caller must treat the action as denied.
func (e *Engine) Check(ctx context.Context, key string) (*gate.Decision, error) {
	return e.check(ctx, key, schedule.Normalize(e.clock()))
}

func (e *Engine) check(ctx context.Context, key string, now time.Time) (*gate.Decision, error) {
	if key == "" {
		return nil, ValidationError{Field: "key", Message: "identity key is required"}
	}

	a, led, def, err := e.loadState(ctx, key, now)
	if err != nil {
		return nil, err
	}

	// Status only gates paid tiers. A past-due or lapsed account is
	// metered against the free allowance instead of being locked out.
	if def.Tier != tier.Free && !a.HasAccess() {
		return nil, ErrPermissionDenied
	}

	wasReset := false
	if !led.ResetAt.After(now) {
		next := schedule.NextReset(def, now, a.Anchor())

		sctx, cancel := e.storeCtx(ctx)
		reset, resetErr := e.store.ResetLedgerIfDue(sctx, key, now, next)
		if resetErr != nil {
			cancel()
			return nil, e.storeErr(resetErr)
		}

		// The decision basis changed whether this call or a racing one
		// won the reset; either way, re-read before evaluating.
		led, resetErr = e.store.GetLedger(sctx, key)
		cancel()
		if resetErr != nil {
			return nil, e.storeErr(resetErr)
		}

		wasReset = reset
		if reset {
			e.logger.Info("usage reset",
				"key", key,
				"tier", def.Tier,
				"next_reset", next,
			)
			e.plugins.EmitLedgerReset(ctx, key, next)
		}
	}

	d := gate.Evaluate(def, led.Current, led.ResetAt)
	d.WasReset = wasReset

	if !d.Allowed {
		e.plugins.EmitQuotaExceeded(ctx, key, d.Current, d.Limit)
	}

	return &d, nil
}

// Record writes one billed action to the ledger: counter increment and
// history append in a single atomic store write. The event ID and
// timestamp are filled in when absent.
func (e *Engine) Record(ctx context.Context, key string, ev ledger.Event) error {
	if key == "" {
		return ValidationError{Field: "key", Message: "identity key is required"}
	}

	if ev.ID.IsNil() {
		ev.ID = id.NewUsageEventID()
	}
	if ev.At.IsZero() {
		ev.At = schedule.Normalize(e.clock())
	} else {
		ev.At = schedule.Normalize(ev.At)
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.store.AddUsage(sctx, key, ev, e.historyLimit); err != nil {
		return e.storeErr(err)
	}

	e.plugins.EmitUsageRecorded(ctx, key, ev)
	return nil
}

// Usage answers the usage-status query: counter, limit, reset instant,
// and subscription state. Reads run through the same lazy-reset path as
// Check so the numbers are never stale past a boundary.
func (e *Engine) Usage(ctx context.Context, key string) (*gate.Report, error) {
	if key == "" {
		return nil, ValidationError{Field: "key", Message: "identity key is required"}
	}

	now := schedule.Normalize(e.clock())

	a, led, def, err := e.loadState(ctx, key, now)
	if err != nil {
		return nil, err
	}

	if !led.ResetAt.After(now) {
		next := schedule.NextReset(def, now, a.Anchor())

		sctx, cancel := e.storeCtx(ctx)
		if _, resetErr := e.store.ResetLedgerIfDue(sctx, key, now, next); resetErr != nil {
			cancel()
			return nil, e.storeErr(resetErr)
		}
		led, err = e.store.GetLedger(sctx, key)
		cancel()
		if err != nil {
			return nil, e.storeErr(err)
		}
	}

	return &gate.Report{
		Current:   led.Current,
		Limit:     def.Limit,
		ResetAt:   led.ResetAt,
		Tier:      a.Tier,
		Status:    a.Status,
		Cancelled: a.Cancelled,
		PastDue:   a.PastDue,
	}, nil
}

// ExpireReset forces the account's reset boundary into the past so the
// next check or status read exercises the lazy reset path. Operations
// helper; the billed-action flow never calls it. The counter is zeroed
// along with the backdated boundary, in the same conditional write the
// scheduler uses.
func (e *Engine) ExpireReset(ctx context.Context, key string) error {
	if key == "" {
		return ValidationError{Field: "key", Message: "identity key is required"}
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	led, err := e.store.GetLedger(sctx, key)
	if err != nil {
		return e.storeErr(err)
	}

	past := schedule.Normalize(e.clock()).Add(-time.Hour)
	// Keyed at the stored instant the condition always matches, so this
	// is a single atomic backdate.
	if _, err := e.store.ResetLedgerIfDue(sctx, key, led.ResetAt, past); err != nil {
		return e.storeErr(err)
	}

	e.logger.Info("reset boundary expired", "key", key, "reset_at", past)
	return nil
}

// History returns the newest events from the account's ledger, most
// recent last. A non-positive limit returns everything retained.
func (e *Engine) History(ctx context.Context, key string, limit int) ([]ledger.Event, error) {
	if key == "" {
		return nil, ValidationError{Field: "key", Message: "identity key is required"}
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	led, err := e.store.GetLedger(sctx, key)
	if err != nil {
		return nil, e.storeErr(err)
	}

	events := led.History
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}
