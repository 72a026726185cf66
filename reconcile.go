package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/quota/account"
	"github.com/xraph/quota/provider"
	"github.com/xraph/quota/schedule"
)

// ──────────────────────────────────────────────────
// Subscription Reconciliation
// ──────────────────────────────────────────────────

// Reconcile maps a billing-provider state onto the stored account.
// Safe under webhook redelivery twice over: the delivery id is deduped
// when present, and even without one, the ledger only resets on an actual
// tier transition, so replaying the same payload can never re-zero usage.
// A delivery that fails after claiming its id releases it again, keeping
// the provider's redelivery effective.
func (e *Engine) Reconcile(ctx context.Context, st provider.State) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderPayload, err)
	}

	now := schedule.Normalize(e.clock())
	if !st.At.IsZero() {
		now = schedule.Normalize(st.At)
	}

	// Derivation failures reject the payload before any state is touched,
	// and before the delivery id is claimed, so the provider's retry of a
	// fixable payload is not swallowed as a duplicate. A tier is never
	// guessed from partial data.
	out, err := provider.Derive(st, e.plans)
	if err != nil {
		e.logger.Warn("rejected provider state",
			"key", st.Key,
			"status", st.Status,
			"error", err,
		)
		return fmt.Errorf("%w: %v", ErrProviderPayload, err)
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if st.EventID != "" {
		first, err := e.store.MarkWebhook(sctx, st.EventID, now)
		if err != nil {
			return e.storeErr(err)
		}
		if !first {
			e.logger.Debug("duplicate webhook delivery ignored",
				"event_id", st.EventID,
				"key", st.Key,
			)
			e.plugins.EmitWebhookReceived(ctx, st.EventID, st.Key, true)
			return nil
		}
	}

	a, err := e.store.GetAccount(sctx, st.Key)
	if err != nil {
		e.releaseWebhook(ctx, st.EventID)
		return e.storeErr(err)
	}

	patch := e.buildPatch(a, out, now)

	if err := e.store.ApplyPatch(sctx, st.Key, patch, now); err != nil {
		e.releaseWebhook(ctx, st.EventID)
		return e.storeErr(err)
	}

	if patch.TierChanged {
		e.logger.Info("tier changed",
			"key", st.Key,
			"from", a.Tier,
			"to", patch.Tier,
			"status", patch.Status,
		)
		e.plugins.EmitTierChanged(ctx, st.Key, string(a.Tier), string(patch.Tier))
		if patch.ResetAt != nil {
			e.plugins.EmitLedgerReset(ctx, st.Key, *patch.ResetAt)
		}
	}
	e.plugins.EmitWebhookReceived(ctx, st.EventID, st.Key, false)

	return nil
}

// releaseWebhook frees a delivery id claimed by a reconcile that then
// failed, so the provider's redelivery is processed instead of being
// dropped as a duplicate. Best effort: a failed release only costs the
// retry, never a stuck delivery id.
func (e *Engine) releaseWebhook(ctx context.Context, eventID string) {
	if eventID == "" {
		return
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.store.UnmarkWebhook(sctx, eventID); err != nil {
		e.logger.Warn("failed to release webhook delivery id",
			"event_id", eventID,
			"error", err,
		)
	}
}

// buildPatch turns a derived provider outcome into the patch to persist.
// The ledger reset and anchor only attach when the tier actually moved.
func (e *Engine) buildPatch(a *account.Account, out provider.Outcome, now time.Time) *account.Patch {
	p := &account.Patch{
		Tier:      out.Tier,
		Status:    out.Status,
		Cancelled: out.Cancelled,
		PastDue:   out.PastDue,
	}

	if out.Tier == a.Tier {
		return p
	}

	p.TierChanged = true
	def := e.catalog.Resolve(out.Tier)

	anchor := a.Anchor()
	if def.Anchored {
		// Entering an anchored tier starts the cycle today, not at a
		// calendar boundary.
		anchor = now
		p.Anchor = &anchor
	}

	next := schedule.NextReset(def, now, anchor)
	p.ResetAt = &next

	return p
}
