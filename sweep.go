package quota

import (
	"context"
	"time"

	"github.com/xraph/quota/schedule"
)

// ──────────────────────────────────────────────────
// Scheduled Sweep
// ──────────────────────────────────────────────────

// SweepDueResets resets every ledger whose boundary has passed, in
// batches, using the same tier-aware scheduling as the on-demand path.
// The lazy reset-on-read makes this an optimization for reporting, not a
// correctness requirement, so individual failures are logged and skipped.
func (e *Engine) SweepDueResets(ctx context.Context) (int, error) {
	now := schedule.Normalize(e.clock())
	start := time.Now()

	sctx, cancel := e.storeCtx(ctx)
	keys, err := e.store.ListDueAccounts(sctx, now, e.sweepBatch)
	cancel()
	if err != nil {
		return 0, e.storeErr(err)
	}

	reset := 0
	for _, key := range keys {
		a, led, def, err := e.loadState(ctx, key, now)
		if err != nil {
			e.logger.Warn("sweep skipped account", "key", key, "error", err)
			continue
		}
		if led.ResetAt.After(now) {
			continue
		}

		next := schedule.NextReset(def, now, a.Anchor())

		sctx, cancel := e.storeCtx(ctx)
		ok, err := e.store.ResetLedgerIfDue(sctx, key, now, next)
		cancel()
		if err != nil {
			e.logger.Warn("sweep reset failed", "key", key, "error", err)
			continue
		}
		if ok {
			reset++
			e.plugins.EmitLedgerReset(ctx, key, next)
		}
	}

	elapsed := time.Since(start)
	e.logger.Info("sweep completed",
		"scanned", len(keys),
		"reset", reset,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	e.plugins.EmitSweepCompleted(ctx, reset, elapsed)

	return reset, nil
}

// sweepWorker runs the batch reset on a fixed interval until Stop.
func (e *Engine) sweepWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			if _, err := e.SweepDueResets(ctx); err != nil {
				e.logger.Error("sweep failed", "error", err)
			}
		}
	}
}
