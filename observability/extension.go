// Package observability provides a metrics extension for Quota that records
// lifecycle event counts via a pluggable MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/quota/ledger"
	"github.com/xraph/quota/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin            = (*MetricsExtension)(nil)
	_ plugin.OnInit            = (*MetricsExtension)(nil)
	_ plugin.OnAccountCreated  = (*MetricsExtension)(nil)
	_ plugin.OnTierChanged     = (*MetricsExtension)(nil)
	_ plugin.OnUsageRecorded   = (*MetricsExtension)(nil)
	_ plugin.OnQuotaExceeded   = (*MetricsExtension)(nil)
	_ plugin.OnLedgerReset     = (*MetricsExtension)(nil)
	_ plugin.OnAnchorRepaired  = (*MetricsExtension)(nil)
	_ plugin.OnWebhookReceived = (*MetricsExtension)(nil)
	_ plugin.OnSweepCompleted  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Quota plugin to automatically track metering metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Account metrics
	AccountsCreated Counter
	TierChanges     Counter

	// Usage metrics
	UsageRecorded Counter
	UsageTokens   Histogram
	QuotaDenied   Counter

	// Reset metrics
	LedgerResets    Counter
	AnchorsRepaired Counter
	SweepResets     Counter
	SweepLatency    Histogram

	// Provider metrics
	WebhookReceived   Counter
	WebhookDuplicates Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Account metrics
		AccountsCreated: factory.Counter("quota.account.created"),
		TierChanges:     factory.Counter("quota.account.tier_changes"),

		// Usage metrics
		UsageRecorded: factory.Counter("quota.usage.recorded"),
		UsageTokens:   factory.Histogram("quota.usage.tokens"),
		QuotaDenied:   factory.Counter("quota.usage.denied"),

		// Reset metrics
		LedgerResets:    factory.Counter("quota.ledger.resets"),
		AnchorsRepaired: factory.Counter("quota.ledger.anchors_repaired"),
		SweepResets:     factory.Counter("quota.sweep.resets"),
		SweepLatency:    factory.Histogram("quota.sweep.latency_ms"),

		// Provider metrics
		WebhookReceived:   factory.Counter("quota.webhook.received"),
		WebhookDuplicates: factory.Counter("quota.webhook.duplicates"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (m *MetricsExtension) OnAccountCreated(_ context.Context, _ interface{}) error {
	m.AccountsCreated.Inc()
	return nil
}

// OnTierChanged implements plugin.OnTierChanged.
func (m *MetricsExtension) OnTierChanged(_ context.Context, _, _, _ string) error {
	m.TierChanges.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Usage hooks
// ──────────────────────────────────────────────────

// OnUsageRecorded implements plugin.OnUsageRecorded.
func (m *MetricsExtension) OnUsageRecorded(_ context.Context, _ string, event interface{}) error {
	m.UsageRecorded.Inc()
	if e, ok := event.(ledger.Event); ok {
		m.UsageTokens.Observe(float64(e.Tokens))
	}
	return nil
}

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (m *MetricsExtension) OnQuotaExceeded(_ context.Context, _ string, _, _ int64) error {
	m.QuotaDenied.Inc()
	return nil
}

// OnLedgerReset implements plugin.OnLedgerReset.
func (m *MetricsExtension) OnLedgerReset(_ context.Context, _ string, _ time.Time) error {
	m.LedgerResets.Inc()
	return nil
}

// OnAnchorRepaired implements plugin.OnAnchorRepaired.
func (m *MetricsExtension) OnAnchorRepaired(_ context.Context, _ string, _, _ time.Time) error {
	m.AnchorsRepaired.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Provider hooks
// ──────────────────────────────────────────────────

// OnWebhookReceived implements plugin.OnWebhookReceived.
func (m *MetricsExtension) OnWebhookReceived(_ context.Context, _, _ string, duplicate bool) error {
	m.WebhookReceived.Inc()
	if duplicate {
		m.WebhookDuplicates.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Sweep hooks
// ──────────────────────────────────────────────────

// OnSweepCompleted implements plugin.OnSweepCompleted.
func (m *MetricsExtension) OnSweepCompleted(_ context.Context, reset int, elapsed time.Duration) error {
	m.SweepResets.Add(float64(reset))
	m.SweepLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
