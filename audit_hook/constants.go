package audithook

// Action constants for audit events.
const (
	// Account actions
	ActionAccountCreated = "account.created"
	ActionTierChanged    = "account.tier_changed"

	// Usage actions
	ActionUsageRecorded = "usage.recorded"
	ActionQuotaExceeded = "quota.exceeded"

	// Ledger actions
	ActionLedgerReset    = "ledger.reset"
	ActionAnchorRepaired = "ledger.anchor_repaired"

	// Provider actions
	ActionWebhookReceived  = "webhook.received"
	ActionWebhookDuplicate = "webhook.duplicate"

	// Sweep actions
	ActionSweepCompleted = "sweep.completed"
)

// Resource constants for audit events.
const (
	ResourceAccount = "account"
	ResourceLedger  = "ledger"
	ResourceWebhook = "webhook"
	ResourceSweep   = "sweep"
)

// Category constants for audit events.
const (
	CategoryAccount     = "account"
	CategoryUsage       = "usage"
	CategoryAccess      = "access"
	CategoryIntegration = "integration"
	CategoryMaintenance = "maintenance"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
