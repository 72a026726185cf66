// Package gate decides whether a prospective billed action is allowed,
// given a tier definition and the current ledger state. The decision
// itself is pure; persistence and reset-on-read live in the engine.
package gate

import (
	"fmt"
	"time"

	"github.com/xraph/quota/account"
	"github.com/xraph/quota/tier"
)

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed  bool      `json:"allowed"`
	WasReset bool      `json:"was_reset"`
	Current  int64     `json:"current"`
	Limit    int64     `json:"limit"`
	ResetAt  time.Time `json:"reset_at"`
	Message  string    `json:"message,omitempty"`
}

// Report answers a usage-status query.
type Report struct {
	Current   int64          `json:"current"`
	Limit     int64          `json:"limit"`
	ResetAt   time.Time      `json:"reset_at"`
	Tier      tier.Tier      `json:"tier"`
	Status    account.Status `json:"status"`
	Cancelled bool           `json:"cancelled"`
	PastDue   bool           `json:"past_due"`
}

// Evaluate compares the counter against the tier limit. It assumes any
// due reset has already been applied and the counter re-read.
func Evaluate(def tier.Definition, current int64, resetAt time.Time) Decision {
	d := Decision{
		Current: current,
		Limit:   def.Limit,
		ResetAt: resetAt,
	}
	if current < def.Limit {
		d.Allowed = true
		return d
	}
	d.Message = DenialMessage(def, resetAt)
	return d
}

// DenialMessage renders the user-facing denial text: the limit, the
// period, and the formatted reset date.
func DenialMessage(def tier.Definition, resetAt time.Time) string {
	period := "month"
	if def.Period == tier.PeriodWeekly {
		period = "week"
	}
	return fmt.Sprintf("You've reached your limit of %d lookups per %s. Your quota resets on %s.",
		def.Limit, period, resetAt.UTC().Format("Jan 2, 2006"))
}
