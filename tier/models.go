// Package tier defines the plan tiers a metered account can hold and the
// usage allowances attached to each one.
package tier

import (
	"github.com/xraph/quota/types"
)

// Tier names a subscription level. The zero value is not a valid tier;
// unknown or missing tiers resolve to Free.
type Tier string

const (
	Free     Tier = "free"
	Standard Tier = "standard"
	Pro      Tier = "pro"
)

// Period is the cadence at which a tier's usage counter resets.
type Period string

const (
	// PeriodWeekly resets at the start of the next calendar week (Monday, UTC).
	PeriodWeekly Period = "weekly"
	// PeriodMonthly resets on a rolling 30-day cycle anchored to the
	// subscription start.
	PeriodMonthly Period = "monthly"
)

// Definition describes one tier: its usage allowance, reset cadence,
// and display price.
type Definition struct {
	Tier   Tier        `json:"tier"`
	Limit  int64       `json:"limit"`
	Period Period      `json:"period"`
	Price  types.Money `json:"price"`
	// Anchored tiers reset on 30-day multiples of the subscription start
	// rather than a fixed calendar boundary.
	Anchored bool `json:"anchored"`
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case Free, Standard, Pro:
		return true
	}
	return false
}

// Paid reports whether t is a paid tier.
func (t Tier) Paid() bool {
	return t == Standard || t == Pro
}
