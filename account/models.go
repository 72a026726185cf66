// Package account models a metered user: identity, current tier, and
// subscription state as last reported by the billing provider.
package account

import (
	"time"

	"github.com/xraph/quota/id"
	"github.com/xraph/quota/tier"
	"github.com/xraph/quota/types"
)

// Status is the subscription state of an account.
type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
	StatusInactive  Status = "inactive"
)

// Account is one metered user. Accounts are keyed by an opaque external
// identity string; the TypeID is internal.
type Account struct {
	types.Entity
	ID     id.AccountID `json:"id"`
	Key    string       `json:"key"`
	Email  string       `json:"email,omitempty"`
	Tier   tier.Tier    `json:"tier"`
	Status Status       `json:"status"`
	// AnchorAt is the subscription start for anchored tiers. Nil until the
	// account first enters an anchored tier.
	AnchorAt  *time.Time `json:"anchor_at,omitempty"`
	Cancelled bool       `json:"cancelled"`
	PastDue   bool       `json:"past_due"`
}

// HasAccess reports whether the subscription status still supports a
// paid tier. The gate consults it only when the effective tier is paid;
// every account keeps its free allowance regardless of status.
// Cancelled accounts keep access until the paid period runs out, so the
// cancelled flag alone does not revoke anything.
func (a *Account) HasAccess() bool {
	switch a.Status {
	case StatusTrial, StatusActive, StatusCancelled:
		return true
	}
	return false
}

// EffectiveTier is the tier used for quota decisions. Past-due accounts
// are metered as free even while their stored tier is still paid.
func (a *Account) EffectiveTier() tier.Tier {
	if a.PastDue || a.Status == StatusPastDue {
		return tier.Free
	}
	return a.Tier
}

// Anchor returns the anchor instant, or the zero time when unset.
func (a *Account) Anchor() time.Time {
	if a.AnchorAt == nil {
		return time.Time{}
	}
	return *a.AnchorAt
}

// Patch is the outcome of reconciling a billing-provider state against a
// stored account. Applying the same patch twice yields the same account,
// and the ledger reset fires only when the tier actually changed.
type Patch struct {
	Tier      tier.Tier `json:"tier"`
	Status    Status    `json:"status"`
	Cancelled bool      `json:"cancelled"`
	PastDue   bool      `json:"past_due"`
	// TierChanged marks a real tier transition. Only then does applying
	// the patch zero the usage counter.
	TierChanged bool `json:"tier_changed"`
	// Anchor is set when the account enters an anchored tier.
	Anchor *time.Time `json:"anchor,omitempty"`
	// ResetAt is the fresh reset instant for the new tier. Only meaningful
	// when TierChanged is true.
	ResetAt *time.Time `json:"reset_at,omitempty"`
}
