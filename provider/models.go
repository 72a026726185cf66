// Package provider models the contract with the external billing
// provider: the subscription state it reports and how that state maps
// onto an internal tier. The provider is the source of truth for
// subscription status; this package never talks to it directly.
package provider

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/quota/account"
	"github.com/xraph/quota/tier"
)

// Status is a normalized provider subscription status.
type Status string

const (
	StatusActive    Status = "active"
	StatusTrial     Status = "trial"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
	StatusInactive  Status = "inactive"
)

// State is one subscription snapshot from the billing provider, delivered
// by webhook or poll. EventID identifies the delivery for dedupe; providers
// redeliver webhooks freely.
type State struct {
	EventID string    `json:"event_id,omitempty"`
	Key     string    `json:"key"`
	Paid    bool      `json:"paid"`
	Status  string    `json:"status"`
	Plan    string    `json:"plan,omitempty"`
	At      time.Time `json:"at,omitempty"`
}

// Outcome is the internal reading of a provider State: the tier the
// account should hold and the status flags to store.
type Outcome struct {
	Tier      tier.Tier      `json:"tier"`
	Status    account.Status `json:"status"`
	Cancelled bool           `json:"cancelled"`
	PastDue   bool           `json:"past_due"`
}

// PlanMap maps provider plan identifiers to internal tiers.
type PlanMap map[string]tier.Tier

// DefaultPlanMap maps the stock plan identifiers.
func DefaultPlanMap() PlanMap {
	return PlanMap{
		"standard": tier.Standard,
		"pro":      tier.Pro,
	}
}

var (
	errMissingKey    = errors.New("provider: state missing account key")
	errMissingStatus = errors.New("provider: state missing status")
)

// Validate rejects states that lack the required identity or status
// fields. Invalid states must never reach the account store.
func (s *State) Validate() error {
	if s.Key == "" {
		return errMissingKey
	}
	if s.Status == "" {
		return errMissingStatus
	}
	return nil
}

// NormalizeStatus folds the provider's status spellings onto the internal
// set. Unknown statuses return an error; a tier is never guessed from
// partial data.
func NormalizeStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active", "paid":
		return StatusActive, nil
	case "trial", "trialing":
		return StatusTrial, nil
	case "pastdue", "past_due", "past-due":
		return StatusPastDue, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	case "inactive", "expired", "none":
		return StatusInactive, nil
	}
	return "", fmt.Errorf("provider: unknown status %q", raw)
}

// Derive maps a provider State onto the tier and flags the account should
// hold. Rules:
//
//   - paid + past_due loses paid access immediately (tier free).
//   - paid + active, trial, or cancelled keeps the tier named by the plan
//     identifier. Cancelled is a soft-cancel: access runs until the period
//     end, so the tier stays paid with only the flag set.
//   - unpaid + trial is the free tier in trial.
//   - anything else is free and inactive.
func Derive(s State, plans PlanMap) (Outcome, error) {
	if err := s.Validate(); err != nil {
		return Outcome{}, err
	}

	status, err := NormalizeStatus(s.Status)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Cancelled: status == StatusCancelled,
		PastDue:   status == StatusPastDue,
	}

	if s.Paid {
		if status == StatusPastDue {
			out.Tier = tier.Free
			out.Status = account.StatusPastDue
			return out, nil
		}
		t, ok := plans[s.Plan]
		if !ok {
			return Outcome{}, fmt.Errorf("provider: unknown plan %q", s.Plan)
		}
		out.Tier = t
		switch status {
		case StatusTrial:
			out.Status = account.StatusTrial
		case StatusCancelled:
			out.Status = account.StatusCancelled
		default:
			out.Status = account.StatusActive
		}
		return out, nil
	}

	out.Tier = tier.Free
	if status == StatusTrial {
		out.Status = account.StatusTrial
	} else {
		out.Status = account.StatusInactive
	}
	return out, nil
}
