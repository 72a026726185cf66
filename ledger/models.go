// Package ledger holds the per-account usage counter, its reset schedule,
// and the append-only history of billed events.
package ledger

import (
	"time"

	"github.com/xraph/quota/id"
	"github.com/xraph/quota/types"
)

// Point is a geographic coordinate attached to a billed event.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event is one billed action. Costs accrue in micro-dollars because a
// single call is far below one cent.
type Event struct {
	ID         id.UsageEventID `json:"id"`
	At         time.Time       `json:"at"`
	Tokens     int64           `json:"tokens"`
	CostMicros int64           `json:"cost_micros"`
	Summary    string          `json:"summary,omitempty"`
	Coords     *Point          `json:"coords,omitempty"`
}

// Cost returns the event cost as Money, truncated to whole cents.
func (e Event) Cost() types.Money {
	return types.USDFromMicros(e.CostMicros)
}

// Ledger is the usage state for one account. Current counts billed
// actions since the last reset; History survives resets and tier changes.
type Ledger struct {
	types.Entity
	AccountKey string    `json:"account_key"`
	Current    int64     `json:"current"`
	ResetAt    time.Time `json:"reset_at"`
	History    []Event   `json:"history,omitempty"`
}

// Remaining returns how many billed actions are left under limit,
// never negative.
func (l *Ledger) Remaining(limit int64) int64 {
	if r := limit - l.Current; r > 0 {
		return r
	}
	return 0
}
