package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/quota/account"
	"github.com/xraph/quota/id"
	"github.com/xraph/quota/ledger"
	"github.com/xraph/quota/tier"
	"github.com/xraph/quota/types"
)

// Accounts and ledgers are keyed by the external account key, not the
// TypeID: every read path starts from the key the extension sends, so the
// key is the natural _id. The TypeID travels as a plain field.

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:quota_accounts"`

	Key       string     `grove:"key,pk"     bson:"_id"`
	ID        string     `grove:"id"         bson:"id"`
	Email     string     `grove:"email"      bson:"email,omitempty"`
	Tier      string     `grove:"tier"       bson:"tier"`
	Status    string     `grove:"status"     bson:"status"`
	AnchorAt  *time.Time `grove:"anchor_at"  bson:"anchor_at,omitempty"`
	Cancelled bool       `grove:"cancelled"  bson:"cancelled"`
	PastDue   bool       `grove:"past_due"   bson:"past_due"`
	CreatedAt time.Time  `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `grove:"updated_at" bson:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		Key:       a.Key,
		ID:        a.ID.String(),
		Email:     a.Email,
		Tier:      string(a.Tier),
		Status:    string(a.Status),
		AnchorAt:  a.AnchorAt,
		Cancelled: a.Cancelled,
		PastDue:   a.PastDue,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, err
	}

	return &account.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        accountID,
		Key:       m.Key,
		Email:     m.Email,
		Tier:      tier.Tier(m.Tier),
		Status:    account.Status(m.Status),
		AnchorAt:  m.AnchorAt,
		Cancelled: m.Cancelled,
		PastDue:   m.PastDue,
	}, nil
}

// ==================== Ledger models ====================

type ledgerModel struct {
	grove.BaseModel `grove:"table:quota_ledgers"`

	Key       string       `grove:"key,pk"     bson:"_id"`
	Current   int64        `grove:"current"    bson:"current"`
	ResetAt   time.Time    `grove:"reset_at"   bson:"reset_at"`
	History   []eventModel `grove:"history"    bson:"history"`
	CreatedAt time.Time    `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time    `grove:"updated_at" bson:"updated_at"`
}

type eventModel struct {
	ID         string      `bson:"id"`
	At         time.Time   `bson:"at"`
	Tokens     int64       `bson:"tokens"`
	CostMicros int64       `bson:"cost_micros"`
	Summary    string      `bson:"summary,omitempty"`
	Coords     *pointModel `bson:"coords,omitempty"`
}

type pointModel struct {
	Lat float64 `bson:"lat"`
	Lng float64 `bson:"lng"`
}

func toEventModel(e ledger.Event) eventModel {
	m := eventModel{
		ID:         e.ID.String(),
		At:         e.At,
		Tokens:     e.Tokens,
		CostMicros: e.CostMicros,
		Summary:    e.Summary,
	}
	if e.Coords != nil {
		m.Coords = &pointModel{Lat: e.Coords.Lat, Lng: e.Coords.Lng}
	}
	return m
}

func fromEventModel(m *eventModel) (ledger.Event, error) {
	evtID, err := id.ParseUsageEventID(m.ID)
	if err != nil {
		return ledger.Event{}, err
	}

	e := ledger.Event{
		ID:         evtID,
		At:         m.At,
		Tokens:     m.Tokens,
		CostMicros: m.CostMicros,
		Summary:    m.Summary,
	}
	if m.Coords != nil {
		e.Coords = &ledger.Point{Lat: m.Coords.Lat, Lng: m.Coords.Lng}
	}
	return e, nil
}

func toLedgerModel(l *ledger.Ledger) *ledgerModel {
	history := make([]eventModel, len(l.History))
	for i, e := range l.History {
		history[i] = toEventModel(e)
	}

	return &ledgerModel{
		Key:       l.AccountKey,
		Current:   l.Current,
		ResetAt:   l.ResetAt,
		History:   history,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func fromLedgerModel(m *ledgerModel) (*ledger.Ledger, error) {
	history := make([]ledger.Event, len(m.History))
	for i := range m.History {
		e, err := fromEventModel(&m.History[i])
		if err != nil {
			return nil, err
		}
		history[i] = e
	}

	return &ledger.Ledger{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		AccountKey: m.Key,
		Current:    m.Current,
		ResetAt:    m.ResetAt,
		History:    history,
	}, nil
}

// ==================== Webhook models ====================

type webhookModel struct {
	grove.BaseModel `grove:"table:quota_webhooks"`

	EventID    string    `grove:"event_id,pk" bson:"_id"`
	ReceivedAt time.Time `grove:"received_at" bson:"received_at"`
}
