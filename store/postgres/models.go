package postgres

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/quota/account"
	"github.com/xraph/quota/id"
	"github.com/xraph/quota/ledger"
	"github.com/xraph/quota/tier"
	"github.com/xraph/quota/types"
)

// Rows are keyed by the external account key; the TypeID is stored as a
// plain column. Event history lives in a jsonb column and round-trips
// through the ledger.Event json tags.

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:quota_accounts"`

	Key       string     `grove:"key,pk"`
	ID        string     `grove:"id"`
	Email     string     `grove:"email"`
	Tier      string     `grove:"tier"`
	Status    string     `grove:"status"`
	AnchorAt  *time.Time `grove:"anchor_at"`
	Cancelled bool       `grove:"cancelled"`
	PastDue   bool       `grove:"past_due"`
	CreatedAt time.Time  `grove:"created_at"`
	UpdatedAt time.Time  `grove:"updated_at"`
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

	Key       string          `grove:"key,pk"`
	Current   int64           `grove:"current"`
	ResetAt   time.Time       `grove:"reset_at"`
	History   json.RawMessage `grove:"history,type:jsonb"`
	CreatedAt time.Time       `grove:"created_at"`
	UpdatedAt time.Time       `grove:"updated_at"`
}

func toLedgerModel(l *ledger.Ledger) *ledgerModel {
	history, _ := json.Marshal(l.History) //nolint:errcheck // best-effort
	if len(l.History) == 0 {
		history = json.RawMessage("[]")
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
	var history []ledger.Event
	if len(m.History) > 0 && string(m.History) != "null" {
		if err := json.Unmarshal(m.History, &history); err != nil {
			return nil, err
		}
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

	EventID    string    `grove:"event_id,pk"`
	ReceivedAt time.Time `grove:"received_at"`
}
