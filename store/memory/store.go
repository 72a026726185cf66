// Package memory provides an in-memory Store for tests and single-process
// deployments. All mutations happen under one mutex, so the compare-and-set
// semantics of ResetLedgerIfDue and the atomicity of AddUsage hold trivially.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/quota"
	"github.com/xraph/quota/account"
	"github.com/xraph/quota/ledger"
	"github.com/xraph/quota/store"
	"github.com/xraph/quota/tier"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Accounts keyed by the external account key
	accounts map[string]*account.Account

	// Ledgers keyed by the account key
	ledgers map[string]*ledger.Ledger

	// Seen webhook delivery ids and when they arrived
	webhooks map[string]time.Time
}

func New() *Store {
	return &Store{
		accounts: make(map[string]*account.Account),
		ledgers:  make(map[string]*ledger.Ledger),
		webhooks: make(map[string]time.Time),
	}
}

// Account store implementation

func (s *Store) UpsertAccount(_ context.Context, a *account.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.accounts[a.Key]; ok {
		*a = *copyAccount(existing)
		return false, nil
	}
	s.accounts[a.Key] = copyAccount(a)
	return true, nil
}

func (s *Store) GetAccount(_ context.Context, key string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[key]; ok {
		return copyAccount(a), nil
	}
	return nil, quota.ErrAccountNotFound
}

func (s *Store) UpdateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.Key]; !ok {
		return quota.ErrAccountNotFound
	}
	s.accounts[a.Key] = copyAccount(a)
	return nil
}

func (s *Store) ApplyPatch(_ context.Context, key string, p *account.Patch, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[key]
	if !ok {
		return quota.ErrAccountNotFound
	}

	a.Status = p.Status
	a.Cancelled = p.Cancelled
	a.PastDue = p.PastDue
	if p.TierChanged {
		a.Tier = p.Tier
		if p.Anchor != nil {
			anchor := *p.Anchor
			a.AnchorAt = &anchor
		}
		if l, ok := s.ledgers[key]; ok && p.ResetAt != nil {
			l.Current = 0
			l.ResetAt = *p.ResetAt
			l.Touch()
		}
	}
	a.Touch()
	return nil
}

func (s *Store) SetAnchor(_ context.Context, key string, anchor, resetAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[key]
	if !ok {
		return quota.ErrAccountNotFound
	}
	a.AnchorAt = &anchor
	a.Touch()

	if l, ok := s.ledgers[key]; ok {
		l.ResetAt = resetAt
		l.Touch()
	}
	return nil
}

// Ledger store implementation

func (s *Store) CreateLedger(_ context.Context, l *ledger.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ledgers[l.AccountKey]; ok {
		return quota.ErrAlreadyExists
	}
	s.ledgers[l.AccountKey] = copyLedger(l)
	return nil
}

func (s *Store) GetLedger(_ context.Context, accountKey string) (*ledger.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.ledgers[accountKey]; ok {
		return copyLedger(l), nil
	}
	return nil, quota.ErrLedgerNotFound
}

func (s *Store) ResetLedgerIfDue(_ context.Context, accountKey string, now, next time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[accountKey]
	if !ok {
		return false, quota.ErrLedgerNotFound
	}
	if l.ResetAt.After(now) {
		return false, nil
	}
	l.Current = 0
	l.ResetAt = next
	l.Touch()
	return true, nil
}

func (s *Store) AddUsage(_ context.Context, accountKey string, e ledger.Event, historyLimit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[accountKey]
	if !ok {
		return quota.ErrLedgerNotFound
	}
	l.Current++
	l.History = append(l.History, e)
	if historyLimit > 0 && len(l.History) > historyLimit {
		l.History = l.History[len(l.History)-historyLimit:]
	}
	l.Touch()
	return nil
}

func (s *Store) ListDueAccounts(_ context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for key, l := range s.ledgers {
		if !l.ResetAt.After(now) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

// Webhook dedupe implementation

func (s *Store) MarkWebhook(_ context.Context, eventID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.webhooks[eventID]; seen {
		return false, nil
	}
	s.webhooks[eventID] = at
	return true, nil
}

func (s *Store) UnmarkWebhook(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.webhooks, eventID)
	return nil
}

// Store management

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// Copies keep callers from mutating shared state outside the lock.

func copyAccount(a *account.Account) *account.Account {
	dup := *a
	if a.AnchorAt != nil {
		anchor := *a.AnchorAt
		dup.AnchorAt = &anchor
	}
	if dup.Tier == "" {
		dup.Tier = tier.Free
	}
	return &dup
}

func copyLedger(l *ledger.Ledger) *ledger.Ledger {
	dup := *l
	dup.History = make([]ledger.Event, len(l.History))
	copy(dup.History, l.History)
	return &dup
}
