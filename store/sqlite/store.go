package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/quota"
	"github.com/xraph/quota/account"
	"github.com/xraph/quota/ledger"
	quotastore "github.com/xraph/quota/store"
)

// compile-time interface check
var _ quotastore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM. Counter
// mutations are single UPDATE statements; the history column is managed
// with the JSON1 functions so the append and trim happen in one write.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("quota/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("quota/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) UpsertAccount(ctx context.Context, a *account.Account) (bool, error) {
	m := toAccountModel(a)
	res, err := s.sdb.NewInsert(m).
		OnConflict("(key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows > 0 {
		return true, nil
	}

	// Lost the race or the account already existed. Hand back the stored row.
	existing, err := s.GetAccount(ctx, a.Key)
	if err != nil {
		return false, err
	}
	*a = *existing
	return false, nil
}

func (s *Store) GetAccount(ctx context.Context, key string) (*account.Account, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, quota.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) UpdateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return quota.ErrAccountNotFound
	}
	return nil
}

func (s *Store) ApplyPatch(ctx context.Context, key string, p *account.Patch, _ time.Time) error {
	t := now()
	q := s.sdb.NewUpdate((*accountModel)(nil)).
		Set("status = ?", string(p.Status)).
		Set("cancelled = ?", p.Cancelled).
		Set("past_due = ?", p.PastDue).
		Set("updated_at = ?", t)

	if p.TierChanged {
		q = q.Set("tier = ?", string(p.Tier))
		if p.Anchor != nil {
			q = q.Set("anchor_at = ?", *p.Anchor)
		}
	}
	q = q.Where("key = ?", key)

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return quota.ErrAccountNotFound
	}

	if p.TierChanged && p.ResetAt != nil {
		_, err = s.sdb.NewUpdate((*ledgerModel)(nil)).
			Set("current = 0").
			Set("reset_at = ?", *p.ResetAt).
			Set("updated_at = ?", t).
			Where("key = ?", key).
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SetAnchor(ctx context.Context, key string, anchor, resetAt time.Time) error {
	t := now()
	res, err := s.sdb.NewUpdate((*accountModel)(nil)).
		Set("anchor_at = ?", anchor).
		Set("updated_at = ?", t).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return quota.ErrAccountNotFound
	}

	_, err = s.sdb.NewUpdate((*ledgerModel)(nil)).
		Set("reset_at = ?", resetAt).
		Set("updated_at = ?", t).
		Where("key = ?", key).
		Exec(ctx)
	return err
}

// ==================== Ledger Store ====================

func (s *Store) CreateLedger(ctx context.Context, l *ledger.Ledger) error {
	m := toLedgerModel(l)
	res, err := s.sdb.NewInsert(m).
		OnConflict("(key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return quota.ErrAlreadyExists
	}
	return nil
}

func (s *Store) GetLedger(ctx context.Context, accountKey string) (*ledger.Ledger, error) {
	m := new(ledgerModel)
	err := s.sdb.NewSelect(m).
		Where("key = ?", accountKey).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, quota.ErrLedgerNotFound
		}
		return nil, err
	}
	return fromLedgerModel(m)
}

func (s *Store) ResetLedgerIfDue(ctx context.Context, accountKey string, now, next time.Time) (bool, error) {
	// The due-check is part of the WHERE clause, so racing callers contend
	// on one conditional UPDATE and exactly one of them wins.
	res, err := s.sdb.NewUpdate((*ledgerModel)(nil)).
		Set("current = 0").
		Set("reset_at = ?", next).
		Set("updated_at = ?", time.Now().UTC()).
		Where("key = ?", accountKey).
		Where("reset_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows > 0 {
		return true, nil
	}

	// Not due, or no such ledger. Distinguish for the caller.
	m := new(ledgerModel)
	err = s.sdb.NewSelect(m).
		Where("key = ?", accountKey).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return false, quota.ErrLedgerNotFound
		}
		return false, err
	}
	return false, nil
}

func (s *Store) AddUsage(ctx context.Context, accountKey string, e ledger.Event, historyLimit int) error {
	eventJSON, err := json.Marshal(e)
	if err != nil {
		return err
	}
	t := time.Now().UTC()

	q := s.sdb.NewUpdate((*ledgerModel)(nil)).
		Set("current = current + 1")

	if historyLimit > 0 {
		// One event goes in per call, so dropping the oldest entry when the
		// array is full keeps the length bounded.
		q = q.Set(`history = CASE
			WHEN json_array_length(history) >= ?
			THEN json_insert(json_remove(history, '$[0]'), '$[#]', json(?))
			ELSE json_insert(history, '$[#]', json(?))
		END`, historyLimit, string(eventJSON), string(eventJSON))
	} else {
		q = q.Set("history = json_insert(history, '$[#]', json(?))", string(eventJSON))
	}

	res, err := q.
		Set("updated_at = ?", t).
		Where("key = ?", accountKey).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return quota.ErrLedgerNotFound
	}
	return nil
}

func (s *Store) ListDueAccounts(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var models []ledgerModel
	q := s.sdb.NewSelect(&models).
		Where("reset_at <= ?", now).
		OrderExpr("reset_at ASC")

	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	keys := make([]string, len(models))
	for i := range models {
		keys[i] = models[i].Key
	}
	return keys, nil
}

// ==================== Webhook Store ====================

func (s *Store) MarkWebhook(ctx context.Context, eventID string, at time.Time) (bool, error) {
	m := &webhookModel{EventID: eventID, ReceivedAt: at}
	res, err := s.sdb.NewInsert(m).
		OnConflict("(event_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Store) UnmarkWebhook(ctx context.Context, eventID string) error {
	_, err := s.sdb.NewDelete((*webhookModel)(nil)).
		Where("event_id = ?", eventID).
		Exec(ctx)
	return err
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
