package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/quota"
	"github.com/xraph/quota/account"
	"github.com/xraph/quota/ledger"
	quotastore "github.com/xraph/quota/store"
)

// compile-time interface check
var _ quotastore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM. Counter
// mutations are single UPDATE statements so the increment, the history
// append and the due-check reset never race across a read-modify-write.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("quota/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("quota/postgres: migration failed: %w", err)
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
	res, err := s.pg.NewInsert(m).
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
	err := s.pg.NewSelect(m).
		Where("key = $1", key).
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
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
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
	q := s.pg.NewUpdate((*accountModel)(nil)).
		Set("status = $1", string(p.Status)).
		Set("cancelled = $2", p.Cancelled).
		Set("past_due = $3", p.PastDue).
		Set("updated_at = $4", t)

	argIdx := 4
	if p.TierChanged {
		argIdx++
		q = q.Set(fmt.Sprintf("tier = $%d", argIdx), string(p.Tier))
		if p.Anchor != nil {
			argIdx++
			q = q.Set(fmt.Sprintf("anchor_at = $%d", argIdx), *p.Anchor)
		}
	}
	argIdx++
	q = q.Where(fmt.Sprintf("key = $%d", argIdx), key)

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
		_, err = s.pg.NewUpdate((*ledgerModel)(nil)).
			Set("current = 0").
			Set("reset_at = $1", *p.ResetAt).
			Set("updated_at = $2", t).
			Where("key = $3", key).
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SetAnchor(ctx context.Context, key string, anchor, resetAt time.Time) error {
	t := now()
	res, err := s.pg.NewUpdate((*accountModel)(nil)).
		Set("anchor_at = $1", anchor).
		Set("updated_at = $2", t).
		Where("key = $3", key).
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

	_, err = s.pg.NewUpdate((*ledgerModel)(nil)).
		Set("reset_at = $1", resetAt).
		Set("updated_at = $2", t).
		Where("key = $3", key).
		Exec(ctx)
	return err
}

// ==================== Ledger Store ====================

func (s *Store) CreateLedger(ctx context.Context, l *ledger.Ledger) error {
	m := toLedgerModel(l)
	res, err := s.pg.NewInsert(m).
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
	err := s.pg.NewSelect(m).
		Where("key = $1", accountKey).
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
	res, err := s.pg.NewUpdate((*ledgerModel)(nil)).
		Set("current = 0").
		Set("reset_at = $1", next).
		Set("updated_at = $2", time.Now().UTC()).
		Where("key = $3", accountKey).
		Where("reset_at <= $4", now).
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
	err = s.pg.NewSelect(m).
		Where("key = $1", accountKey).
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
	eventJSON, err := json.Marshal([]ledger.Event{e})
	if err != nil {
		return err
	}
	t := time.Now().UTC()

	q := s.pg.NewUpdate((*ledgerModel)(nil)).
		Set("current = current + 1")

	if historyLimit > 0 {
		// Append, then keep only the newest historyLimit entries.
		q = q.Set(`history = (
			SELECT COALESCE(jsonb_agg(evt ORDER BY ord), '[]'::jsonb)
			FROM (
				SELECT evt, ord
				FROM jsonb_array_elements(history || $1::jsonb) WITH ORDINALITY AS h(evt, ord)
				ORDER BY ord DESC
				LIMIT $2
			) tail
		)`, string(eventJSON), historyLimit).
			Set("updated_at = $3", t).
			Where("key = $4", accountKey)
	} else {
		q = q.Set("history = history || $1::jsonb", string(eventJSON)).
			Set("updated_at = $2", t).
			Where("key = $3", accountKey)
	}

	res, err := q.Exec(ctx)
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
	q := s.pg.NewSelect(&models).
		Where("reset_at <= $1", now).
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
	res, err := s.pg.NewInsert(m).
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
	_, err := s.pg.NewDelete((*webhookModel)(nil)).
		Where("event_id = $1", eventID).
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
