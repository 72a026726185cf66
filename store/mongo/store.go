package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/quota"
	"github.com/xraph/quota/account"
	"github.com/xraph/quota/ledger"
	quotastore "github.com/xraph/quota/store"
)

// Collection name constants.
const (
	colAccounts = "quota_accounts"
	colLedgers  = "quota_ledgers"
	colWebhooks = "quota_webhooks"
)

// Webhook dedupe records expire once redeliveries are no longer plausible.
const webhookTTL = 30 * 24 * time.Hour

// compile-time interface check
var _ quotastore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM. Counter
// mutations go through raw update operators so that increment, history
// append and the due-check reset are each a single server-side write.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all quota collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("quota/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, fmt.Errorf("quota/mongo: upsert account: %w", err)
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
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": key}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, quota.ErrAccountNotFound
		}
		return nil, fmt.Errorf("quota/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) UpdateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Key}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("quota/mongo: update account: %w", err)
	}
	if res.MatchedCount() == 0 {
		return quota.ErrAccountNotFound
	}
	return nil
}

func (s *Store) ApplyPatch(ctx context.Context, key string, p *account.Patch, _ time.Time) error {
	t := now()
	update := s.mdb.NewUpdate((*accountModel)(nil)).
		Filter(bson.M{"_id": key}).
		Set("status", string(p.Status)).
		Set("cancelled", p.Cancelled).
		Set("past_due", p.PastDue).
		Set("updated_at", t)

	if p.TierChanged {
		update = update.Set("tier", string(p.Tier))
		if p.Anchor != nil {
			update = update.Set("anchor_at", *p.Anchor)
		}
	}

	res, err := update.Exec(ctx)
	if err != nil {
		return fmt.Errorf("quota/mongo: apply patch: %w", err)
	}
	if res.MatchedCount() == 0 {
		return quota.ErrAccountNotFound
	}

	if p.TierChanged && p.ResetAt != nil {
		_, err = s.mdb.Collection(colLedgers).UpdateOne(ctx,
			bson.M{"_id": key},
			bson.M{"$set": bson.M{
				"current":    int64(0),
				"reset_at":   *p.ResetAt,
				"updated_at": t,
			}},
		)
		if err != nil {
			return fmt.Errorf("quota/mongo: apply patch ledger reset: %w", err)
		}
	}
	return nil
}

func (s *Store) SetAnchor(ctx context.Context, key string, anchor, resetAt time.Time) error {
	t := now()
	res, err := s.mdb.NewUpdate((*accountModel)(nil)).
		Filter(bson.M{"_id": key}).
		Set("anchor_at", anchor).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("quota/mongo: set anchor: %w", err)
	}
	if res.MatchedCount() == 0 {
		return quota.ErrAccountNotFound
	}

	_, err = s.mdb.Collection(colLedgers).UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"reset_at": resetAt, "updated_at": t}},
	)
	if err != nil {
		return fmt.Errorf("quota/mongo: set anchor ledger: %w", err)
	}
	return nil
}

// ==================== Ledger Store ====================

func (s *Store) CreateLedger(ctx context.Context, l *ledger.Ledger) error {
	m := toLedgerModel(l)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return quota.ErrAlreadyExists
		}
		return fmt.Errorf("quota/mongo: create ledger: %w", err)
	}
	return nil
}

func (s *Store) GetLedger(ctx context.Context, accountKey string) (*ledger.Ledger, error) {
	var m ledgerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": accountKey}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, quota.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("quota/mongo: get ledger: %w", err)
	}
	return fromLedgerModel(&m)
}

func (s *Store) ResetLedgerIfDue(ctx context.Context, accountKey string, now, next time.Time) (bool, error) {
	// The due-check lives in the filter, so concurrent callers race on a
	// single conditional write and exactly one of them wins.
	res, err := s.mdb.Collection(colLedgers).UpdateOne(ctx,
		bson.M{"_id": accountKey, "reset_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{
			"current":    int64(0),
			"reset_at":   next,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("quota/mongo: reset ledger: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	// Not due, or no such ledger. Distinguish for the caller.
	n, err := s.mdb.Collection(colLedgers).CountDocuments(ctx, bson.M{"_id": accountKey})
	if err != nil {
		return false, fmt.Errorf("quota/mongo: reset ledger lookup: %w", err)
	}
	if n == 0 {
		return false, quota.ErrLedgerNotFound
	}
	return false, nil
}

func (s *Store) AddUsage(ctx context.Context, accountKey string, e ledger.Event, historyLimit int) error {
	push := bson.M{"$each": bson.A{toEventModel(e)}}
	if historyLimit > 0 {
		push["$slice"] = -historyLimit
	}

	res, err := s.mdb.Collection(colLedgers).UpdateOne(ctx,
		bson.M{"_id": accountKey},
		bson.M{
			"$inc":  bson.M{"current": int64(1)},
			"$push": bson.M{"history": push},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("quota/mongo: add usage: %w", err)
	}
	if res.MatchedCount == 0 {
		return quota.ErrLedgerNotFound
	}
	return nil
}

func (s *Store) ListDueAccounts(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var models []ledgerModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"reset_at": bson.M{"$lte": now}}).
		Sort(bson.D{{Key: "reset_at", Value: 1}})

	if limit > 0 {
		q = q.Limit(int64(limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("quota/mongo: list due accounts: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("quota/mongo: mark webhook: %w", err)
	}
	return true, nil
}

func (s *Store) UnmarkWebhook(ctx context.Context, eventID string) error {
	_, err := s.mdb.NewDelete((*webhookModel)(nil)).
		Filter(bson.M{"_id": eventID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("quota/mongo: unmark webhook: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all quota collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colLedgers: {
			{Keys: bson.D{{Key: "reset_at", Value: 1}}},
		},
		colWebhooks: {
			{
				Keys:    bson.D{{Key: "received_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(int32(webhookTTL / time.Second)),
			},
		},
	}
}
