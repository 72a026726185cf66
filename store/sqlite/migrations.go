package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Quota store (SQLite).
var Migrations = migrate.NewGroup("quota")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_quota_accounts",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS quota_accounts (
    key        TEXT PRIMARY KEY,
    id         TEXT NOT NULL DEFAULT '',
    email      TEXT NOT NULL DEFAULT '',
    tier       TEXT NOT NULL DEFAULT 'free',
    status     TEXT NOT NULL DEFAULT 'trial',
    anchor_at  TEXT,
    cancelled  INTEGER NOT NULL DEFAULT 0,
    past_due   INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_quota_accounts_status ON quota_accounts (status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS quota_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_quota_ledgers",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS quota_ledgers (
    key        TEXT PRIMARY KEY,
    current    INTEGER NOT NULL DEFAULT 0,
    reset_at   TEXT NOT NULL,
    history    TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_quota_ledgers_reset_at ON quota_ledgers (reset_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS quota_ledgers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_quota_webhooks",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS quota_webhooks (
    event_id    TEXT PRIMARY KEY,
    received_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_quota_webhooks_received ON quota_webhooks (received_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS quota_webhooks`)
				return err
			},
		},
	)
}
