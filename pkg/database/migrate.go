package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migrate creates the incentive schema when it does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	statements := postgresSchema
	if sqlx.BindType(db.DriverName()) == sqlx.QUESTION {
		statements = sqliteSchema
	}
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS user_accounts (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		secret_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS subjects (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		owner_user_id BIGINT NOT NULL,
		is_archived BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS badges (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		exp_value INTEGER NOT NULL CHECK (exp_value >= 0),
		badge_value INTEGER NOT NULL DEFAULT 1,
		is_repeatable BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS offers (
		id BIGSERIAL PRIMARY KEY,
		subject_id BIGINT NOT NULL REFERENCES subjects(id),
		created_by BIGINT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		requires_approval BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS offer_rewards (
		offer_id BIGINT NOT NULL REFERENCES offers(id),
		badge_id BIGINT NOT NULL,
		position INTEGER NOT NULL,
		qty INTEGER NOT NULL DEFAULT 1,
		exp_bonus INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (offer_id, badge_id)
	)`,
	`CREATE TABLE IF NOT EXISTS offer_claims (
		id BIGSERIAL PRIMARY KEY,
		offer_id BIGINT NOT NULL REFERENCES offers(id),
		student_user_id BIGINT NOT NULL,
		status TEXT NOT NULL,
		evidence TEXT,
		decision_note TEXT,
		accepted_at TIMESTAMPTZ NOT NULL,
		submitted_at TIMESTAMPTZ,
		decided_at TIMESTAMPTZ,
		decided_by BIGINT,
		UNIQUE (offer_id, student_user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS offer_claim_evidence (
		id BIGSERIAL PRIMARY KEY,
		claim_id BIGINT NOT NULL REFERENCES offer_claims(id),
		type TEXT NOT NULL,
		value TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS reward_ledger (
		id BIGSERIAL PRIMARY KEY,
		subject_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		source_type TEXT NOT NULL,
		source_id BIGINT NOT NULL,
		badge_id BIGINT,
		exp_delta INTEGER NOT NULL,
		badge_delta INTEGER NOT NULL,
		created_by BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (source_type, source_id, badge_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reward_ledger_user ON reward_ledger (user_id, subject_id)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT,
		action TEXT NOT NULL,
		resource TEXT NOT NULL,
		resource_id BIGINT,
		new_values TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS user_accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		secret_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS subjects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		owner_user_id INTEGER NOT NULL,
		is_archived BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS badges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		exp_value INTEGER NOT NULL CHECK (exp_value >= 0),
		badge_value INTEGER NOT NULL DEFAULT 1,
		is_repeatable BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS offers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id INTEGER NOT NULL REFERENCES subjects(id),
		created_by INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		requires_approval BOOLEAN NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS offer_rewards (
		offer_id INTEGER NOT NULL REFERENCES offers(id),
		badge_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		qty INTEGER NOT NULL DEFAULT 1,
		exp_bonus INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (offer_id, badge_id)
	)`,
	`CREATE TABLE IF NOT EXISTS offer_claims (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		offer_id INTEGER NOT NULL REFERENCES offers(id),
		student_user_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		evidence TEXT,
		decision_note TEXT,
		accepted_at DATETIME NOT NULL,
		submitted_at DATETIME,
		decided_at DATETIME,
		decided_by INTEGER,
		UNIQUE (offer_id, student_user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS offer_claim_evidence (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		claim_id INTEGER NOT NULL REFERENCES offer_claims(id),
		type TEXT NOT NULL,
		value TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reward_ledger (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		source_type TEXT NOT NULL,
		source_id INTEGER NOT NULL,
		badge_id INTEGER,
		exp_delta INTEGER NOT NULL,
		badge_delta INTEGER NOT NULL,
		created_by INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (source_type, source_id, badge_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reward_ledger_user ON reward_ledger (user_id, subject_id)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		action TEXT NOT NULL,
		resource TEXT NOT NULL,
		resource_id INTEGER,
		new_values TEXT,
		created_at DATETIME NOT NULL
	)`,
}
