/**
 * @description
 * This file holds the idempotent schema bootstrap for the service. It is
 * executed once at startup so a fresh database reaches the expected shape
 * without external tooling.
 *
 * The schema carries the invariants the application depends on: the CHECK
 * constraint keeping balances non-negative, the partial unique index making
 * issued API keys globally unique, and the partial unique index backing
 * idempotency-key replay detection.
 */

package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id                  UUID PRIMARY KEY,
		username            TEXT NOT NULL,
		email               TEXT NOT NULL,
		password_hash       TEXT NOT NULL,
		role                TEXT NOT NULL DEFAULT 'user',
		balance             BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		api_key             TEXT,
		api_key_status      TEXT NOT NULL DEFAULT 'active',
		api_key_created_at  TIMESTAMPTZ,
		api_key_expires_at  TIMESTAMPTZ,
		api_key_usage_count BIGINT NOT NULL DEFAULT 0,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_username ON accounts (lower(username))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts (lower(email))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_api_key ON accounts (api_key) WHERE api_key IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id              UUID PRIMARY KEY,
		account_id      UUID NOT NULL REFERENCES accounts (id),
		amount          BIGINT NOT NULL CHECK (amount <> 0),
		type            TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'completed',
		description     TEXT NOT NULL DEFAULT '',
		order_id        UUID,
		payment_details JSONB,
		idempotency_key TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions (account_id, created_at DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_idempotency
		ON transactions (account_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS services (
		id           UUID PRIMARY KEY,
		name         TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		type         TEXT NOT NULL DEFAULT '',
		price        BIGINT NOT NULL CHECK (price > 0),
		min_quantity INT NOT NULL CHECK (min_quantity > 0),
		max_quantity INT NOT NULL,
		active       BOOLEAN NOT NULL DEFAULT TRUE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (min_quantity <= max_quantity)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_services_name ON services (lower(name))`,

	`CREATE TABLE IF NOT EXISTS orders (
		id             UUID PRIMARY KEY,
		account_id     UUID NOT NULL REFERENCES accounts (id),
		service_name   TEXT NOT NULL,
		quantity       INT NOT NULL,
		link           TEXT NOT NULL DEFAULT '',
		amount         BIGINT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'pending',
		transaction_id UUID NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_account ON orders (account_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS usage_logs (
		id            UUID PRIMARY KEY,
		account_id    UUID NOT NULL REFERENCES accounts (id),
		api_key       TEXT NOT NULL,
		query         TEXT NOT NULL DEFAULT '',
		user_agent    TEXT NOT NULL DEFAULT '',
		ip_address    TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		error_message TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_logs_account ON usage_logs (account_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_logs_created ON usage_logs (created_at)`,
}

// EnsureSchema applies the schema statements in order. Every statement is
// idempotent, so repeated startups are safe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
