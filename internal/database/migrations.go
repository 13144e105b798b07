package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the database schema.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS contacts (
			id SERIAL PRIMARY KEY,
			owner_phone TEXT NOT NULL,
			nickname TEXT NOT NULL,
			phone TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (owner_phone, nickname)
		)`,

		`CREATE TABLE IF NOT EXISTS tags (
			name TEXT PRIMARY KEY,
			phone TEXT NOT NULL UNIQUE,
			address TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS wallets (
			phone TEXT PRIMARY KEY,
			wallet_id TEXT NOT NULL,
			address TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS spending_limits (
			phone TEXT PRIMARY KEY,
			daily_limit DECIMAL(12, 2),
			spent_today DECIMAL(12, 2) NOT NULL DEFAULT 0,
			window_start TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS requests (
			id SERIAL PRIMARY KEY,
			from_phone TEXT NOT NULL,
			to_phone TEXT NOT NULL,
			amount DECIMAL(12, 2) NOT NULL,
			memo TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_requests_to_phone ON requests(to_phone)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			phone TEXT NOT NULL,
			direction TEXT NOT NULL,
			amount DECIMAL(12, 2) NOT NULL,
			counterparty TEXT NOT NULL,
			memo TEXT NOT NULL DEFAULT '',
			chain_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_transactions_phone ON transactions(phone)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at)`,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
