package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tempopay/bump/internal/database"
	"github.com/tempopay/bump/internal/models"
)

// LimitRepository stores per-identity daily spending limits and counters.
type LimitRepository struct {
	db database.PGXDB
}

// NewLimitRepository creates a new LimitRepository.
func NewLimitRepository(db database.PGXDB) *LimitRepository {
	return &LimitRepository{db: db}
}

// Get returns the spending limit row for a phone identity, or (nil, nil)
// when none has been configured yet.
func (r *LimitRepository) Get(ctx context.Context, phone string) (*models.SpendingLimit, error) {
	var l models.SpendingLimit
	err := r.db.QueryRow(ctx, `
		SELECT phone, daily_limit, spent_today, window_start
		FROM spending_limits WHERE phone = $1
	`, phone).Scan(&l.Phone, &l.DailyLimit, &l.SpentToday, &l.WindowStart)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get spending limit: %w", err)
	}
	return &l, nil
}

// Upsert writes the full spending limit row for a phone identity.
func (r *LimitRepository) Upsert(ctx context.Context, limit *models.SpendingLimit) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO spending_limits (phone, daily_limit, spent_today, window_start)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (phone) DO UPDATE SET
			daily_limit = EXCLUDED.daily_limit,
			spent_today = EXCLUDED.spent_today,
			window_start = EXCLUDED.window_start
	`, limit.Phone, limit.DailyLimit, limit.SpentToday, limit.WindowStart)
	if err != nil {
		return fmt.Errorf("failed to upsert spending limit: %w", err)
	}
	return nil
}
