package bot

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tempopay/bump/internal/models"
)

// LimitStore persists per-identity spending limit rows.
type LimitStore interface {
	Get(ctx context.Context, phone string) (*models.SpendingLimit, error)
	Upsert(ctx context.Context, limit *models.SpendingLimit) error
}

// Ledger tracks rolling daily spend per sender. The 24h window rolls over
// lazily: the decision is made at check/record time, not by a timer.
//
// CanSpend followed by RecordSpend is deliberately not atomic across
// concurrent messages from the same sender; two in-flight transfers can both
// pass the check and jointly overspend the limit. A failed transfer never
// consumes budget because RecordSpend only runs after the transfer succeeds.
type Ledger struct {
	store LimitStore
	now   func() time.Time
}

// NewLedger creates a Ledger backed by the given store.
func NewLedger(store LimitStore) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// CanSpend reports whether spending amount now would stay within the
// configured daily limit. No configured limit means unlimited.
func (l *Ledger) CanSpend(ctx context.Context, phone string, amount decimal.Decimal) (bool, error) {
	limit, err := l.store.Get(ctx, phone)
	if err != nil {
		return false, err
	}
	if limit == nil || limit.DailyLimit == nil {
		return true, nil
	}

	spent := limit.SpentToday
	if l.now().Sub(limit.WindowStart) >= models.SpendingWindow {
		spent = decimal.Zero
	}
	return spent.Add(amount).LessThanOrEqual(*limit.DailyLimit), nil
}

// RecordSpend adds a successful debit to the current window, rolling the
// window over first when it has expired. Never decremented.
func (l *Ledger) RecordSpend(ctx context.Context, phone string, amount decimal.Decimal) error {
	limit, err := l.store.Get(ctx, phone)
	if err != nil {
		return err
	}
	now := l.now()

	if limit == nil {
		limit = &models.SpendingLimit{Phone: phone, SpentToday: amount, WindowStart: now}
		return l.store.Upsert(ctx, limit)
	}

	if now.Sub(limit.WindowStart) >= models.SpendingWindow {
		limit.SpentToday = amount
		limit.WindowStart = now
	} else {
		limit.SpentToday = limit.SpentToday.Add(amount)
	}
	return l.store.Upsert(ctx, limit)
}

// SetLimit configures the daily limit for an identity, preserving the
// current window's spend.
func (l *Ledger) SetLimit(ctx context.Context, phone string, daily decimal.Decimal) error {
	limit, err := l.store.Get(ctx, phone)
	if err != nil {
		return err
	}
	if limit == nil {
		limit = &models.SpendingLimit{Phone: phone, SpentToday: decimal.Zero, WindowStart: l.now()}
	}
	limit.DailyLimit = &daily
	return l.store.Upsert(ctx, limit)
}
