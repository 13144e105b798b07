package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tempopay/bump/internal/database"
	"github.com/tempopay/bump/internal/models"
)

// WalletRepository caches the custody service's identity -> wallet mapping.
type WalletRepository struct {
	db database.PGXDB
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db database.PGXDB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Get returns the cached wallet for a phone identity, or (nil, nil).
func (r *WalletRepository) Get(ctx context.Context, phone string) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.QueryRow(ctx, `
		SELECT phone, wallet_id, address, created_at FROM wallets WHERE phone = $1
	`, phone).Scan(&w.Phone, &w.WalletID, &w.Address, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &w, nil
}

// Put stores the wallet for a phone identity. The mapping is append-only:
// a concurrent insert for the same phone keeps the first row.
func (r *WalletRepository) Put(ctx context.Context, wallet *models.Wallet) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO wallets (phone, wallet_id, address) VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO NOTHING
	`, wallet.Phone, wallet.WalletID, wallet.Address)
	if err != nil {
		return fmt.Errorf("failed to put wallet: %w", err)
	}
	return nil
}
