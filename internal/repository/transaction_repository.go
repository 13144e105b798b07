package repository

import (
	"context"
	"fmt"

	"github.com/tempopay/bump/internal/database"
	"github.com/tempopay/bump/internal/models"
)

// TransactionRepository stores the append-only transfer audit log.
type TransactionRepository struct {
	db database.PGXDB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db database.PGXDB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends one completed transfer leg.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.Direction == "" {
		tx.Direction = models.DirectionSend
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO transactions (phone, direction, amount, counterparty, memo, chain_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, tx.Phone, tx.Direction, tx.Amount, tx.Counterparty, tx.Memo, tx.ChainHash).
		Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// ListRecent returns the newest transactions for an identity,
// reverse-chronological.
func (r *TransactionRepository) ListRecent(ctx context.Context, phone string, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, phone, direction, amount, counterparty, memo, chain_hash, created_at
		FROM transactions WHERE phone = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.Phone, &tx.Direction, &tx.Amount, &tx.Counterparty, &tx.Memo, &tx.ChainHash, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}
