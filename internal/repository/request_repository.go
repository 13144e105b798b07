package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tempopay/bump/internal/database"
	"github.com/tempopay/bump/internal/models"
)

// RequestRepository stores payment requests and their lifecycle state.
type RequestRepository struct {
	db database.PGXDB
}

// NewRequestRepository creates a new RequestRepository.
func NewRequestRepository(db database.PGXDB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a pending request and fills in its assigned id.
func (r *RequestRepository) Create(ctx context.Context, req *models.PaymentRequest) error {
	req.Status = models.RequestStatusPending
	err := r.db.QueryRow(ctx, `
		INSERT INTO requests (from_phone, to_phone, amount, memo)
		VALUES ($1, $2, $3, $4)
		RETURNING id, status, created_at
	`, req.FromPhone, req.ToPhone, req.Amount, req.Memo).
		Scan(&req.ID, &req.Status, &req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// Get retrieves a request by id. Returns (nil, nil) when it does not exist.
func (r *RequestRepository) Get(ctx context.Context, id int64) (*models.PaymentRequest, error) {
	var req models.PaymentRequest
	err := r.db.QueryRow(ctx, `
		SELECT id, from_phone, to_phone, amount, memo, status, created_at
		FROM requests WHERE id = $1
	`, id).Scan(&req.ID, &req.FromPhone, &req.ToPhone, &req.Amount, &req.Memo, &req.Status, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &req, nil
}

// ListPendingFor returns all pending requests addressed to a payer.
func (r *RequestRepository) ListPendingFor(ctx context.Context, toPhone string) ([]models.PaymentRequest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, from_phone, to_phone, amount, memo, status, created_at
		FROM requests WHERE to_phone = $1 AND status = $2
		ORDER BY id
	`, toPhone, models.RequestStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending requests: %w", err)
	}
	defer rows.Close()

	var requests []models.PaymentRequest
	for rows.Next() {
		var req models.PaymentRequest
		if err := rows.Scan(&req.ID, &req.FromPhone, &req.ToPhone, &req.Amount, &req.Memo, &req.Status, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}
	return requests, nil
}

// MarkPaid transitions a request from pending to paid. The update is
// conditional on the current status, so exactly one of two concurrent payers
// wins; the return value reports whether this call made the transition.
func (r *RequestRepository) MarkPaid(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE requests SET status = $1 WHERE id = $2 AND status = $3
	`, models.RequestStatusPaid, id, models.RequestStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark request paid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
