// Package repository contains the persistence layer, one repository per table.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/tempopay/bump/internal/database"
	"github.com/tempopay/bump/internal/models"
)

// ContactRepository handles contact database operations.
type ContactRepository struct {
	db database.PGXDB
}

// NewContactRepository creates a new ContactRepository.
func NewContactRepository(db database.PGXDB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Upsert saves a nickname -> phone mapping for an owner.
// Nicknames are case-insensitive and last-write-wins on collision.
func (r *ContactRepository) Upsert(ctx context.Context, contact *models.Contact) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO contacts (owner_phone, nickname, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_phone, nickname) DO UPDATE SET phone = EXCLUDED.phone
	`, contact.OwnerPhone, strings.ToLower(contact.Nickname), contact.Phone)
	if err != nil {
		return fmt.Errorf("failed to upsert contact: %w", err)
	}
	return nil
}

// Get looks up a contact by nickname within one owner's scope.
// Returns (nil, nil) when the nickname is not saved.
func (r *ContactRepository) Get(ctx context.Context, ownerPhone, nickname string) (*models.Contact, error) {
	var c models.Contact
	err := r.db.QueryRow(ctx, `
		SELECT id, owner_phone, nickname, phone, created_at
		FROM contacts WHERE owner_phone = $1 AND nickname = $2
	`, ownerPhone, strings.ToLower(nickname)).
		Scan(&c.ID, &c.OwnerPhone, &c.Nickname, &c.Phone, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return &c, nil
}

// ListByOwner returns all contacts saved by one owner, ordered by nickname.
func (r *ContactRepository) ListByOwner(ctx context.Context, ownerPhone string) ([]models.Contact, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, owner_phone, nickname, phone, created_at
		FROM contacts WHERE owner_phone = $1
		ORDER BY nickname
	`, ownerPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.OwnerPhone, &c.Nickname, &c.Phone, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}
	return contacts, nil
}
