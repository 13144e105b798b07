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

// ErrTagTaken is returned when a tag is already claimed by another identity.
var ErrTagTaken = errors.New("tag already claimed")

// TagRepository handles payment tag database operations.
type TagRepository struct {
	db database.PGXDB
}

// NewTagRepository creates a new TagRepository.
func NewTagRepository(db database.PGXDB) *TagRepository {
	return &TagRepository{db: db}
}

// Claim assigns a tag to an identity. An identity holds at most one tag;
// claiming a new one releases its previous tag. Claiming a tag held by a
// different identity fails with ErrTagTaken.
func (r *TagRepository) Claim(ctx context.Context, name, phone, address string) error {
	name = strings.ToLower(name)

	existing, err := r.Get(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil && existing.Phone != phone {
		return ErrTagTaken
	}

	_, err = r.db.Exec(ctx, `DELETE FROM tags WHERE phone = $1`, phone)
	if err != nil {
		return fmt.Errorf("failed to release previous tag: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO tags (name, phone, address) VALUES ($1, $2, $3)
	`, name, phone, address)
	if err != nil {
		return fmt.Errorf("failed to claim tag: %w", err)
	}
	return nil
}

// Get looks up a tag by name. Returns (nil, nil) when unclaimed.
func (r *TagRepository) Get(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.QueryRow(ctx, `
		SELECT name, phone, address, created_at FROM tags WHERE name = $1
	`, strings.ToLower(name)).
		Scan(&tag.Name, &tag.Phone, &tag.Address, &tag.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &tag, nil
}

// GetByPhone returns the tag claimed by an identity, or (nil, nil).
func (r *TagRepository) GetByPhone(ctx context.Context, phone string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.QueryRow(ctx, `
		SELECT name, phone, address, created_at FROM tags WHERE phone = $1
	`, phone).
		Scan(&tag.Name, &tag.Phone, &tag.Address, &tag.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag by phone: %w", err)
	}
	return &tag, nil
}
