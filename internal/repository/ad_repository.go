package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"swapboard/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrAdNotFound = errors.New("ad not found")
)

// AdFilter narrows the ad listing. Query matches title OR description
// case-insensitively. A nil CategoryID/Condition means no filtering on
// that field.
type AdFilter struct {
	Query      string
	CategoryID *uuid.UUID
	Condition  *domain.Condition
}

// AdRepository defines the interface for ad data access
type AdRepository interface {
	Create(ctx context.Context, ad *domain.Ad) error
	Update(ctx context.Context, ad *domain.Ad) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Ad, error)
	List(ctx context.Context, filter AdFilter, page, pageSize int) ([]*domain.Ad, int, error)
}

type adRepository struct {
	db *sql.DB
}

// NewAdRepository creates a new instance of AdRepository
func NewAdRepository(db *sql.DB) AdRepository {
	return &adRepository{db: db}
}

// Create inserts a new ad using parameterized queries
func (r *adRepository) Create(ctx context.Context, ad *domain.Ad) error {
	query := `
		INSERT INTO ads (id, user_id, title, description, image_url, category_id, condition, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		ad.ID,
		ad.UserID,
		ad.Title,
		ad.Description,
		ad.ImageURL,
		ad.CategoryID,
		ad.Condition,
		ad.IsActive,
		ad.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create ad: %w", err)
	}

	return nil
}

// Update rewrites the editable fields of an existing ad. Ownership and
// created_at are immutable and never touched here.
func (r *adRepository) Update(ctx context.Context, ad *domain.Ad) error {
	query := `
		UPDATE ads
		SET title = $2, description = $3, image_url = $4, category_id = $5, condition = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		ad.ID,
		ad.Title,
		ad.Description,
		ad.ImageURL,
		ad.CategoryID,
		ad.Condition,
	)

	if err != nil {
		return fmt.Errorf("failed to update ad: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrAdNotFound
	}

	return nil
}

// Deactivate soft-deletes an ad. The row and its proposals survive.
func (r *adRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE ads SET is_active = FALSE WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate ad: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrAdNotFound
	}

	return nil
}

// FindByID retrieves an ad by ID, active or not
func (r *adRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Ad, error) {
	query := `
		SELECT id, user_id, title, description, image_url, category_id, condition, is_active, created_at
		FROM ads
		WHERE id = $1
	`

	ad := &domain.Ad{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ad.ID,
		&ad.UserID,
		&ad.Title,
		&ad.Description,
		&ad.ImageURL,
		&ad.CategoryID,
		&ad.Condition,
		&ad.IsActive,
		&ad.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAdNotFound
		}
		return nil, fmt.Errorf("failed to find ad by ID: %w", err)
	}

	return ad, nil
}

// List retrieves active ads matching the filter, newest first, paginated.
// Inactive ads are never returned.
func (r *adRepository) List(ctx context.Context, filter AdFilter, page, pageSize int) ([]*domain.Ad, int, error) {
	whereClause := "WHERE is_active = TRUE"
	args := []interface{}{}
	argIndex := 1

	if filter.Query != "" {
		whereClause += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+filter.Query+"%")
		argIndex++
	}
	if filter.CategoryID != nil {
		whereClause += fmt.Sprintf(" AND category_id = $%d", argIndex)
		args = append(args, *filter.CategoryID)
		argIndex++
	}
	if filter.Condition != nil {
		whereClause += fmt.Sprintf(" AND condition = $%d", argIndex)
		args = append(args, *filter.Condition)
		argIndex++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM ads %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ads: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT id, user_id, title, description, image_url, category_id, condition, is_active, created_at
		FROM ads
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)

	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ads: %w", err)
	}
	defer rows.Close()

	ads := []*domain.Ad{}
	for rows.Next() {
		ad := &domain.Ad{}
		err := rows.Scan(
			&ad.ID,
			&ad.UserID,
			&ad.Title,
			&ad.Description,
			&ad.ImageURL,
			&ad.CategoryID,
			&ad.Condition,
			&ad.IsActive,
			&ad.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan ad: %w", err)
		}
		ads = append(ads, ad)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating ads: %w", err)
	}

	return ads, total, nil
}
