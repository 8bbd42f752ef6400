package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bazaarhq/storefront/internal/domain"
	"github.com/bazaarhq/storefront/pkg/database"
	apperrors "github.com/bazaarhq/storefront/pkg/errors"
)

// ShopRepository implements repository.ShopRepository using PostgreSQL.
type ShopRepository struct {
	db database.DBTX
}

// NewShopRepository creates a new PostgreSQL-backed shop repository.
func NewShopRepository(db database.DBTX) *ShopRepository {
	return &ShopRepository{db: db}
}

// GetByID retrieves a shop by its ID.
func (r *ShopRepository) GetByID(ctx context.Context, id string) (*domain.Shop, error) {
	query := `
		SELECT id, owner_id, name, description, phone, address,
			   logo_url, cover_url, is_active, created_at, updated_at
		FROM shops
		WHERE id = $1`

	var s domain.Shop
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.OwnerID,
		&s.Name,
		&s.Description,
		&s.Phone,
		&s.Address,
		&s.LogoURL,
		&s.CoverURL,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("shop", id)
		}
		return nil, fmt.Errorf("scan shop: %w", err)
	}

	return &s, nil
}

// Create inserts a new shop into the database.
func (r *ShopRepository) Create(ctx context.Context, s *domain.Shop) error {
	query := `
		INSERT INTO shops (
			id, owner_id, name, description, phone, address,
			logo_url, cover_url, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.OwnerID,
		s.Name,
		s.Description,
		s.Phone,
		s.Address,
		s.LogoURL,
		s.CoverURL,
		s.IsActive,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("shop", "owner_id", s.OwnerID)
		}
		return fmt.Errorf("insert shop: %w", err)
	}

	return nil
}

// Update modifies an existing shop in the database.
func (r *ShopRepository) Update(ctx context.Context, s *domain.Shop) error {
	s.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE shops
		SET name = $1, description = $2, phone = $3, address = $4,
		    logo_url = $5, cover_url = $6, is_active = $7, updated_at = $8
		WHERE id = $9`

	ct, err := r.db.Exec(ctx, query,
		s.Name,
		s.Description,
		s.Phone,
		s.Address,
		s.LogoURL,
		s.CoverURL,
		s.IsActive,
		s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update shop: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("shop", s.ID)
	}

	return nil
}
