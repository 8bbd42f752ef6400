package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bazaarhq/storefront/internal/domain"
	"github.com/bazaarhq/storefront/pkg/database"
	apperrors "github.com/bazaarhq/storefront/pkg/errors"
)

// VariantRepository implements repository.VariantRepository using PostgreSQL.
type VariantRepository struct {
	db database.DBTX
}

// NewVariantRepository creates a new PostgreSQL-backed variant repository.
func NewVariantRepository(db database.DBTX) *VariantRepository {
	return &VariantRepository{db: db}
}

// Create inserts a new variant into the database.
func (r *VariantRepository) Create(ctx context.Context, v *domain.Variant) error {
	attrsJSON, err := json.Marshal(v.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}

	query := `
		INSERT INTO product_variants (
			id, product_id, name, sku, price, stock, attributes, image,
			is_default, is_active, sku_edited, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.Exec(ctx, query,
		v.ID,
		v.ProductID,
		v.Name,
		v.SKU,
		v.Price,
		v.Stock,
		attrsJSON,
		v.Image,
		v.IsDefault,
		v.IsActive,
		v.SKUEdited,
		v.CreatedAt,
		v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("variant", "sku", v.SKU)
		}
		return fmt.Errorf("insert variant: %w", err)
	}

	return nil
}

// GetByID retrieves a variant by its ID.
func (r *VariantRepository) GetByID(ctx context.Context, id string) (*domain.Variant, error) {
	query := `
		SELECT id, product_id, name, sku, price, stock, attributes, image,
			   is_default, is_active, sku_edited, created_at, updated_at
		FROM product_variants
		WHERE id = $1`

	var (
		v         domain.Variant
		attrsJSON []byte
	)

	err := r.db.QueryRow(ctx, query, id).Scan(
		&v.ID,
		&v.ProductID,
		&v.Name,
		&v.SKU,
		&v.Price,
		&v.Stock,
		&attrsJSON,
		&v.Image,
		&v.IsDefault,
		&v.IsActive,
		&v.SKUEdited,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("variant", id)
		}
		return nil, fmt.Errorf("scan variant: %w", err)
	}

	if err := unmarshalAttrs(attrsJSON, &v.Attributes); err != nil {
		return nil, err
	}

	return &v, nil
}

// ListByProduct returns all variants of a product in insertion order. The
// order is load-bearing: default resolution falls back to the first row when
// no variant carries the default flag.
func (r *VariantRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Variant, error) {
	query := `
		SELECT id, product_id, name, sku, price, stock, attributes, image,
			   is_default, is_active, sku_edited, created_at, updated_at
		FROM product_variants
		WHERE product_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.Variant
	for rows.Next() {
		var (
			v         domain.Variant
			attrsJSON []byte
		)

		if err := rows.Scan(
			&v.ID,
			&v.ProductID,
			&v.Name,
			&v.SKU,
			&v.Price,
			&v.Stock,
			&attrsJSON,
			&v.Image,
			&v.IsDefault,
			&v.IsActive,
			&v.SKUEdited,
			&v.CreatedAt,
			&v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}

		if err := unmarshalAttrs(attrsJSON, &v.Attributes); err != nil {
			return nil, err
		}

		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}

	if variants == nil {
		variants = []domain.Variant{}
	}

	return variants, nil
}

// Update modifies an existing variant in the database.
func (r *VariantRepository) Update(ctx context.Context, v *domain.Variant) error {
	attrsJSON, err := json.Marshal(v.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}

	v.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE product_variants
		SET name = $1, sku = $2, price = $3, stock = $4, attributes = $5,
		    image = $6, is_default = $7, is_active = $8, sku_edited = $9,
		    updated_at = $10
		WHERE id = $11`

	ct, err := r.db.Exec(ctx, query,
		v.Name,
		v.SKU,
		v.Price,
		v.Stock,
		attrsJSON,
		v.Image,
		v.IsDefault,
		v.IsActive,
		v.SKUEdited,
		v.UpdatedAt,
		v.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("variant", "sku", v.SKU)
		}
		return fmt.Errorf("update variant: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("variant", v.ID)
	}

	return nil
}

// Delete removes a variant by its ID.
func (r *VariantRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM product_variants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete variant: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("variant", id)
	}

	return nil
}

// SetDefault flips the default flag to the given variant and clears it on all
// siblings within one transaction, so readers never observe zero or two
// defaults.
func (r *VariantRepository) SetDefault(ctx context.Context, productID, variantID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin set default: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	clearQuery := `
		UPDATE product_variants
		SET is_default = FALSE, updated_at = NOW()
		WHERE product_id = $1 AND is_default = TRUE`

	if _, err := tx.Exec(ctx, clearQuery, productID); err != nil {
		return fmt.Errorf("clear default flags: %w", err)
	}

	setQuery := `
		UPDATE product_variants
		SET is_default = TRUE, updated_at = NOW()
		WHERE id = $1 AND product_id = $2`

	ct, err := tx.Exec(ctx, setQuery, variantID, productID)
	if err != nil {
		return fmt.Errorf("set default flag: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("variant", variantID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit set default: %w", err)
	}

	return nil
}

// unmarshalAttrs decodes the stored jsonb attribute map, tolerating NULL.
func unmarshalAttrs(data []byte, attrs *map[string]string) error {
	if data == nil {
		return nil
	}
	if err := json.Unmarshal(data, attrs); err != nil {
		return fmt.Errorf("unmarshal attributes: %w", err)
	}
	return nil
}
