package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bazaarhq/storefront/internal/domain"
	"github.com/bazaarhq/storefront/internal/repository"
	"github.com/bazaarhq/storefront/pkg/database"
	apperrors "github.com/bazaarhq/storefront/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
// Category references are stored canonicalized as a jsonb array of id strings;
// shape sniffing happens once at ingestion, never here.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	refsJSON, err := json.Marshal(p.CategoryRefs)
	if err != nil {
		return fmt.Errorf("marshal category_refs: %w", err)
	}

	query := `
		INSERT INTO products (
			id, shop_id, name, slug, description, price, stock, thumbnail,
			category_refs, status, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.Exec(ctx, query,
		p.ID,
		p.ShopID,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.Stock,
		p.Thumbnail,
		refsJSON,
		p.Status,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, shop_id, name, slug, description, price, stock, thumbnail,
			   category_refs, status, is_active, created_at, updated_at
		FROM products
		WHERE id = $1 AND status != 'deleted'`

	var (
		p        domain.Product
		refsJSON []byte
	)

	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.ShopID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.Thumbnail,
		&refsJSON,
		&p.Status,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	if err := unmarshalRefs(refsJSON, &p.CategoryRefs); err != nil {
		return nil, err
	}

	return &p, nil
}

// List returns products matching the given filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions = []string{"status != 'deleted'"}
		args       []any
		argIndex   = 1
	)

	if filter.ShopID != nil {
		conditions = append(conditions, fmt.Sprintf("shop_id = $%d", argIndex))
		args = append(args, *filter.ShopID)
		argIndex++
	}

	if filter.CategoryID != nil {
		// jsonb containment against the canonical ref array.
		conditions = append(conditions, fmt.Sprintf("category_refs @> $%d", argIndex))
		refJSON, err := json.Marshal([]string{*filter.CategoryID})
		if err != nil {
			return nil, 0, fmt.Errorf("marshal category filter: %w", err)
		}
		args = append(args, refJSON)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT id, shop_id, name, slug, description, price, stock, thumbnail,
			   category_refs, status, is_active, created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM products
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "), argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)

	for rows.Next() {
		var (
			p        domain.Product
			refsJSON []byte
		)

		if err := rows.Scan(
			&p.ID,
			&p.ShopID,
			&p.Name,
			&p.Slug,
			&p.Description,
			&p.Price,
			&p.Stock,
			&p.Thumbnail,
			&refsJSON,
			&p.Status,
			&p.IsActive,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}

		if err := unmarshalRefs(refsJSON, &p.CategoryRefs); err != nil {
			return nil, 0, err
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, totalCount, nil
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	refsJSON, err := json.Marshal(p.CategoryRefs)
	if err != nil {
		return fmt.Errorf("marshal category_refs: %w", err)
	}

	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, price = $4, stock = $5,
		    thumbnail = $6, category_refs = $7, status = $8, is_active = $9,
		    updated_at = $10
		WHERE id = $11 AND status != 'deleted'`

	ct, err := r.db.Exec(ctx, query,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.Stock,
		p.Thumbnail,
		refsJSON,
		p.Status,
		p.IsActive,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// Delete soft-deletes a product by flipping its status.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE products
		SET status = 'deleted', is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND status != 'deleted'`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// unmarshalRefs decodes the stored jsonb ref array, tolerating NULL.
func unmarshalRefs(data []byte, refs *domain.CategoryRefs) error {
	if data == nil {
		*refs = domain.CategoryRefs{}
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("unmarshal category_refs: %w", err)
	}
	*refs = domain.CategoryRefs(ids)
	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
