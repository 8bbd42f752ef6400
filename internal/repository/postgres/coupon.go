package postgres

import (
	"context"
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

// CouponRepository implements repository.CouponRepository using PostgreSQL.
type CouponRepository struct {
	db database.DBTX
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(db database.DBTX) *CouponRepository {
	return &CouponRepository{db: db}
}

const couponColumns = `id, shop_id, code, description, type, value,
	   max_discount_value, min_order_value, start_date, end_date,
	   max_uses, max_uses_per_user, current_uses, is_active,
	   category_id, product_id, created_at, updated_at, deleted_at`

// Create inserts a new coupon into the database.
func (r *CouponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	query := `
		INSERT INTO coupons (
			id, shop_id, code, description, type, value, max_discount_value,
			min_order_value, start_date, end_date, max_uses, max_uses_per_user,
			current_uses, is_active, category_id, product_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.ShopID,
		c.Code,
		c.Description,
		c.Type,
		c.Value,
		c.MaxDiscountValue,
		c.MinOrderValue,
		c.StartDate,
		c.EndDate,
		c.MaxUses,
		c.MaxUsesPerUser,
		c.CurrentUses,
		c.IsActive,
		nullIfEmpty(c.CategoryID),
		nullIfEmpty(c.ProductID),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("coupon", "code", c.Code)
		}
		return fmt.Errorf("insert coupon: %w", err)
	}

	return nil
}

// GetByID retrieves a coupon by its ID, including soft-deleted rows so that
// callers can distinguish deleted from never-existed.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	return r.scanCoupon(ctx, query, id)
}

// GetByCode retrieves a non-deleted coupon by its code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 AND deleted_at IS NULL`
	return r.scanCoupon(ctx, query, code)
}

// List returns coupons matching the given filter with the total count.
func (r *CouponRepository) List(ctx context.Context, filter repository.CouponFilter) ([]domain.Coupon, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}

	if filter.ShopID != nil {
		conditions = append(conditions, fmt.Sprintf("shop_id = $%d", argIndex))
		args = append(args, *filter.ShopID)
		argIndex++
	}

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.IsActive)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM coupons
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		couponColumns, whereClause, argIndex, argIndex+1,
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
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var (
		coupons    []domain.Coupon
		totalCount int
	)

	for rows.Next() {
		var (
			c          domain.Coupon
			categoryID *string
			productID  *string
		)

		if err := rows.Scan(
			&c.ID,
			&c.ShopID,
			&c.Code,
			&c.Description,
			&c.Type,
			&c.Value,
			&c.MaxDiscountValue,
			&c.MinOrderValue,
			&c.StartDate,
			&c.EndDate,
			&c.MaxUses,
			&c.MaxUsesPerUser,
			&c.CurrentUses,
			&c.IsActive,
			&categoryID,
			&productID,
			&c.CreatedAt,
			&c.UpdatedAt,
			&c.DeletedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan coupon row: %w", err)
		}

		if categoryID != nil {
			c.CategoryID = *categoryID
		}
		if productID != nil {
			c.ProductID = *productID
		}

		coupons = append(coupons, c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate coupon rows: %w", err)
	}

	if coupons == nil {
		coupons = []domain.Coupon{}
	}

	return coupons, totalCount, nil
}

// Update modifies an existing coupon. The code column is deliberately absent
// from the SET list: codes are immutable after creation.
func (r *CouponRepository) Update(ctx context.Context, c *domain.Coupon) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE coupons
		SET description = $1, type = $2, value = $3, max_discount_value = $4,
		    min_order_value = $5, start_date = $6, end_date = $7, max_uses = $8,
		    max_uses_per_user = $9, is_active = $10, category_id = $11,
		    product_id = $12, updated_at = $13
		WHERE id = $14 AND deleted_at IS NULL`

	ct, err := r.db.Exec(ctx, query,
		c.Description,
		c.Type,
		c.Value,
		c.MaxDiscountValue,
		c.MinOrderValue,
		c.StartDate,
		c.EndDate,
		c.MaxUses,
		c.MaxUsesPerUser,
		c.IsActive,
		nullIfEmpty(c.CategoryID),
		nullIfEmpty(c.ProductID),
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("coupon", c.ID)
	}

	return nil
}

// SoftDelete marks a coupon deleted without removing the row.
func (r *CouponRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE coupons
		SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete coupon: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("coupon", id)
	}

	return nil
}

// IncrementUsage atomically bumps current_uses, honoring the global cap in
// the same statement so two concurrent redemptions cannot both take the last
// slot.
func (r *CouponRepository) IncrementUsage(ctx context.Context, id string) error {
	query := `
		UPDATE coupons
		SET current_uses = current_uses + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		  AND (max_uses = 0 OR current_uses < max_uses)`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.Conflict("coupon usage limit reached")
	}

	return nil
}

// CountUsagesByUser returns how many times a user has redeemed a coupon.
func (r *CouponRepository) CountUsagesByUser(ctx context.Context, couponID, userID string) (int, error) {
	query := `SELECT count(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2`

	var count int
	if err := r.db.QueryRow(ctx, query, couponID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count coupon usages: %w", err)
	}

	return count, nil
}

// RecordUsage records a coupon redemption entry.
func (r *CouponRepository) RecordUsage(ctx context.Context, usage *domain.CouponUsage) error {
	query := `
		INSERT INTO coupon_usages (id, coupon_id, user_id, order_id, discount_applied, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		usage.ID,
		usage.CouponID,
		usage.UserID,
		usage.OrderID,
		usage.DiscountApplied,
		usage.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record coupon usage: %w", err)
	}

	return nil
}

// scanCoupon executes a query expected to return a single coupon row. The
// first argument is the identifier used in the not-found error.
func (r *CouponRepository) scanCoupon(ctx context.Context, query string, args ...any) (*domain.Coupon, error) {
	var (
		c          domain.Coupon
		categoryID *string
		productID  *string
	)

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&c.ID,
		&c.ShopID,
		&c.Code,
		&c.Description,
		&c.Type,
		&c.Value,
		&c.MaxDiscountValue,
		&c.MinOrderValue,
		&c.StartDate,
		&c.EndDate,
		&c.MaxUses,
		&c.MaxUsesPerUser,
		&c.CurrentUses,
		&c.IsActive,
		&categoryID,
		&productID,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("coupon", fmt.Sprintf("%v", args[0]))
		}
		return nil, fmt.Errorf("scan coupon: %w", err)
	}

	if categoryID != nil {
		c.CategoryID = *categoryID
	}
	if productID != nil {
		c.ProductID = *productID
	}

	return &c, nil
}

// nullIfEmpty maps an empty string to SQL NULL.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
