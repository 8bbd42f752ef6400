package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarhq/storefront/internal/domain"
	"github.com/bazaarhq/storefront/internal/repository"
	"github.com/bazaarhq/storefront/pkg/database"
	apperrors "github.com/bazaarhq/storefront/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupCouponRepo(t *testing.T) (*CouponRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewCouponRepository(mock)
	return repo, mock
}

func sampleCoupon() *domain.Coupon {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Coupon{
		ID:               "coupon-001",
		ShopID:           "shop-001",
		Code:             "SUMMER10",
		Description:      "10% off everything",
		Type:             domain.CouponTypePercentage,
		Value:            10,
		MaxDiscountValue: 2000,
		MinOrderValue:    1000,
		StartDate:        now,
		EndDate:          now.Add(30 * 24 * time.Hour),
		MaxUses:          100,
		MaxUsesPerUser:   1,
		CurrentUses:      42,
		IsActive:         true,
		CategoryID:       "cat-001",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func couponColumnNames() []string {
	return []string{
		"id", "shop_id", "code", "description", "type", "value",
		"max_discount_value", "min_order_value", "start_date", "end_date",
		"max_uses", "max_uses_per_user", "current_uses", "is_active",
		"category_id", "product_id", "created_at", "updated_at", "deleted_at",
	}
}

func couponRow(c *domain.Coupon) *pgxmock.Rows {
	return pgxmock.NewRows(couponColumnNames()).
		AddRow(
			c.ID, c.ShopID, c.Code, c.Description, c.Type, c.Value,
			c.MaxDiscountValue, c.MinOrderValue, c.StartDate, c.EndDate,
			c.MaxUses, c.MaxUsesPerUser, c.CurrentUses, c.IsActive,
			nullIfEmpty(c.CategoryID), nullIfEmpty(c.ProductID),
			c.CreatedAt, c.UpdatedAt, c.DeletedAt,
		)
}

func couponListRow(c *domain.Coupon, totalCount int) *pgxmock.Rows {
	return pgxmock.NewRows(append(couponColumnNames(), "total_count")).
		AddRow(
			c.ID, c.ShopID, c.Code, c.Description, c.Type, c.Value,
			c.MaxDiscountValue, c.MinOrderValue, c.StartDate, c.EndDate,
			c.MaxUses, c.MaxUsesPerUser, c.CurrentUses, c.IsActive,
			nullIfEmpty(c.CategoryID), nullIfEmpty(c.ProductID),
			c.CreatedAt, c.UpdatedAt, c.DeletedAt,
			totalCount,
		)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCouponRepository_Create_Success(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	c := sampleCoupon()

	mock.ExpectExec("INSERT INTO coupons").
		WithArgs(
			c.ID, c.ShopID, c.Code, c.Description, c.Type, c.Value,
			c.MaxDiscountValue, c.MinOrderValue, c.StartDate, c.EndDate,
			c.MaxUses, c.MaxUsesPerUser, c.CurrentUses, c.IsActive,
			nullIfEmpty(c.CategoryID), nullIfEmpty(c.ProductID),
			c.CreatedAt, c.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), c)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_Create_DuplicateCode(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	c := sampleCoupon()

	mock.ExpectExec("INSERT INTO coupons").
		WithArgs(
			c.ID, c.ShopID, c.Code, c.Description, c.Type, c.Value,
			c.MaxDiscountValue, c.MinOrderValue, c.StartDate, c.EndDate,
			c.MaxUses, c.MaxUsesPerUser, c.CurrentUses, c.IsActive,
			nullIfEmpty(c.CategoryID), nullIfEmpty(c.ProductID),
			c.CreatedAt, c.UpdatedAt,
		).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), c)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// GetByID / GetByCode
// ---------------------------------------------------------------------------

func TestCouponRepository_GetByID_Success(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	c := sampleCoupon()

	mock.ExpectQuery("SELECT .+ FROM coupons WHERE id").
		WithArgs(c.ID).
		WillReturnRows(couponRow(c))

	result, err := repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, c.ID, result.ID)
	assert.Equal(t, c.Code, result.Code)
	assert.Equal(t, c.Value, result.Value)
	assert.Equal(t, c.MaxUses, result.MaxUses)
	assert.Equal(t, "cat-001", result.CategoryID)
	assert.Empty(t, result.ProductID)
	assert.Nil(t, result.DeletedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// Soft-deleted rows still come back through GetByID so callers can tell
// deleted from never-existed.
func TestCouponRepository_GetByID_IncludesDeleted(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	c := sampleCoupon()
	deletedAt := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	c.DeletedAt = &deletedAt

	mock.ExpectQuery("SELECT .+ FROM coupons WHERE id").
		WithArgs(c.ID).
		WillReturnRows(couponRow(c))

	result, err := repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, result.DeletedAt)
	assert.Equal(t, deletedAt, *result.DeletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM coupons WHERE id").
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByID(context.Background(), "nonexistent")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_GetByCode_ExcludesDeleted(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM coupons WHERE code = \\$1 AND deleted_at IS NULL").
		WithArgs("SUMMER10").
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByCode(context.Background(), "SUMMER10")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestCouponRepository_List_WithShopFilter(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	c := sampleCoupon()
	shopID := "shop-001"

	mock.ExpectQuery("SELECT .+ count\\(\\*\\) OVER\\(\\) AS total_count.+FROM coupons").
		WithArgs(shopID, 20, 0).
		WillReturnRows(couponListRow(c, 1))

	coupons, total, err := repo.List(context.Background(), repository.CouponFilter{
		ShopID:  &shopID,
		Page:    1,
		PerPage: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, coupons, 1)
	assert.Equal(t, c.ID, coupons[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_List_EmptyPageIsNotNil(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM coupons").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(append(couponColumnNames(), "total_count")))

	coupons, total, err := repo.List(context.Background(), repository.CouponFilter{Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, coupons)
	assert.Empty(t, coupons)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

// The SET list never touches the code column.
func TestCouponRepository_Update_Success(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	c := sampleCoupon()

	mock.ExpectExec("UPDATE coupons").
		WithArgs(
			c.Description, c.Type, c.Value, c.MaxDiscountValue,
			c.MinOrderValue, c.StartDate, c.EndDate, c.MaxUses,
			c.MaxUsesPerUser, c.IsActive, nullIfEmpty(c.CategoryID),
			nullIfEmpty(c.ProductID), pgxmock.AnyArg(), c.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Update(context.Background(), c)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_Update_DeletedRowNotFound(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	c := sampleCoupon()

	mock.ExpectExec("UPDATE coupons").
		WithArgs(
			c.Description, c.Type, c.Value, c.MaxDiscountValue,
			c.MinOrderValue, c.StartDate, c.EndDate, c.MaxUses,
			c.MaxUsesPerUser, c.IsActive, nullIfEmpty(c.CategoryID),
			nullIfEmpty(c.ProductID), pgxmock.AnyArg(), c.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), c)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// SoftDelete
// ---------------------------------------------------------------------------

func TestCouponRepository_SoftDelete_Success(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE coupons").
		WithArgs("coupon-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.SoftDelete(context.Background(), "coupon-001")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_SoftDelete_AlreadyDeleted(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE coupons").
		WithArgs("coupon-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SoftDelete(context.Background(), "coupon-001")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// IncrementUsage
// ---------------------------------------------------------------------------

func TestCouponRepository_IncrementUsage_Success(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE coupons").
		WithArgs("coupon-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.IncrementUsage(context.Background(), "coupon-001")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The WHERE clause rejects the bump when the global cap is exhausted, so the
// losing side of a race gets zero rows and a conflict.
func TestCouponRepository_IncrementUsage_CapExhausted(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE coupons").
		WithArgs("coupon-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.IncrementUsage(context.Background(), "coupon-001")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// CountUsagesByUser / RecordUsage
// ---------------------------------------------------------------------------

func TestCouponRepository_CountUsagesByUser(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM coupon_usages").
		WithArgs("coupon-001", "user-001").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountUsagesByUser(context.Background(), "coupon-001", "user-001")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_RecordUsage(t *testing.T) {
	repo, mock := setupCouponRepo(t)
	defer mock.Close()

	usage := &domain.CouponUsage{
		ID:              "usage-001",
		CouponID:        "coupon-001",
		UserID:          "user-001",
		OrderID:         "order-001",
		DiscountApplied: 500,
		CreatedAt:       time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO coupon_usages").
		WithArgs(usage.ID, usage.CouponID, usage.UserID, usage.OrderID, usage.DiscountApplied, usage.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.RecordUsage(context.Background(), usage)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
