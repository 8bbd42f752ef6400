package repository

import (
	"context"

	"github.com/bazaarhq/storefront/internal/domain"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	ShopID     *string
	CategoryID *string
	Status     *string
	Page       int
	PerPage    int
}

// CouponFilter defines filter criteria for listing coupons. Deleted coupons
// are excluded unless IncludeDeleted is set.
type CouponFilter struct {
	ShopID         *string
	CategoryID     *string
	IsActive       *bool
	IncludeDeleted bool
	Page           int
	PerPage        int
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns products matching the given filter along with the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// Update modifies an existing product in the store.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product by its ID.
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines the interface for category persistence operations.
type CategoryRepository interface {
	// GetByID retrieves a category by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Category, error)

	// List returns all categories.
	List(ctx context.Context) ([]domain.Category, error)

	// Create inserts a new category into the store.
	Create(ctx context.Context, category *domain.Category) error
}

// VariantRepository defines the interface for variant persistence operations.
type VariantRepository interface {
	// Create inserts a new variant into the store.
	Create(ctx context.Context, variant *domain.Variant) error

	// GetByID retrieves a variant by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Variant, error)

	// ListByProduct returns all variants of a product in insertion order.
	ListByProduct(ctx context.Context, productID string) ([]domain.Variant, error)

	// Update modifies an existing variant in the store.
	Update(ctx context.Context, variant *domain.Variant) error

	// Delete removes a variant by its ID.
	Delete(ctx context.Context, id string) error

	// SetDefault atomically flags the given variant as default and clears the
	// flag on all siblings of the same product.
	SetDefault(ctx context.Context, productID, variantID string) error
}

// CouponRepository defines the interface for coupon persistence operations.
type CouponRepository interface {
	// Create inserts a new coupon into the store.
	Create(ctx context.Context, coupon *domain.Coupon) error

	// GetByID retrieves a coupon by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Coupon, error)

	// GetByCode retrieves a non-deleted coupon by its code.
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// List returns coupons matching the given filter along with the total count.
	List(ctx context.Context, filter CouponFilter) ([]domain.Coupon, int, error)

	// Update modifies an existing coupon in the store.
	Update(ctx context.Context, coupon *domain.Coupon) error

	// SoftDelete marks a coupon deleted without removing the row.
	SoftDelete(ctx context.Context, id string) error

	// IncrementUsage atomically increments current_uses, failing when the
	// global cap is exhausted.
	IncrementUsage(ctx context.Context, id string) error

	// CountUsagesByUser returns how many times a user has redeemed a coupon.
	CountUsagesByUser(ctx context.Context, couponID, userID string) (int, error)

	// RecordUsage records a coupon redemption entry.
	RecordUsage(ctx context.Context, usage *domain.CouponUsage) error
}

// ShopRepository defines the interface for shop persistence operations.
type ShopRepository interface {
	// GetByID retrieves a shop by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Shop, error)

	// Create inserts a new shop into the store.
	Create(ctx context.Context, shop *domain.Shop) error

	// Update modifies an existing shop in the store.
	Update(ctx context.Context, shop *domain.Shop) error
}

// CartRepository defines the interface for cart persistence operations.
type CartRepository interface {
	// GetByUserID retrieves a cart by user ID.
	GetByUserID(ctx context.Context, userID string) (*domain.Cart, error)

	// Save persists a cart unconditionally.
	Save(ctx context.Context, cart *domain.Cart) error

	// SaveIfVersion persists a cart only when the stored version still equals
	// expectedVersion, bumping the version on success. A mismatch returns a
	// conflict error.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int64) error

	// Delete removes a cart by user ID.
	Delete(ctx context.Context, userID string) error
}
