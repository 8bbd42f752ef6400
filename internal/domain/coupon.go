package domain

import (
	"strings"
	"time"
)

// Coupon type constants.
const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
)

// CouponStatus is derived at read time; transitions are never stored.
type CouponStatus string

// Coupon statuses.
const (
	CouponStatusDisabled  CouponStatus = "disabled"
	CouponStatusScheduled CouponStatus = "scheduled"
	CouponStatusExpired   CouponStatus = "expired"
	CouponStatusActive    CouponStatus = "active"
)

// Coupon is a seller discount. Value is a percentage (0,100] for percentage
// coupons and a minor-unit amount for fixed ones. MaxUses of 0 means
// unlimited. CategoryID and ProductID scope the coupon; ProductID is only
// meaningful when CategoryID is also set.
type Coupon struct {
	ID               string     `json:"id"`
	ShopID           string     `json:"shop_id"`
	Code             string     `json:"code"`
	Description      string     `json:"description"`
	Type             string     `json:"type"`
	Value            int64      `json:"value"`
	MaxDiscountValue int64      `json:"max_discount_value,omitempty"`
	MinOrderValue    int64      `json:"min_order_value"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          time.Time  `json:"end_date"`
	MaxUses          int        `json:"max_uses"`
	MaxUsesPerUser   int        `json:"max_uses_per_user"`
	CurrentUses      int        `json:"current_uses"`
	IsActive         bool       `json:"is_active"`
	CategoryID       string     `json:"category_id,omitempty"`
	ProductID        string     `json:"product_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
}

// CouponUsage records a single redemption of a coupon by a user.
type CouponUsage struct {
	ID              string    `json:"id"`
	CouponID        string    `json:"coupon_id"`
	UserID          string    `json:"user_id"`
	OrderID         string    `json:"order_id"`
	DiscountApplied int64     `json:"discount_applied"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsValidCouponType checks whether the given type string is a valid coupon type.
func IsValidCouponType(t string) bool {
	return t == CouponTypePercentage || t == CouponTypeFixed
}

// FieldErrors maps a field name to its validation message. Empty means valid.
type FieldErrors map[string]string

// ProductLookup resolves a product by id from the loaded catalog. A nil
// product with a nil error means the product is not in the catalog.
type ProductLookup func(id string) *Product

// CouponDraft is the validation input for create and edit. IsEdit controls
// the code rules: code is checked on create and ignored on edit, where it is
// immutable.
type CouponDraft struct {
	Code           string
	Description    string
	Type           string
	Value          int64
	StartDate      time.Time
	EndDate        time.Time
	MaxUsesPerUser int
	CategoryID     string
	ProductID      string
	IsEdit         bool
}

// Validate evaluates every rule independently and returns all failures
// together. The cross-field product/category check runs only when both scope
// fields are set and the product resolves from the lookup; a product missing
// from the catalog skips the check rather than failing it.
func (d CouponDraft) Validate(lookup ProductLookup) FieldErrors {
	errs := FieldErrors{}

	if !d.IsEdit {
		code := strings.TrimSpace(d.Code)
		if code == "" {
			errs["code"] = "code is required"
		} else if len(code) < 3 {
			errs["code"] = "code must be at least 3 characters"
		}
	}

	if strings.TrimSpace(d.Description) == "" {
		errs["description"] = "description is required"
	}

	if d.Value <= 0 {
		errs["value"] = "value must be greater than 0"
	} else if d.Type == CouponTypePercentage && d.Value > 100 {
		errs["value"] = "percentage value must not exceed 100"
	}

	if d.StartDate.IsZero() {
		errs["start_date"] = "start date is required"
	}
	if d.EndDate.IsZero() {
		errs["end_date"] = "end date is required"
	} else if !d.StartDate.IsZero() && dateOnly(d.EndDate).Before(dateOnly(d.StartDate)) {
		errs["end_date"] = "end date must not be before start date"
	}

	if d.MaxUsesPerUser < 0 {
		errs["max_uses_per_user"] = "max uses per user must not be negative"
	}

	if d.CategoryID != "" && d.ProductID != "" && lookup != nil {
		if product := lookup(d.ProductID); product != nil {
			if !product.InCategory(d.CategoryID) {
				errs["product_id"] = "product does not belong to selected category"
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// dateOnly truncates to date precision so coupons spanning a single calendar
// day are valid. Both ends normalize to UTC first, so a start/end pair sent
// in different zones compares on one calendar.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StatusAt derives the coupon status at the given instant. Precedence:
// disabled wins over the scheduling window, scheduled over expired.
func (c *Coupon) StatusAt(now time.Time) CouponStatus {
	if !c.IsActive {
		return CouponStatusDisabled
	}
	if now.Before(c.StartDate) {
		return CouponStatusScheduled
	}
	if now.After(c.EndDate) {
		return CouponStatusExpired
	}
	return CouponStatusActive
}

// DiscountFor computes the discount in minor units for an order total.
// Percentage coupons are capped by MaxDiscountValue when set; fixed coupons
// never exceed the order total.
func (c *Coupon) DiscountFor(orderTotal int64) int64 {
	if orderTotal <= 0 {
		return 0
	}
	switch c.Type {
	case CouponTypePercentage:
		discount := orderTotal * c.Value / 100
		if c.MaxDiscountValue > 0 && discount > c.MaxDiscountValue {
			discount = c.MaxDiscountValue
		}
		return discount
	case CouponTypeFixed:
		if c.Value > orderTotal {
			return orderTotal
		}
		return c.Value
	default:
		return 0
	}
}

// UsesRemaining reports whether the global usage cap still allows a
// redemption. A cap of 0 is unlimited.
func (c *Coupon) UsesRemaining() bool {
	return c.MaxUses == 0 || c.CurrentUses < c.MaxUses
}
