package domain

import (
	"encoding/json"
	"time"
)

// Product status constants.
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
	ProductStatusDeleted  = "deleted"
)

// Product is a catalog item owned by a shop. Price is in minor currency
// units. CategoryRefs holds the canonical category ids regardless of how the
// source payload encoded them.
type Product struct {
	ID           string       `json:"id"`
	ShopID       string       `json:"shop_id"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	Description  string       `json:"description,omitempty"`
	Price        int64        `json:"price"`
	Stock        int          `json:"stock"`
	Thumbnail    string       `json:"thumbnail,omitempty"`
	CategoryRefs CategoryRefs `json:"category_id"`
	Status       string       `json:"status"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// productAlias avoids UnmarshalJSON recursion.
type productAlias Product

type productWire struct {
	productAlias
	RawCategoryID json.RawMessage `json:"category_id"`
}

// UnmarshalJSON decodes a product, canonicalizing the polymorphic category_id
// field (string, object, or array of either) into CategoryRefs.
func (p *Product) UnmarshalJSON(data []byte) error {
	var w productWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Product(w.productAlias)
	p.CategoryRefs = ParseCategoryRefs(w.RawCategoryID)
	return nil
}

// InCategory reports whether the product belongs to the given category.
func (p *Product) InCategory(categoryID string) bool {
	return p.CategoryRefs.Contains(categoryID)
}

// IsValidProductStatus checks whether the given status string is valid.
func IsValidProductStatus(status string) bool {
	switch status {
	case ProductStatusActive, ProductStatusInactive, ProductStatusDeleted:
		return true
	}
	return false
}
