package domain

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"
)

// Variant is a purchasable specialization of a product. Price overrides the
// product price when set; Stock of nil means the variant does not track stock.
type Variant struct {
	ID         string            `json:"id"`
	ProductID  string            `json:"product_id"`
	Name       string            `json:"name"`
	SKU        string            `json:"sku"`
	Price      *int64            `json:"price,omitempty"`
	Stock      *int              `json:"stock,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Image      string            `json:"image,omitempty"`
	IsDefault  bool              `json:"is_default"`
	IsActive   bool              `json:"is_active"`
	SKUEdited  bool              `json:"sku_edited"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ResolveDefault picks the variant a buyer sees first: the first one flagged
// default, else the first in fetch order. Order is preserved, never sorted.
// Returns nil for an empty list.
func ResolveDefault(variants []Variant) *Variant {
	for i := range variants {
		if variants[i].IsDefault {
			return &variants[i]
		}
	}
	if len(variants) > 0 {
		return &variants[0]
	}
	return nil
}

// SetDefault returns a copy of variants with exactly the matching variant
// flagged default and the flag cleared on all siblings. An unknown id yields
// an unchanged copy; callers decide whether that is an error.
func SetDefault(variants []Variant, variantID string) []Variant {
	found := false
	for i := range variants {
		if variants[i].ID == variantID {
			found = true
			break
		}
	}
	out := make([]Variant, len(variants))
	copy(out, variants)
	if !found {
		return out
	}
	for i := range out {
		out[i].IsDefault = out[i].ID == variantID
	}
	return out
}

// EffectivePrice returns the unit price for a product/variant pair: the
// variant price when one is selected and carries a price, else the product
// base price.
func EffectivePrice(product *Product, variant *Variant) int64 {
	if variant != nil && variant.Price != nil {
		return *variant.Price
	}
	return product.Price
}

// CanIncrement reports whether one more unit of the variant fits within its
// stock. Variants without tracked stock never gate.
func CanIncrement(variant *Variant, currentQty int) bool {
	if variant == nil || variant.Stock == nil {
		return true
	}
	return currentQty+1 <= *variant.Stock
}

// GenerateSKU derives a SKU from the variant name, attributes, and owning
// product id. The random source is injected so callers control determinism.
// Regeneration is structurally idempotent but not value-stable: the trailing
// sequence is always fresh.
func GenerateSKU(name string, attributes map[string]string, productID string, rng *rand.Rand) string {
	var parts []string

	if prefix := skuPrefix(name); prefix != "" {
		parts = append(parts, prefix)
	}

	attrParts := skuAttributeParts(attributes, rng)
	parts = append(parts, attrParts...)

	if len(productID) >= 4 {
		parts = append(parts, strings.ToUpper(productID[len(productID)-4:]))
	} else {
		parts = append(parts, fmt.Sprintf("%04d", rng.Intn(10000)))
	}

	parts = append(parts, fmt.Sprintf("%03d", rng.Intn(1000)))

	return strings.Join(parts, "-")
}

// skuPrefix takes the uppercase initials of the first one or two words.
func skuPrefix(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return ""
	}
	if len(words) > 2 {
		words = words[:2]
	}
	var b strings.Builder
	for _, w := range words {
		for _, r := range w {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(unicode.ToUpper(r))
				break
			}
		}
	}
	return b.String()
}

// skuAttributeParts prefers color and size abbreviations, falls back to the
// first other attribute, and finally to a random 3-char token.
func skuAttributeParts(attributes map[string]string, rng *rand.Rand) []string {
	var parts []string
	if v, ok := attrValue(attributes, "color"); ok {
		parts = append(parts, abbreviate(v))
	}
	if v, ok := attrValue(attributes, "size"); ok {
		parts = append(parts, abbreviate(v))
	}
	if len(parts) > 0 {
		return parts
	}

	for _, v := range attributes {
		if strings.TrimSpace(v) == "" {
			continue
		}
		return []string{abbreviate(v)}
	}

	return []string{randomToken(3, rng)}
}

func attrValue(attributes map[string]string, key string) (string, bool) {
	for k, v := range attributes {
		if strings.EqualFold(k, key) && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}

// abbreviate keeps up to the first three alphanumeric characters, uppercased.
func abbreviate(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() >= 3 {
				break
			}
		}
	}
	return b.String()
}

const skuAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomToken(n int, rng *rand.Rand) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = skuAlphabet[rng.Intn(len(skuAlphabet))]
	}
	return string(b)
}
