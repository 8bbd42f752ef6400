package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// Category is a flat catalog category. No nesting.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryRefs is the canonical set of category ids a product belongs to.
// Upstream feeds encode the reference field in four shapes (a bare id string,
// an object carrying _id or id, or an array of either); ParseCategoryRefs
// collapses all of them into this one form at the ingestion boundary so
// nothing downstream ever sniffs shapes again.
type CategoryRefs []string

// Contains reports whether the set includes the given category id.
func (r CategoryRefs) Contains(id string) bool {
	if id == "" {
		return false
	}
	for _, ref := range r {
		if ref == id {
			return true
		}
	}
	return false
}

// ParseCategoryRefs normalizes a raw category reference field into canonical
// ids. It is total: malformed or unexpected input yields an empty set, never
// an error. Numeric ids are coerced to their decimal string form.
func ParseCategoryRefs(raw json.RawMessage) CategoryRefs {
	if len(raw) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return CategoryRefs{t}
	case map[string]any:
		if id := idFromObject(t); id != "" {
			return CategoryRefs{id}
		}
		return nil
	case []any:
		refs := make(CategoryRefs, 0, len(t))
		for _, el := range t {
			switch e := el.(type) {
			case string:
				if e != "" {
					refs = append(refs, e)
				}
			case map[string]any:
				if id := idFromObject(e); id != "" {
					refs = append(refs, id)
				}
			}
		}
		if len(refs) == 0 {
			return nil
		}
		return refs
	default:
		return nil
	}
}

// BelongsToCategory reports whether a raw category reference field, in any of
// its wire shapes, includes the target category id.
func BelongsToCategory(raw json.RawMessage, targetID string) bool {
	return ParseCategoryRefs(raw).Contains(targetID)
}

// idFromObject extracts _id or id from a decoded JSON object, preferring _id.
func idFromObject(obj map[string]any) string {
	for _, key := range []string{"_id", "id"} {
		switch id := obj[key].(type) {
		case string:
			if id != "" {
				return id
			}
		case float64:
			return strconv.FormatFloat(id, 'f', -1, 64)
		}
	}
	return ""
}
