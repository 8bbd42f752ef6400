package domain

import (
	"time"
)

// Shop is a seller storefront profile.
type Shop struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	LogoURL     string    `json:"logo_url,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Profile update step names.
const (
	ShopStepProfile = "profile"
	ShopStepLogo    = "logo"
	ShopStepCover   = "cover"
)

// StepResult records the outcome of one step of a multi-step update. Steps
// that succeed are never rolled back when a later step fails.
type StepResult struct {
	Step  string `json:"step"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// AllOK reports whether every step succeeded.
func AllOK(results []StepResult) bool {
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return true
}
