package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/bazaarhq/storefront/internal/domain"
	"github.com/bazaarhq/storefront/internal/event"
	"github.com/bazaarhq/storefront/internal/repository"
	apperrors "github.com/bazaarhq/storefront/pkg/errors"
)

// VariantService implements the business logic for product variants.
// Mutations are serialized per variant id so two surfaces racing on the same
// variant (set-default vs delete) cannot interleave; reads of a product's
// variant list are coalesced through singleflight.
type VariantService struct {
	variants repository.VariantRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger

	mutations *keyedMutex
	fetches   singleflight.Group

	// rng feeds SKU generation; rand.Rand is not goroutine safe.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewVariantService creates a new variant service. The random source is
// injected so tests can pass a seeded one.
func NewVariantService(
	variants repository.VariantRepository,
	products repository.ProductRepository,
	producer *event.Producer,
	logger *slog.Logger,
	rng *rand.Rand,
) *VariantService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &VariantService{
		variants:  variants,
		products:  products,
		producer:  producer,
		logger:    logger,
		mutations: newKeyedMutex(),
		rng:       rng,
	}
}

// CreateVariantInput holds the parameters for creating a variant.
type CreateVariantInput struct {
	ProductID  string
	Name       string
	SKU        string
	Price      *int64
	Stock      *int
	Attributes map[string]string
	Image      string
	IsDefault  bool
}

// UpdateVariantInput holds the parameters for updating a variant. Nil fields
// are left unchanged. A non-nil SKU marks the variant as manually edited,
// which suppresses SKU regeneration on later name or attribute changes.
type UpdateVariantInput struct {
	Name       *string
	SKU        *string
	Price      *int64
	Stock      *int
	Attributes map[string]string
	Image      *string
	IsActive   *bool
}

// generateSKU runs the pure SKU derivation under the rng lock.
func (s *VariantService) generateSKU(name string, attributes map[string]string, productID string) string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return domain.GenerateSKU(name, attributes, productID, s.rng)
}

// CreateVariant creates a new variant. An empty SKU is derived from the name,
// attributes, and product id; a caller-supplied SKU counts as manually edited.
func (s *VariantService) CreateVariant(ctx context.Context, input *CreateVariantInput) (*domain.Variant, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("variant name is required")
	}
	if input.Price != nil && *input.Price <= 0 {
		return nil, apperrors.InvalidInput("price must be positive")
	}
	if input.Stock != nil && *input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product for variant: %w", err)
	}

	sku := input.SKU
	skuEdited := sku != ""
	if sku == "" {
		sku = s.generateSKU(input.Name, input.Attributes, product.ID)
	}

	now := time.Now().UTC()
	variant := &domain.Variant{
		ID:         uuid.New().String(),
		ProductID:  product.ID,
		Name:       input.Name,
		SKU:        sku,
		Price:      input.Price,
		Stock:      input.Stock,
		Attributes: input.Attributes,
		Image:      input.Image,
		IsDefault:  false,
		IsActive:   true,
		SKUEdited:  skuEdited,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.variants.Create(ctx, variant); err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}

	if input.IsDefault {
		if err := s.variants.SetDefault(ctx, product.ID, variant.ID); err != nil {
			return nil, fmt.Errorf("set default on create: %w", err)
		}
		variant.IsDefault = true
	}

	s.logger.InfoContext(ctx, "variant created",
		slog.String("variant_id", variant.ID),
		slog.String("product_id", product.ID),
		slog.String("sku", variant.SKU),
	)

	return variant, nil
}

// GetVariant retrieves a variant by its ID.
func (s *VariantService) GetVariant(ctx context.Context, id string) (*domain.Variant, error) {
	variant, err := s.variants.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get variant by id: %w", err)
	}
	return variant, nil
}

// ListVariants returns all variants of a product in fetch order. Concurrent
// requests for the same product share one repository fetch. The fetch runs
// detached from the leader's cancellation so one caller giving up does not
// fail every coalesced request.
func (s *VariantService) ListVariants(ctx context.Context, productID string) ([]domain.Variant, error) {
	v, err, _ := s.fetches.Do(productID, func() (any, error) {
		return s.variants.ListByProduct(context.WithoutCancel(ctx), productID)
	})
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	return v.([]domain.Variant), nil
}

// ResolveDefault returns the variant buyers see first for a product, or nil
// when the product has no variants.
func (s *VariantService) ResolveDefault(ctx context.Context, productID string) (*domain.Variant, error) {
	variants, err := s.ListVariants(ctx, productID)
	if err != nil {
		return nil, err
	}
	return domain.ResolveDefault(variants), nil
}

// UpdateVariant applies partial updates to a variant. The SKU is regenerated
// when the name or attributes change, unless the variant's SKU was ever
// manually edited.
func (s *VariantService) UpdateVariant(ctx context.Context, id string, input *UpdateVariantInput) (*domain.Variant, error) {
	s.mutations.Lock(id)
	defer s.mutations.Unlock(id)

	variant, err := s.variants.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get variant for update: %w", err)
	}

	identityChanged := false

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("variant name must not be empty")
		}
		if *input.Name != variant.Name {
			identityChanged = true
		}
		variant.Name = *input.Name
	}

	if input.Attributes != nil {
		identityChanged = true
		variant.Attributes = input.Attributes
	}

	if input.SKU != nil {
		if *input.SKU == "" {
			return nil, apperrors.InvalidInput("sku must not be empty")
		}
		variant.SKU = *input.SKU
		variant.SKUEdited = true
	} else if identityChanged && !variant.SKUEdited {
		variant.SKU = s.generateSKU(variant.Name, variant.Attributes, variant.ProductID)
	}

	if input.Price != nil {
		if *input.Price <= 0 {
			return nil, apperrors.InvalidInput("price must be positive")
		}
		variant.Price = input.Price
	}

	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, apperrors.InvalidInput("stock must not be negative")
		}
		variant.Stock = input.Stock
	}

	if input.Image != nil {
		variant.Image = *input.Image
	}

	if input.IsActive != nil {
		variant.IsActive = *input.IsActive
	}

	if err := s.variants.Update(ctx, variant); err != nil {
		return nil, fmt.Errorf("update variant: %w", err)
	}

	s.logger.InfoContext(ctx, "variant updated",
		slog.String("variant_id", variant.ID),
		slog.String("sku", variant.SKU),
	)

	return variant, nil
}

// DeleteVariant removes a variant. When the deleted variant was the default,
// the flag falls back to fetch-order resolution on the remaining siblings.
func (s *VariantService) DeleteVariant(ctx context.Context, id string) error {
	s.mutations.Lock(id)
	defer s.mutations.Unlock(id)

	variant, err := s.variants.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get variant for delete: %w", err)
	}

	if err := s.variants.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete variant: %w", err)
	}

	s.logger.InfoContext(ctx, "variant deleted",
		slog.String("variant_id", id),
		slog.String("product_id", variant.ProductID),
	)

	return nil
}

// SetDefaultVariant flags the given variant as the product's default and
// clears the flag on all siblings. The result always has exactly one default.
func (s *VariantService) SetDefaultVariant(ctx context.Context, productID, variantID string) ([]domain.Variant, error) {
	s.mutations.Lock(variantID)
	defer s.mutations.Unlock(variantID)

	variant, err := s.variants.GetByID(ctx, variantID)
	if err != nil {
		return nil, fmt.Errorf("get variant for set default: %w", err)
	}
	if variant.ProductID != productID {
		return nil, apperrors.NotFound("variant", variantID)
	}

	if err := s.variants.SetDefault(ctx, productID, variantID); err != nil {
		return nil, fmt.Errorf("set default variant: %w", err)
	}

	if err := s.producer.PublishVariantDefaultSet(ctx, productID, variantID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish variant.default_set event",
			slog.String("variant_id", variantID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "default variant set",
		slog.String("product_id", productID),
		slog.String("variant_id", variantID),
	)

	variants, err := s.variants.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants after set default: %w", err)
	}

	return variants, nil
}
