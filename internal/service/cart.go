package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bazaarhq/storefront/internal/domain"
	"github.com/bazaarhq/storefront/internal/event"
	"github.com/bazaarhq/storefront/internal/repository"
	apperrors "github.com/bazaarhq/storefront/pkg/errors"
)

// CartService implements the business logic for cart operations. Unit prices
// are resolved server-side from the catalog at add time; concurrent writes to
// the same cart are detected by optimistic versioning and surface as
// conflicts for the client to retry.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	variants repository.VariantRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	variants repository.VariantRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		variants: variants,
		producer: producer,
		logger:   logger,
	}
}

// AddItemInput holds the parameters for adding an item to a cart.
type AddItemInput struct {
	UserID    string
	ProductID string
	VariantID string
	Quantity  int
}

// UpdateItemInput holds the parameters for changing a line's quantity.
// Quantity zero removes the line.
type UpdateItemInput struct {
	UserID   string
	ItemID   string
	Quantity int
}

// GetCart retrieves a user's cart.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// CreateCart creates an empty cart for a user. An existing cart is returned
// as-is rather than replaced.
func (s *CartService) CreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	existing, err := s.carts.GetByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing cart: %w", err)
	}

	now := time.Now().UTC()
	cart := &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []domain.CartItem{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save new cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart created",
		slog.String("cart_id", cart.ID),
		slog.String("user_id", userID),
	)

	return cart, nil
}

// AddItem adds a product line to the user's cart. A product that has variants
// requires an explicit variant selection; silently defaulting would risk
// charging the wrong price. The merged quantity of new and existing lines
// must fit within the variant's stock.
func (s *CartService) AddItem(ctx context.Context, input *AddItemInput) (*domain.Cart, error) {
	if input.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product for cart add: %w", err)
	}

	variants, err := s.variants.ListByProduct(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("list variants for cart add: %w", err)
	}

	var selected *domain.Variant
	if len(variants) > 0 {
		if input.VariantID == "" {
			return nil, apperrors.InvalidInput("a variant must be selected for this product")
		}
		for i := range variants {
			if variants[i].ID == input.VariantID {
				selected = &variants[i]
				break
			}
		}
		if selected == nil {
			return nil, apperrors.NotFound("variant", input.VariantID)
		}
	} else if input.VariantID != "" {
		return nil, apperrors.InvalidInput("product has no variants")
	}

	cart, err := s.carts.GetByUserID(ctx, input.UserID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("get cart for add: %w", err)
		}
		now := time.Now().UTC()
		cart = &domain.Cart{
			ID:        uuid.New().String(),
			UserID:    input.UserID,
			Items:     []domain.CartItem{},
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	newQty := input.Quantity
	idx := cart.FindItemIndex(input.ProductID, input.VariantID)
	if idx >= 0 {
		newQty += cart.Items[idx].Quantity
	}

	if selected != nil && selected.Stock != nil && newQty > *selected.Stock {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity %d exceeds available stock %d", newQty, *selected.Stock))
	}

	unitPrice := domain.EffectivePrice(product, selected)

	var item *domain.CartItem
	if idx >= 0 {
		cart.Items[idx].Quantity = newQty
		cart.Items[idx].UnitPrice = unitPrice
		item = &cart.Items[idx]
	} else {
		line := domain.CartItem{
			ID:        uuid.New().String(),
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: unitPrice,
			Quantity:  input.Quantity,
			Image:     product.Thumbnail,
		}
		if selected != nil {
			line.VariantID = selected.ID
			line.SKU = selected.SKU
			if selected.Image != "" {
				line.Image = selected.Image
			}
		}
		cart.Items = append(cart.Items, line)
		item = &cart.Items[len(cart.Items)-1]
	}

	if err := s.carts.SaveIfVersion(ctx, cart, cart.Version); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	if err := s.producer.PublishCartItemAdded(ctx, input.UserID, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.item_added event",
			slog.String("user_id", input.UserID),
			slog.String("product_id", input.ProductID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "cart item added",
		slog.String("user_id", input.UserID),
		slog.String("product_id", input.ProductID),
		slog.String("variant_id", input.VariantID),
		slog.Int("quantity", item.Quantity),
	)

	return cart, nil
}

// UpdateItem changes a line's quantity, re-checking the stock gate. Quantity
// zero removes the line.
func (s *CartService) UpdateItem(ctx context.Context, input *UpdateItemInput) (*domain.Cart, error) {
	if input.Quantity < 0 {
		return nil, apperrors.InvalidInput("quantity must not be negative")
	}

	cart, err := s.carts.GetByUserID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("get cart for update: %w", err)
	}

	idx := cart.FindItemByID(input.ItemID)
	if idx < 0 {
		return nil, apperrors.NotFound("cart item", input.ItemID)
	}

	if input.Quantity == 0 {
		cart.RemoveItem(idx)
	} else {
		if variantID := cart.Items[idx].VariantID; variantID != "" {
			variant, err := s.variants.GetByID(ctx, variantID)
			if err != nil {
				return nil, fmt.Errorf("get variant for cart update: %w", err)
			}
			if variant.Stock != nil && input.Quantity > *variant.Stock {
				return nil, apperrors.InvalidInput(fmt.Sprintf("quantity %d exceeds available stock %d", input.Quantity, *variant.Stock))
			}
		}
		cart.Items[idx].Quantity = input.Quantity
	}

	if err := s.carts.SaveIfVersion(ctx, cart, cart.Version); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart item updated",
		slog.String("user_id", input.UserID),
		slog.String("item_id", input.ItemID),
		slog.Int("quantity", input.Quantity),
	)

	return cart, nil
}

// RemoveItem deletes a line from the user's cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*domain.Cart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart for remove: %w", err)
	}

	idx := cart.FindItemByID(itemID)
	if idx < 0 {
		return nil, apperrors.NotFound("cart item", itemID)
	}

	cart.RemoveItem(idx)

	if err := s.carts.SaveIfVersion(ctx, cart, cart.Version); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart item removed",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
	)

	return cart, nil
}
