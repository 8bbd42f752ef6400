package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bazaarhq/storefront/internal/domain"
	"github.com/bazaarhq/storefront/internal/event"
	"github.com/bazaarhq/storefront/internal/repository"
	apperrors "github.com/bazaarhq/storefront/pkg/errors"
	"github.com/bazaarhq/storefront/pkg/slug"
)

// CatalogService implements the business logic for products and categories.
type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	producer   *event.Producer
	logger     *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		producer:   producer,
		logger:     logger,
	}
}

// CreateProductInput holds the parameters for creating a product. CategoryID
// is accepted raw because upstream clients send it in four shapes; it is
// canonicalized here, once, before anything persists.
type CreateProductInput struct {
	ShopID      string
	Name        string
	Description string
	Price       int64
	Stock       int
	Thumbnail   string
	CategoryID  json.RawMessage
}

// UpdateProductInput holds the parameters for updating a product. Nil fields
// are left unchanged.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *int64
	Stock       *int
	Thumbnail   *string
	CategoryID  json.RawMessage
	IsActive    *bool
}

// CreateProduct creates a new product with the given input.
func (s *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.ShopID == "" {
		return nil, apperrors.InvalidInput("shop id is required")
	}
	if input.Price <= 0 {
		return nil, apperrors.InvalidInput("price must be positive")
	}
	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}

	refs := domain.ParseCategoryRefs(input.CategoryID)
	for _, categoryID := range refs {
		if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown category %q", categoryID))
		}
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:           uuid.New().String(),
		ShopID:       input.ShopID,
		Name:         input.Name,
		Slug:         slug.Generate(input.Name),
		Description:  input.Description,
		Price:        input.Price,
		Stock:        input.Stock,
		Thumbnail:    input.Thumbnail,
		CategoryRefs: refs,
		Status:       domain.ProductStatusActive,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("shop_id", product.ShopID),
	)

	return product, nil
}

// GetProduct retrieves a product by its ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// ListProducts returns a filtered, paginated list of products.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return products, total, nil
}

// ListProductsByShop returns all products belonging to a shop.
func (s *CatalogService) ListProductsByShop(ctx context.Context, shopID string, page, perPage int) ([]domain.Product, int, error) {
	return s.ListProducts(ctx, repository.ProductFilter{
		ShopID:  &shopID,
		Page:    page,
		PerPage: perPage,
	})
}

// UpdateProduct applies partial updates to an existing product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("product name must not be empty")
		}
		product.Name = *input.Name
		product.Slug = slug.Generate(*input.Name)
	}

	if input.Description != nil {
		product.Description = *input.Description
	}

	if input.Price != nil {
		if *input.Price <= 0 {
			return nil, apperrors.InvalidInput("price must be positive")
		}
		product.Price = *input.Price
	}

	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, apperrors.InvalidInput("stock must not be negative")
		}
		product.Stock = *input.Stock
	}

	if input.Thumbnail != nil {
		product.Thumbnail = *input.Thumbnail
	}

	if input.CategoryID != nil {
		refs := domain.ParseCategoryRefs(input.CategoryID)
		for _, categoryID := range refs {
			if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
				return nil, apperrors.InvalidInput(fmt.Sprintf("unknown category %q", categoryID))
			}
		}
		product.CategoryRefs = refs
	}

	if input.IsActive != nil {
		product.IsActive = *input.IsActive
		if *input.IsActive {
			product.Status = domain.ProductStatusActive
		} else {
			product.Status = domain.ProductStatusInactive
		}
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
	)

	return product, nil
}

// DeleteProduct soft-deletes a product.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	product.Status = domain.ProductStatusDeleted
	if err := s.producer.PublishProductDeleted(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", product.ID),
	)

	return nil
}

// ListCategories returns all categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
