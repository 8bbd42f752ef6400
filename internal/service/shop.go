package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/bazaarhq/storefront/internal/domain"
	"github.com/bazaarhq/storefront/internal/repository"
	"github.com/bazaarhq/storefront/internal/storage"
	apperrors "github.com/bazaarhq/storefront/pkg/errors"
)

// ShopService implements the business logic for shop profiles. A profile
// update runs as independent steps (base fields, logo, cover); a step that
// fails never rolls back the ones that already succeeded, and the caller
// receives the per-step record.
type ShopService struct {
	shops  repository.ShopRepository
	images storage.Storage
	logger *slog.Logger
}

// NewShopService creates a new shop service.
func NewShopService(shops repository.ShopRepository, images storage.Storage, logger *slog.Logger) *ShopService {
	return &ShopService{
		shops:  shops,
		images: images,
		logger: logger,
	}
}

// ImageUpload carries one image file of a profile update.
type ImageUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UpdateProfileInput holds the parameters for a multi-step profile update.
// Nil base fields are left unchanged; nil images skip their step entirely.
type UpdateProfileInput struct {
	Name        *string
	Description *string
	Phone       *string
	Address     *string
	Logo        *ImageUpload
	Cover       *ImageUpload
}

// UpdateProfile applies the base-field, logo, and cover steps in order and
// reports each outcome. The returned shop reflects every step that succeeded.
func (s *ShopService) UpdateProfile(ctx context.Context, id string, input *UpdateProfileInput) (*domain.Shop, []domain.StepResult, error) {
	shop, err := s.shops.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get shop for update: %w", err)
	}

	if input.Name != nil && *input.Name == "" {
		return nil, nil, apperrors.InvalidInput("shop name must not be empty")
	}

	var results []domain.StepResult

	results = append(results, s.updateBaseFields(ctx, shop, input))

	if input.Logo != nil {
		results = append(results, s.uploadImage(ctx, shop, domain.ShopStepLogo, input.Logo))
	}
	if input.Cover != nil {
		results = append(results, s.uploadImage(ctx, shop, domain.ShopStepCover, input.Cover))
	}

	if !domain.AllOK(results) {
		s.logger.WarnContext(ctx, "shop profile update partially failed",
			slog.String("shop_id", id),
			slog.Any("steps", results),
		)
	} else {
		s.logger.InfoContext(ctx, "shop profile updated",
			slog.String("shop_id", id),
		)
	}

	return shop, results, nil
}

// updateBaseFields persists the textual profile fields as one step.
func (s *ShopService) updateBaseFields(ctx context.Context, shop *domain.Shop, input *UpdateProfileInput) domain.StepResult {
	if input.Name != nil {
		shop.Name = *input.Name
	}
	if input.Description != nil {
		shop.Description = *input.Description
	}
	if input.Phone != nil {
		shop.Phone = *input.Phone
	}
	if input.Address != nil {
		shop.Address = *input.Address
	}

	if err := s.shops.Update(ctx, shop); err != nil {
		return domain.StepResult{Step: domain.ShopStepProfile, OK: false, Error: err.Error()}
	}
	return domain.StepResult{Step: domain.ShopStepProfile, OK: true}
}

// uploadImage stores one image and persists its URL as one step. The URL
// write reuses the step's own error slot, so a failed persist after a
// successful upload still reads as a failed step.
func (s *ShopService) uploadImage(ctx context.Context, shop *domain.Shop, step string, img *ImageUpload) domain.StepResult {
	key := fmt.Sprintf("shops/%s/%s%s", shop.ID, step, path.Ext(img.FileName))

	result, err := s.images.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: img.ContentType,
		Size:        img.Size,
		Data:        img.Data,
	})
	if err != nil {
		return domain.StepResult{Step: step, OK: false, Error: err.Error()}
	}

	switch step {
	case domain.ShopStepLogo:
		shop.LogoURL = result.URL
	case domain.ShopStepCover:
		shop.CoverURL = result.URL
	}

	if err := s.shops.Update(ctx, shop); err != nil {
		return domain.StepResult{Step: step, OK: false, Error: err.Error()}
	}

	return domain.StepResult{Step: step, OK: true}
}

// GetShop retrieves a shop by its ID.
func (s *ShopService) GetShop(ctx context.Context, id string) (*domain.Shop, error) {
	shop, err := s.shops.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get shop by id: %w", err)
	}
	return shop, nil
}
