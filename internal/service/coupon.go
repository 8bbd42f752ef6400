package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bazaarhq/storefront/internal/domain"
	"github.com/bazaarhq/storefront/internal/event"
	"github.com/bazaarhq/storefront/internal/repository"
	apperrors "github.com/bazaarhq/storefront/pkg/errors"
)

// CouponService implements the business logic for coupon operations. Product
// lookups feed the cross-field category check of the draft validator.
type CouponService struct {
	coupons  repository.CouponRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewCouponService creates a new coupon service.
func NewCouponService(
	coupons repository.CouponRepository,
	products repository.ProductRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *CouponService {
	return &CouponService{
		coupons:  coupons,
		products: products,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CouponInput holds the parameters for creating or editing a coupon. Zero
// dates on create fall back to a one-month validity window from now. The
// invalid flags mark dates the transport received but could not parse, so a
// garbage date is rejected as a field error rather than defaulted.
type CouponInput struct {
	ShopID           string
	Code             string
	Description      string
	Type             string
	Value            int64
	MaxDiscountValue int64
	MinOrderValue    int64
	StartDate        time.Time
	EndDate          time.Time
	StartDateInvalid bool
	EndDateInvalid   bool
	MaxUses          int
	MaxUsesPerUser   *int
	IsActive         *bool
	CategoryID       string
	ProductID        string
}

// CouponView is a coupon annotated with its derived status.
type CouponView struct {
	domain.Coupon
	Status domain.CouponStatus `json:"status"`
}

// ApplyCouponInput holds the parameters for redeeming a coupon.
type ApplyCouponInput struct {
	Code       string
	UserID     string
	OrderID    string
	OrderTotal int64
}

// ApplyCouponResult is the outcome of a successful redemption.
type ApplyCouponResult struct {
	CouponID        string `json:"coupon_id"`
	Code            string `json:"code"`
	DiscountApplied int64  `json:"discount_applied"`
}

// view wraps a coupon with its status as of now.
func (s *CouponService) view(c *domain.Coupon) *CouponView {
	return &CouponView{Coupon: *c, Status: c.StatusAt(s.now())}
}

// productLookup resolves products for the draft validator. A product the
// catalog cannot find maps to nil so the cross-field check is skipped rather
// than failed.
func (s *CouponService) productLookup(ctx context.Context) domain.ProductLookup {
	return func(id string) *domain.Product {
		product, err := s.products.GetByID(ctx, id)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				s.logger.WarnContext(ctx, "product lookup failed during coupon validation",
					slog.String("product_id", id),
					slog.String("error", err.Error()),
				)
			}
			return nil
		}
		return product
	}
}

// CreateCoupon validates the draft and creates the coupon. All rule failures
// come back together in one validation error.
func (s *CouponService) CreateCoupon(ctx context.Context, input *CouponInput) (*CouponView, error) {
	now := s.now()

	// Default validity window: one month from creation. Only genuinely
	// absent dates qualify; an unparsable date must not be defaulted over.
	startDate := input.StartDate
	endDate := input.EndDate
	if startDate.IsZero() && endDate.IsZero() && !input.StartDateInvalid && !input.EndDateInvalid {
		startDate = now
		endDate = now.AddDate(0, 1, 0)
	}

	maxUsesPerUser := 1
	if input.MaxUsesPerUser != nil {
		maxUsesPerUser = *input.MaxUsesPerUser
	}

	if !domain.IsValidCouponType(input.Type) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid coupon type %q, must be percentage or fixed", input.Type))
	}
	if input.MinOrderValue < 0 {
		return nil, apperrors.InvalidInput("min order value must not be negative")
	}

	draft := domain.CouponDraft{
		Code:           input.Code,
		Description:    input.Description,
		Type:           input.Type,
		Value:          input.Value,
		StartDate:      startDate,
		EndDate:        endDate,
		MaxUsesPerUser: maxUsesPerUser,
		CategoryID:     input.CategoryID,
		ProductID:      input.ProductID,
	}
	fieldErrs := mergeDateParseErrors(draft.Validate(s.productLookup(ctx)), input)
	if len(fieldErrs) > 0 {
		return nil, apperrors.Validation(fieldErrs)
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	coupon := &domain.Coupon{
		ID:               uuid.New().String(),
		ShopID:           input.ShopID,
		Code:             strings.ToUpper(strings.TrimSpace(input.Code)),
		Description:      input.Description,
		Type:             input.Type,
		Value:            input.Value,
		MaxDiscountValue: input.MaxDiscountValue,
		MinOrderValue:    input.MinOrderValue,
		StartDate:        startDate,
		EndDate:          endDate,
		MaxUses:          input.MaxUses,
		MaxUsesPerUser:   maxUsesPerUser,
		IsActive:         isActive,
		CategoryID:       input.CategoryID,
		ProductID:        input.ProductID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.coupons.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	if err := s.producer.PublishCouponCreated(ctx, coupon); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon.created event",
			slog.String("coupon_id", coupon.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "coupon created",
		slog.String("coupon_id", coupon.ID),
		slog.String("code", coupon.Code),
	)

	return s.view(coupon), nil
}

// GetCoupon retrieves a coupon by its ID with derived status. Soft-deleted
// coupons read as not found.
func (s *CouponService) GetCoupon(ctx context.Context, id string) (*CouponView, error) {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon by id: %w", err)
	}
	if coupon.DeletedAt != nil {
		return nil, apperrors.NotFound("coupon", id)
	}
	return s.view(coupon), nil
}

// ListCoupons returns a filtered, paginated list of coupons, each annotated
// with its status as of now.
func (s *CouponService) ListCoupons(ctx context.Context, filter repository.CouponFilter) ([]CouponView, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	coupons, total, err := s.coupons.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}

	now := s.now()
	views := make([]CouponView, 0, len(coupons))
	for i := range coupons {
		views = append(views, CouponView{
			Coupon: coupons[i],
			Status: coupons[i].StatusAt(now),
		})
	}

	return views, total, nil
}

// UpdateCoupon validates and applies an edit. The code is immutable: an
// incoming code that differs from the stored one is rejected outright.
func (s *CouponService) UpdateCoupon(ctx context.Context, id string, input *CouponInput) (*CouponView, error) {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon for update: %w", err)
	}
	if coupon.DeletedAt != nil {
		return nil, apperrors.NotFound("coupon", id)
	}

	if code := strings.ToUpper(strings.TrimSpace(input.Code)); code != "" && code != coupon.Code {
		return nil, apperrors.InvalidInput("coupon code cannot be changed")
	}

	if !domain.IsValidCouponType(input.Type) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid coupon type %q, must be percentage or fixed", input.Type))
	}
	if input.MinOrderValue < 0 {
		return nil, apperrors.InvalidInput("min order value must not be negative")
	}

	maxUsesPerUser := coupon.MaxUsesPerUser
	if input.MaxUsesPerUser != nil {
		maxUsesPerUser = *input.MaxUsesPerUser
	}

	draft := domain.CouponDraft{
		Description:    input.Description,
		Type:           input.Type,
		Value:          input.Value,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		MaxUsesPerUser: maxUsesPerUser,
		CategoryID:     input.CategoryID,
		ProductID:      input.ProductID,
		IsEdit:         true,
	}
	fieldErrs := mergeDateParseErrors(draft.Validate(s.productLookup(ctx)), input)
	if len(fieldErrs) > 0 {
		return nil, apperrors.Validation(fieldErrs)
	}

	coupon.Description = input.Description
	coupon.Type = input.Type
	coupon.Value = input.Value
	coupon.MaxDiscountValue = input.MaxDiscountValue
	coupon.MinOrderValue = input.MinOrderValue
	coupon.StartDate = input.StartDate
	coupon.EndDate = input.EndDate
	coupon.MaxUses = input.MaxUses
	coupon.MaxUsesPerUser = maxUsesPerUser
	coupon.CategoryID = input.CategoryID
	coupon.ProductID = input.ProductID
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}

	if err := s.coupons.Update(ctx, coupon); err != nil {
		return nil, fmt.Errorf("update coupon: %w", err)
	}

	if err := s.producer.PublishCouponUpdated(ctx, coupon); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon.updated event",
			slog.String("coupon_id", coupon.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "coupon updated",
		slog.String("coupon_id", coupon.ID),
		slog.String("code", coupon.Code),
	)

	return s.view(coupon), nil
}

// DeleteCoupon soft-deletes a coupon.
func (s *CouponService) DeleteCoupon(ctx context.Context, id string) error {
	if err := s.coupons.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("soft delete coupon: %w", err)
	}

	s.logger.InfoContext(ctx, "coupon deleted",
		slog.String("coupon_id", id),
	)

	return nil
}

// ValidateDraft runs the draft validator without persisting anything and
// returns the aggregated per-field error map. An empty map means valid.
func (s *CouponService) ValidateDraft(ctx context.Context, input *CouponInput) domain.FieldErrors {
	maxUsesPerUser := 1
	if input.MaxUsesPerUser != nil {
		maxUsesPerUser = *input.MaxUsesPerUser
	}

	draft := domain.CouponDraft{
		Code:           input.Code,
		Description:    input.Description,
		Type:           input.Type,
		Value:          input.Value,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		MaxUsesPerUser: maxUsesPerUser,
		CategoryID:     input.CategoryID,
		ProductID:      input.ProductID,
	}

	return mergeDateParseErrors(draft.Validate(s.productLookup(ctx)), input)
}

// mergeDateParseErrors replaces the required-date messages with parse
// failures for dates the transport received but could not read.
func mergeDateParseErrors(errs domain.FieldErrors, input *CouponInput) domain.FieldErrors {
	if !input.StartDateInvalid && !input.EndDateInvalid {
		return errs
	}
	if errs == nil {
		errs = domain.FieldErrors{}
	}
	if input.StartDateInvalid {
		errs["start_date"] = "start date must be a valid RFC3339 timestamp"
	}
	if input.EndDateInvalid {
		errs["end_date"] = "end date must be a valid RFC3339 timestamp"
	}
	return errs
}

// ApplyCoupon redeems a coupon for an order: the coupon must be active at the
// time of redemption, the order must clear the minimum, and both the global
// and per-user caps must hold. The global cap is enforced atomically by the
// usage increment, so two racing redemptions cannot both take the last slot.
func (s *CouponService) ApplyCoupon(ctx context.Context, input *ApplyCouponInput) (*ApplyCouponResult, error) {
	coupon, err := s.coupons.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(input.Code)))
	if err != nil {
		return nil, fmt.Errorf("get coupon by code: %w", err)
	}

	switch status := coupon.StatusAt(s.now()); status {
	case domain.CouponStatusActive:
		// Redeemable.
	case domain.CouponStatusDisabled:
		return nil, apperrors.InvalidInput("coupon is disabled")
	case domain.CouponStatusScheduled:
		return nil, apperrors.InvalidInput("coupon is not active yet")
	case domain.CouponStatusExpired:
		return nil, apperrors.InvalidInput("coupon has expired")
	}

	if coupon.MinOrderValue > 0 && input.OrderTotal < coupon.MinOrderValue {
		return nil, apperrors.InvalidInput(fmt.Sprintf("minimum order value is %d", coupon.MinOrderValue))
	}

	if coupon.MaxUsesPerUser > 0 {
		used, err := s.coupons.CountUsagesByUser(ctx, coupon.ID, input.UserID)
		if err != nil {
			return nil, fmt.Errorf("count coupon usages: %w", err)
		}
		if used >= coupon.MaxUsesPerUser {
			return nil, apperrors.InvalidInput("coupon usage limit for this user reached")
		}
	}

	if err := s.coupons.IncrementUsage(ctx, coupon.ID); err != nil {
		return nil, fmt.Errorf("increment coupon usage: %w", err)
	}

	usage := &domain.CouponUsage{
		ID:              uuid.New().String(),
		CouponID:        coupon.ID,
		UserID:          input.UserID,
		OrderID:         input.OrderID,
		DiscountApplied: coupon.DiscountFor(input.OrderTotal),
		CreatedAt:       s.now(),
	}

	if err := s.coupons.RecordUsage(ctx, usage); err != nil {
		return nil, fmt.Errorf("record coupon usage: %w", err)
	}

	if err := s.producer.PublishCouponApplied(ctx, coupon, usage); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon.applied event",
			slog.String("coupon_id", coupon.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "coupon applied",
		slog.String("coupon_id", coupon.ID),
		slog.String("user_id", input.UserID),
		slog.String("order_id", input.OrderID),
		slog.Int64("discount_applied", usage.DiscountApplied),
	)

	return &ApplyCouponResult{
		CouponID:        coupon.ID,
		Code:            coupon.Code,
		DiscountApplied: usage.DiscountApplied,
	}, nil
}
