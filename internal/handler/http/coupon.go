package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bazaarhq/storefront/internal/repository"
	"github.com/bazaarhq/storefront/internal/service"
	"github.com/bazaarhq/storefront/pkg/httputil"
	"github.com/bazaarhq/storefront/pkg/pagination"
	"github.com/bazaarhq/storefront/pkg/validator"
)

// CouponHandler handles HTTP requests for coupon endpoints.
type CouponHandler struct {
	service *service.CouponService
	logger  *slog.Logger
}

// NewCouponHandler creates a new coupon HTTP handler.
func NewCouponHandler(svc *service.CouponService, logger *slog.Logger) *CouponHandler {
	return &CouponHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CouponRequest is the JSON request body for creating, editing, or validating
// a coupon. Business rules (code length, value range, date ordering, category
// scope) are checked by the service so their failures aggregate per field
// instead of stopping at the first one.
type CouponRequest struct {
	ShopID           string `json:"shop_id"`
	Code             string `json:"code"`
	Description      string `json:"description"`
	Type             string `json:"type" validate:"omitempty,oneof=percentage fixed"`
	Value            int64  `json:"value"`
	MaxDiscountValue int64  `json:"max_discount_value" validate:"gte=0"`
	MinOrderValue    int64  `json:"min_order_value" validate:"gte=0"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	MaxUses          int    `json:"max_uses" validate:"gte=0"`
	MaxUsesPerUser   *int   `json:"max_uses_per_user"`
	IsActive         *bool  `json:"is_active"`
	CategoryID       string `json:"category_id"`
	ProductID        string `json:"product_id"`
}

// ApplyCouponRequest is the JSON request body for redeeming a coupon.
type ApplyCouponRequest struct {
	Code       string `json:"code" validate:"required"`
	UserID     string `json:"user_id" validate:"required"`
	OrderID    string `json:"order_id" validate:"required"`
	OrderTotal int64  `json:"order_total" validate:"required,gt=0"`
}

// toInput converts the DTO, parsing the optional RFC3339 dates. An absent
// date reads as zero so create can apply its default window; a non-empty
// unparsable date is flagged so the service reports it as a field error
// instead of treating it as absent.
func (req *CouponRequest) toInput() *service.CouponInput {
	input := &service.CouponInput{
		ShopID:           req.ShopID,
		Code:             req.Code,
		Description:      req.Description,
		Type:             req.Type,
		Value:            req.Value,
		MaxDiscountValue: req.MaxDiscountValue,
		MinOrderValue:    req.MinOrderValue,
		MaxUses:          req.MaxUses,
		MaxUsesPerUser:   req.MaxUsesPerUser,
		IsActive:         req.IsActive,
		CategoryID:       req.CategoryID,
		ProductID:        req.ProductID,
	}
	if req.StartDate != "" {
		if t, err := time.Parse(time.RFC3339, req.StartDate); err == nil {
			input.StartDate = t
		} else {
			input.StartDateInvalid = true
		}
	}
	if req.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, req.EndDate); err == nil {
			input.EndDate = t
		} else {
			input.EndDateInvalid = true
		}
	}
	return input
}

// --- Handlers ---

// ListCoupons handles GET /coupon/list
func (h *CouponHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	filter := repository.CouponFilter{
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	if v := r.URL.Query().Get("shop_id"); v != "" {
		filter.ShopID = &v
	}
	if v := r.URL.Query().Get("category_id"); v != "" {
		filter.CategoryID = &v
	}
	if v := r.URL.Query().Get("is_active"); v != "" {
		active := v == "true"
		filter.IsActive = &active
	}

	coupons, total, err := h.service.ListCoupons(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(coupons, total, params))
}

// GetCoupon handles GET /coupon/find/{id}
func (h *CouponHandler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	coupon, err := h.service.GetCoupon(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: coupon})
}

// CreateCoupon handles POST /coupon/create
func (h *CouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req CouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	coupon, err := h.service.CreateCoupon(r.Context(), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: coupon})
}

// UpdateCoupon handles PUT /coupon/edit/{id}
func (h *CouponHandler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")

	var req CouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	coupon, err := h.service.UpdateCoupon(r.Context(), id, req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: coupon})
}

// DeleteCoupon handles DELETE /coupon/delete/{id}
func (h *CouponHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteCoupon(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// ValidateCoupon handles POST /coupon/validate
//
// Returns the aggregated field error map without persisting anything, so
// admin UIs can check a draft as it is being filled in.
func (h *CouponHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req CouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	fieldErrors := h.service.ValidateDraft(r.Context(), req.toInput())

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"valid":  len(fieldErrors) == 0,
		"errors": fieldErrors,
	}})
}

// ApplyCoupon handles POST /coupon/apply
func (h *CouponHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req ApplyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.ApplyCoupon(r.Context(), &service.ApplyCouponInput{
		Code:       req.Code,
		UserID:     req.UserID,
		OrderID:    req.OrderID,
		OrderTotal: req.OrderTotal,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}
