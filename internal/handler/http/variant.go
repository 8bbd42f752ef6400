package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bazaarhq/storefront/internal/service"
	"github.com/bazaarhq/storefront/pkg/httputil"
	"github.com/bazaarhq/storefront/pkg/validator"
)

// VariantHandler handles HTTP requests for product variant endpoints.
type VariantHandler struct {
	service *service.VariantService
	logger  *slog.Logger
}

// NewVariantHandler creates a new variant HTTP handler.
func NewVariantHandler(svc *service.VariantService, logger *slog.Logger) *VariantHandler {
	return &VariantHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateVariantRequest is the JSON request body for creating a variant.
// An empty SKU is generated server side; a supplied one is kept verbatim and
// never regenerated afterwards.
type CreateVariantRequest struct {
	ProductID  string            `json:"product_id" validate:"required"`
	Name       string            `json:"name" validate:"required,min=1,max=255"`
	SKU        string            `json:"sku" validate:"max=64"`
	Price      *int64            `json:"price" validate:"omitempty,gt=0"`
	Stock      *int              `json:"stock" validate:"omitempty,gte=0"`
	Attributes map[string]string `json:"attributes"`
	Image      string            `json:"image"`
	IsDefault  bool              `json:"is_default"`
}

// UpdateVariantRequest is the JSON request body for updating a variant.
type UpdateVariantRequest struct {
	Name       *string           `json:"name" validate:"omitempty,min=1,max=255"`
	SKU        *string           `json:"sku" validate:"omitempty,max=64"`
	Price      *int64            `json:"price" validate:"omitempty,gt=0"`
	Stock      *int              `json:"stock" validate:"omitempty,gte=0"`
	Attributes map[string]string `json:"attributes"`
	Image      *string           `json:"image"`
	IsActive   *bool             `json:"is_active"`
}

// --- Handlers ---

// ListVariants handles GET /product-variant/product/{productId}
func (h *VariantHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	variants, err := h.service.ListVariants(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: variants})
}

// CreateVariant handles POST /product-variant/create
func (h *VariantHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req CreateVariantRequest
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

	variant, err := h.service.CreateVariant(r.Context(), &service.CreateVariantInput{
		ProductID:  req.ProductID,
		Name:       req.Name,
		SKU:        req.SKU,
		Price:      req.Price,
		Stock:      req.Stock,
		Attributes: req.Attributes,
		Image:      req.Image,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: variant})
}

// UpdateVariant handles PUT /product-variant/edit/{id}
func (h *VariantHandler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")

	var req UpdateVariantRequest
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

	variant, err := h.service.UpdateVariant(r.Context(), id, &service.UpdateVariantInput{
		Name:       req.Name,
		SKU:        req.SKU,
		Price:      req.Price,
		Stock:      req.Stock,
		Attributes: req.Attributes,
		Image:      req.Image,
		IsActive:   req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: variant})
}

// DeleteVariant handles DELETE /product-variant/delete/{id}
func (h *VariantHandler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteVariant(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// SetDefaultVariant handles PUT /product-variant/product/{productId}/default/{variantId}
func (h *VariantHandler) SetDefaultVariant(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	variantID := chi.URLParam(r, "variantId")

	variants, err := h.service.SetDefaultVariant(r.Context(), productID, variantID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: variants})
}
