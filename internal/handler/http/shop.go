package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bazaarhq/storefront/internal/domain"
	"github.com/bazaarhq/storefront/internal/service"
	"github.com/bazaarhq/storefront/pkg/httputil"
)

const maxImageSize = 5 << 20 // 5 MB per uploaded image

// ShopHandler handles HTTP requests for shop profile endpoints.
type ShopHandler struct {
	service *service.ShopService
	logger  *slog.Logger
}

// NewShopHandler creates a new shop HTTP handler.
func NewShopHandler(svc *service.ShopService, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{
		service: svc,
		logger:  logger,
	}
}

// GetShop handles GET /shop/{id}
func (h *ShopHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	shop, err := h.service.GetShop(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: shop})
}

// UpdateShop handles PUT /shop/edit/{id}
//
// The request is multipart/form-data: textual fields alongside optional logo
// and cover files. Steps that fail do not undo the ones that succeeded; the
// response carries the shop as updated plus the per-step record.
func (h *ShopHandler) UpdateShop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(2 * maxImageSize); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid multipart form: " + err.Error()},
		})
		return
	}

	input := &service.UpdateProfileInput{}
	for _, field := range []struct {
		name string
		dst  **string
	}{
		{"name", &input.Name},
		{"description", &input.Description},
		{"phone", &input.Phone},
		{"address", &input.Address},
	} {
		if values, ok := r.MultipartForm.Value[field.name]; ok && len(values) > 0 {
			v := values[0]
			*field.dst = &v
		}
	}

	for _, file := range []struct {
		name string
		dst  **service.ImageUpload
	}{
		{"logo", &input.Logo},
		{"cover", &input.Cover},
	} {
		f, header, err := r.FormFile(file.name)
		if err != nil {
			continue // field absent, step skipped
		}
		defer f.Close()

		if header.Size > maxImageSize {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: file.name + " exceeds the 5 MB limit"},
			})
			return
		}

		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: file.name + " must be an image"},
			})
			return
		}

		*file.dst = &service.ImageUpload{
			FileName:    header.Filename,
			ContentType: contentType,
			Size:        header.Size,
			Data:        f,
		}
	}

	shop, steps, err := h.service.UpdateProfile(r.Context(), id, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusOK
	if !domain.AllOK(steps) {
		status = http.StatusMultiStatus
	}

	httputil.WriteJSON(w, status, httputil.Response{Data: map[string]any{
		"shop":  shop,
		"steps": steps,
	}})
}
