package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bazaarhq/storefront/internal/service"
	"github.com/bazaarhq/storefront/pkg/health"
	"github.com/bazaarhq/storefront/pkg/middleware"
)

// Services bundles the service layer for route registration.
type Services struct {
	Catalog *service.CatalogService
	Variant *service.VariantService
	Coupon  *service.CouponService
	Cart    *service.CartService
	Shop    *service.ShopService
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	services Services,
	healthHandler *health.Handler,
	corsConfig middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	productHandler := NewProductHandler(services.Catalog, logger)
	variantHandler := NewVariantHandler(services.Variant, logger)
	couponHandler := NewCouponHandler(services.Coupon, logger)
	cartHandler := NewCartHandler(services.Cart, logger)
	shopHandler := NewShopHandler(services.Shop, logger)

	r.Route("/product", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", productHandler.ListProducts)
		r.Get("/shop/{shopId}", productHandler.ListProductsByShop)
		r.Post("/create", productHandler.CreateProduct)
		r.Put("/edit/{id}", productHandler.UpdateProduct)
		r.Delete("/delete/{id}", productHandler.DeleteProduct)
		r.Get("/{id}", productHandler.GetProduct)
	})

	r.Get("/categories", productHandler.ListCategories)

	r.Route("/product-variant", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/product/{productId}", variantHandler.ListVariants)
		r.Put("/product/{productId}/default/{variantId}", variantHandler.SetDefaultVariant)
		r.Post("/create", variantHandler.CreateVariant)
		r.Put("/edit/{id}", variantHandler.UpdateVariant)
		r.Delete("/delete/{id}", variantHandler.DeleteVariant)
	})

	r.Route("/coupon", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/list", couponHandler.ListCoupons)
		r.Get("/find/{id}", couponHandler.GetCoupon)
		r.Post("/create", couponHandler.CreateCoupon)
		r.Put("/edit/{id}", couponHandler.UpdateCoupon)
		r.Delete("/delete/{id}", couponHandler.DeleteCoupon)
		r.Post("/validate", couponHandler.ValidateCoupon)
		r.Post("/apply", couponHandler.ApplyCoupon)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/user/{userId}", cartHandler.GetCart)
		r.Post("/create", cartHandler.CreateCart)
		r.Post("/add-item", cartHandler.AddItem)
		r.Put("/update-item", cartHandler.UpdateItem)
		r.Delete("/remove-item/{id}", cartHandler.RemoveItem)
	})

	r.Route("/shop", func(r chi.Router) {
		// Multipart uploads, so no JSON content-type enforcement here.
		r.Get("/{id}", shopHandler.GetShop)
		r.Put("/edit/{id}", shopHandler.UpdateShop)
	})

	return r
}
