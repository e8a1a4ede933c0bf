package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Catalina-leal/Huertohogarapp/internal/service"
	"github.com/Catalina-leal/Huertohogarapp/internal/session"
	"github.com/Catalina-leal/Huertohogarapp/pkg/health"
	"github.com/Catalina-leal/Huertohogarapp/pkg/middleware"
)

// Services are the application services exposed over HTTP.
type Services struct {
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	Payments *service.PaymentService
	Catalog  *service.CatalogService
	Sales    *service.SalesService
	Session  *session.Provider
}

// RouterConfig holds the HTTP settings of the router.
type RouterConfig struct {
	ServiceName string
	// AdminSecret signs admin bearer tokens. Empty leaves /admin unmounted.
	AdminSecret    string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all storefront routes registered. ctx
// bounds the background work of the rate limiter.
func NewRouter(
	ctx context.Context,
	svc Services,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing())

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	cartHandler := NewCartHandler(svc.Cart, logger)
	sessionHandler := NewSessionHandler(svc.Session, logger)
	checkoutHandler := NewCheckoutHandler(svc.Checkout, logger)
	orderHandler := NewOrderHandler(svc.Orders, svc.Payments, svc.Session, logger)
	productHandler := NewProductHandler(svc.Catalog, logger)
	adminHandler := NewAdminHandler(svc.Orders, svc.Sales, svc.Catalog, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
		// Only API requests pay for the session lookup that tags their logs.
		r.Use(middleware.RequestLogger(logger, func(ctx context.Context) string {
			email, _ := svc.Session.CurrentUserEmail(ctx)
			return email
		}))

		// The websocket stays outside the timeout and compression middleware.
		r.Get("/cart/stream", cartHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Compress(5))
			r.Use(chimw.Timeout(30 * time.Second))
			r.Use(ContentTypeJSON)

			r.Get("/cart", cartHandler.GetCart)
			r.Delete("/cart", cartHandler.ClearCart)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Put("/cart/items/{productID}", cartHandler.UpdateItemQuantity)
			r.Delete("/cart/items/{productID}", cartHandler.RemoveItem)

			r.Route("/session", func(r chi.Router) {
				r.Post("/", sessionHandler.Login)
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Logout)
			})

			r.Post("/checkout", checkoutHandler.PlaceOrder)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", orderHandler.ListMine)
				r.Get("/{id}", orderHandler.GetOrder)
				r.Post("/{id}/payment", orderHandler.Pay)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", productHandler.ListProducts)
				r.Get("/{id}", productHandler.GetProduct)
			})

			if cfg.AdminSecret != "" {
				r.Route("/admin", func(r chi.Router) {
					r.Use(middleware.Auth(middleware.HS256Validator(cfg.AdminSecret)))
					r.Use(middleware.RequireRole(middleware.RoleAdmin))

					r.Get("/sales", adminHandler.SalesReport)
					r.Get("/orders", adminHandler.ListOrders)
					r.Get("/orders/{id}/items", adminHandler.OrderItems)
					r.Put("/orders/{id}/status", adminHandler.UpdateOrderStatus)
					r.Put("/products/{id}", adminHandler.UpsertProduct)
					r.Put("/products/{id}/active", adminHandler.SetProductActive)
					r.Delete("/products/{id}", adminHandler.DeleteProduct)
				})
			}
		})
	})

	return r
}
