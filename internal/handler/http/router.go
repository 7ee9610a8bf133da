package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/CampusMerchGo/internal/service"
	"github.com/utafrali/CampusMerchGo/pkg/health"
	"github.com/utafrali/CampusMerchGo/pkg/middleware"
)

// NewRouter creates a chi router with all merch service routes registered.
func NewRouter(
	reservationService *service.ReservationService,
	stockService *service.StockService,
	auditService *service.AuditService,
	cartService *service.CartService,
	healthHandler *health.Handler,
	corsCfg middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("merch"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	reservationHandler := NewReservationHandler(reservationService, logger)
	stockHandler := NewStockHandler(stockService, logger)
	auditHandler := NewAuditHandler(auditService, logger)
	cartHandler := NewCartHandler(cartService, logger)

	r.Route("/api/v1/reservations", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", reservationHandler.Create)
		r.Post("/bundle", reservationHandler.CreateBundle)
		r.Get("/", reservationHandler.List)
		r.Get("/pending", reservationHandler.ListPending)
		r.Get("/unpaid", reservationHandler.ListUnpaid)
		r.Get("/returns", reservationHandler.ListReturnRequests)
		r.Get("/{id}", reservationHandler.Get)

		// Lifecycle operations
		r.Post("/{id}/approve", reservationHandler.Approve)
		r.Post("/{id}/cancel", reservationHandler.Cancel)
		r.Post("/{id}/pay", reservationHandler.Pay)
		r.Post("/{id}/pickup/request", reservationHandler.RequestPickup)
		r.Post("/{id}/pickup/approve", reservationHandler.ApprovePickup)
		r.Post("/{id}/claim", reservationHandler.Claim)
		r.Post("/{id}/return/request", reservationHandler.RequestReturn)
		r.Post("/{id}/return/approve", reservationHandler.ApproveReturn)
		r.Post("/{id}/return/reject", reservationHandler.RejectReturn)
	})

	r.Route("/api/v1/bundles", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/{bundleId}", reservationHandler.GetBundle)
		r.Post("/{bundleId}/approve", reservationHandler.ApproveBundle)
		r.Post("/{bundleId}/pay", reservationHandler.PayBundle)
		r.Post("/{bundleId}/pickup/request", reservationHandler.RequestBundlePickup)
		r.Post("/{bundleId}/pickup/approve", reservationHandler.ApproveBundlePickup)
		r.Post("/{bundleId}/claim", reservationHandler.ClaimBundle)
		r.Post("/{bundleId}/cancel", reservationHandler.CancelBundle)
	})

	r.Route("/api/v1/stock", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Put("/", stockHandler.Upsert)
		r.Get("/", stockHandler.List)
		r.Get("/low-stock", stockHandler.ListLowStock)
		r.Get("/{itemCode}/sizes/{size}", stockHandler.Get)
		r.Get("/{itemCode}/sizes/{size}/quantity", stockHandler.GetQuantity)
		r.Delete("/{itemCode}/sizes/{size}", stockHandler.Remove)
		r.Post("/{itemCode}/sizes/{size}/adjust", stockHandler.Adjust)
		r.Get("/{itemCode}/sizes/{size}/movements", stockHandler.ListMovements)
	})

	r.Route("/api/v1/audits", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", auditHandler.RequestAdjustment)
		r.Get("/", auditHandler.List)
		r.Get("/pending", auditHandler.ListPending)
		r.Post("/{id}/approve", auditHandler.Approve)
		r.Post("/{id}/reject", auditHandler.Reject)
	})

	r.Route("/api/v1/carts", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/{studentId}", cartHandler.Get)
		r.Delete("/{studentId}", cartHandler.Clear)
		r.Post("/{studentId}/items", cartHandler.AddItem)
		r.Delete("/{studentId}/items/{itemCode}/sizes/{size}", cartHandler.RemoveItem)
		r.Post("/{studentId}/checkout", cartHandler.Checkout)
	})

	return r
}
