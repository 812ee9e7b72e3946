package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mdnaeem95/hbbtool-sub002/api/controllers"
	"github.com/mdnaeem95/hbbtool-sub002/api/middleware"
	checkoutsvc "github.com/mdnaeem95/hbbtool-sub002/internal/checkout"
	ordersvc "github.com/mdnaeem95/hbbtool-sub002/internal/orders"
	paymentsvc "github.com/mdnaeem95/hbbtool-sub002/internal/payments"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/config"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/logger"
)

// Deps carries everything the HTTP surface needs. Pingers may be nil when
// the matching dependency is not configured.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Pingers  map[string]controllers.Pinger
	Checkout checkoutsvc.Service
	Factory  ordersvc.Factory
	Orders   ordersvc.Service
	Payments paymentsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Post("/sessions", controllers.CreateSession(deps.Checkout, logg))
		r.Get("/sessions/{token}", controllers.GetSession(deps.Checkout, logg))
		r.Post("/sessions/{token}/complete", controllers.CompleteSession(deps.Factory, logg))
		r.Get("/quote", controllers.QuoteDeliveryFee(deps.Checkout, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/{orderId}/payment-proofs", controllers.UploadPaymentProof(deps.Payments, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg), middleware.RequireMerchant(logg))
			r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
			r.Get("/{orderId}/events", controllers.ListOrderEvents(deps.Orders, logg))
			r.Post("/{orderId}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
		})
	})

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg), middleware.RequireMerchant(logg))
		r.Post("/{paymentId}/verify", controllers.VerifyPayment(deps.Payments, logg))
	})

	return r
}
