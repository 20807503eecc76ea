package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sokonihq/sokoni-backend/api/controllers"
	"github.com/sokonihq/sokoni-backend/api/middleware"
	"github.com/sokonihq/sokoni-backend/internal/escrow"
	"github.com/sokonihq/sokoni-backend/internal/orders"
	"github.com/sokonihq/sokoni-backend/internal/wallet"
	"github.com/sokonihq/sokoni-backend/pkg/config"
	"github.com/sokonihq/sokoni-backend/pkg/db"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
	pkgredis "github.com/sokonihq/sokoni-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   *pkgredis.Client
	Orders  orders.Service
	Escrow  escrow.Service
	Wallets wallet.Service
}

func NewRouter(p RouterParams) http.Handler {
	// A typed nil *redis.Client would slip past the middleware's interface
	// nil check, so only hand it over when actually wired.
	var idemStore pkgredis.IdempotencyStore
	var cachePinger pkgredis.Pinger
	if p.Redis != nil {
		idemStore = p.Redis
		cachePinger = p.Redis
	}

	orderPolicy := middleware.RateLimitPolicy{
		Name:   "order_create",
		Window: p.Config.RateLimit.OrderWindow,
		Limit:  p.Config.RateLimit.OrderLimit,
	}
	orderThrottle := middleware.RateLimit(orderPolicy, nil, p.Logger)
	if p.Redis != nil {
		orderThrottle = middleware.RateLimit(orderPolicy, p.Redis, p.Logger)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(p.Config.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(p.DB, cachePinger, p.Logger))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(p.Config.JWT, p.Logger))
		r.Use(middleware.Idempotency(idemStore, p.Logger))

		r.Route("/orders", func(r chi.Router) {
			r.With(orderThrottle).Post("/", controllers.CreateOrder(p.Orders, p.Logger))
			r.Get("/", controllers.ListOrders(p.Orders, p.Logger))
			r.Get("/{orderId}", controllers.GetOrder(p.Orders, p.Logger))
			r.Put("/{orderId}/tracking-status", controllers.UpdateTrackingStatus(p.Orders, p.Logger))
			r.Post("/{orderId}/confirm-delivery", controllers.ConfirmDelivery(p.Orders, p.Logger))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(p.Orders, p.Logger))
			r.Post("/{orderId}/report-issue", controllers.ReportIssue(p.Orders, p.Logger))
		})

		r.Get("/wallet", controllers.WalletBalance(p.Wallets, p.Logger))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), p.Logger))
			r.Post("/orders/{orderId}/payment-approval", controllers.DecidePayment(p.Orders, p.Logger))
			r.Route("/escrow", func(r chi.Router) {
				r.Get("/", controllers.ListEscrow(p.Escrow, p.Logger))
				r.Post("/{transactionId}/release", controllers.ReleaseEscrow(p.Escrow, p.Logger))
				r.Post("/{transactionId}/refund", controllers.RefundEscrow(p.Escrow, p.Logger))
			})
		})
	})

	return r
}
