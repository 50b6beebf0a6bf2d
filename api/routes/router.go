package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/campaigns"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/influencers"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Store backs idempotency replays and rate limiting; *redis.Client satisfies it.
type Store interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Services groups what the router hands to controllers.
type Services struct {
	Checkout    checkout.Service
	Orders      orders.Service
	Campaigns   campaigns.Service
	Influencers influencers.Service
	Products    products.Service
	DeadLetters controllers.DeadLetterReader
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	store Store,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	ordersPolicy := middleware.NewRateLimitPolicy(
		"orders",
		cfg.RateLimit.OrdersWindow,
		cfg.RateLimit.OrdersIPLimit,
		cfg.RateLimit.OrdersEmailLimit,
	)

	quotesPolicy := middleware.NewRateLimitPolicy(
		"quotes",
		cfg.RateLimit.OrdersWindow,
		cfg.RateLimit.OrdersIPLimit,
		0,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.Dependency{Name: "postgres", Pinger: dbP},
			controllers.Dependency{Name: "redis", Pinger: store},
		))
	})

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(store, logg))

		r.With(middleware.RateLimit(ordersPolicy, store, logg)).Post("/orders", controllers.CreateOrder(svc.Checkout, logg))
		r.With(middleware.RateLimit(quotesPolicy, store, logg)).Post("/orders/quote", controllers.QuoteOrder(svc.Checkout, logg))
		r.Get("/orders/{orderNumber}", controllers.PublicOrder(svc.Orders, logg))
		r.Get("/coupons/{code}", controllers.CouponStatus(svc.Influencers, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.Admin.APIToken, logg))
		r.Use(middleware.Idempotency(store, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(svc.Orders, logg))
			r.Get("/{orderNumber}", controllers.AdminOrderDetail(svc.Orders, logg))
			r.Patch("/{orderNumber}", controllers.AdminUpdateOrderStatus(svc.Orders, logg))
		})
		r.Get("/reports/summary", controllers.AdminOrdersSummary(svc.Orders, logg))

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", controllers.AdminListCampaigns(svc.Campaigns, logg))
			r.Post("/", controllers.AdminCreateCampaign(svc.Campaigns, logg))
			r.Get("/{campaignId}", controllers.AdminGetCampaign(svc.Campaigns, logg))
			r.Put("/{campaignId}", controllers.AdminUpdateCampaign(svc.Campaigns, logg))
			r.Delete("/{campaignId}", controllers.AdminDeleteCampaign(svc.Campaigns, logg))
		})

		r.Route("/influencers", func(r chi.Router) {
			r.Get("/", controllers.AdminListInfluencers(svc.Influencers, logg))
			r.Post("/", controllers.AdminCreateInfluencer(svc.Influencers, logg))
			r.Get("/{influencerId}", controllers.AdminGetInfluencer(svc.Influencers, logg))
			r.Put("/{influencerId}", controllers.AdminUpdateInfluencer(svc.Influencers, logg))
			r.Delete("/{influencerId}", controllers.AdminDeleteInfluencer(svc.Influencers, logg))
		})

		r.Get("/products/{productId}/variants", controllers.AdminListVariants(svc.Products, logg))
		r.Put("/products/{productId}/stock", controllers.AdminSetProductStock(svc.Products, logg))
		r.Put("/variants/{variantId}/stock", controllers.AdminSetVariantStock(svc.Products, logg))

		r.Route("/outbox/dead-letters", func(r chi.Router) {
			r.Get("/", controllers.AdminListDeadLetters(svc.DeadLetters, logg))
			r.Get("/{eventId}", controllers.AdminGetDeadLetter(svc.DeadLetters, logg))
		})
	})

	return r
}
