package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/api/controllers"
	"github.com/zaliuojibanga/shop-core/api/middleware"
	"github.com/zaliuojibanga/shop-core/internal/cart"
	checkoutsvc "github.com/zaliuojibanga/shop-core/internal/checkout"
	"github.com/zaliuojibanga/shop-core/internal/orders"
	"github.com/zaliuojibanga/shop-core/internal/shipping"
	"github.com/zaliuojibanga/shop-core/pkg/config"
	"github.com/zaliuojibanga/shop-core/pkg/logger"
	"github.com/zaliuojibanga/shop-core/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	shippingRepo shipping.Repository,
	estimator *shipping.Estimator,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutIPLimit,
		cfg.RateLimit.CheckoutUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, db, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.CartSession(cfg.JWT, logg))
				r.Use(middleware.Idempotency(redisClient, logg))
				r.Get("/", controllers.CartFetch(cartService, logg))
				r.Post("/items", controllers.CartAddItem(cartService, logg))
				r.Patch("/items/{itemID}", controllers.CartUpdateItem(cartService, logg))
				r.Delete("/items/{itemID}", controllers.CartRemoveItem(cartService, logg))
			})
			r.With(middleware.Auth(cfg.JWT, logg)).Post("/merge", controllers.CartMerge(cartService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/consents", controllers.CheckoutConsents(cfg))
			r.Get("/shipping-methods", controllers.CheckoutShippingMethods(shippingRepo, estimator, cfg, logg))
			r.Get("/payment-methods", controllers.CheckoutPaymentMethods(cfg))

			r.With(middleware.CartSession(cfg.JWT, logg)).Post("/preview", controllers.CheckoutPreview(checkoutService, cfg, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, logg))
				r.Use(middleware.RateLimit(checkoutPolicy, redisClient, logg))
				r.Use(middleware.Idempotency(redisClient, logg))
				r.Post("/confirm", controllers.CheckoutConfirm(checkoutService, cfg, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/", controllers.OrdersList(ordersService, logg))
			r.Get("/{orderID}", controllers.OrdersDetail(ordersService, logg))
		})
	})

	return r
}
