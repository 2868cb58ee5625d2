package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zaliuojibanga/shop-core/api/routes"
	"github.com/zaliuojibanga/shop-core/internal/cart"
	"github.com/zaliuojibanga/shop-core/internal/catalog"
	"github.com/zaliuojibanga/shop-core/internal/checkout"
	"github.com/zaliuojibanga/shop-core/internal/inventory"
	"github.com/zaliuojibanga/shop-core/internal/orders"
	"github.com/zaliuojibanga/shop-core/internal/payments"
	"github.com/zaliuojibanga/shop-core/internal/pricing"
	"github.com/zaliuojibanga/shop-core/internal/promotions"
	"github.com/zaliuojibanga/shop-core/internal/shipping"
	"github.com/zaliuojibanga/shop-core/pkg/config"
	"github.com/zaliuojibanga/shop-core/pkg/db"
	"github.com/zaliuojibanga/shop-core/pkg/instance"
	"github.com/zaliuojibanga/shop-core/pkg/logger"
	"github.com/zaliuojibanga/shop-core/pkg/metrics"
	"github.com/zaliuojibanga/shop-core/pkg/migrate"
	"github.com/zaliuojibanga/shop-core/pkg/outbox"
	"github.com/zaliuojibanga/shop-core/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient)
	requireResource(logg, "dev migrations", err)

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	checkoutMx := metrics.NewCheckoutMetrics(registry)
	jobMx := metrics.NewJobMetrics(registry)

	gormDB := dbClient.DB()
	catalogRepo := catalog.NewRepository(gormDB)
	rates := pricing.NewRateSource(gormDB)
	ruleRepo := promotions.NewRuleRepository(gormDB)
	couponRepo := promotions.NewCouponRepository(gormDB)
	shippingRepo := shipping.NewRepository(gormDB)
	estimator := shipping.NewEstimator(gormDB, shipping.NewHolidaySource(gormDB))
	feeRepo := checkout.NewFeeRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	inventorySvc, err := inventory.NewService(gormDB)
	requireResource(logg, "inventory service", err)

	cartSvc, err := cart.NewService(cartRepo, dbClient, catalogRepo, inventorySvc, cfg.Checkout.MaxQtyPerLine)
	requireResource(logg, "cart service", err)

	engine, err := checkout.NewPreviewEngine(
		cartRepo,
		catalogRepo,
		inventorySvc,
		rates,
		ruleRepo,
		couponRepo,
		shippingRepo,
		feeRepo,
		cfg.Checkout.Currency,
		cfg.Shipping.TaxClassCode,
	)
	requireResource(logg, "preview engine", err)

	providers, err := payments.NewRegistry(cfg.Payments)
	requireResource(logg, "payment providers", err)

	checkoutSvc, err := checkout.NewService(
		checkout.NewRepository(gormDB),
		dbClient,
		engine,
		cartRepo,
		cartSvc,
		inventorySvc,
		couponRepo,
		shippingRepo,
		providers,
		outboxSvc,
		cfg.Checkout,
		cfg.Payments.BankTransferInstructions,
		checkoutMx,
		jobMx,
		logg,
	)
	requireResource(logg, "checkout service", err)

	ordersSvc, err := orders.NewService(orders.NewRepository(gormDB))
	requireResource(logg, "orders service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			gormDB,
			redisClient,
			registry,
			cartSvc,
			checkoutSvc,
			ordersSvc,
			shippingRepo,
			estimator,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to bootstrap "+resource, err)
	os.Exit(1)
}
