package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zaliuojibanga/shop-core/internal/cart"
	"github.com/zaliuojibanga/shop-core/internal/catalog"
	"github.com/zaliuojibanga/shop-core/internal/checkout"
	"github.com/zaliuojibanga/shop-core/internal/inventory"
	"github.com/zaliuojibanga/shop-core/internal/jobs"
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

const lockKeyFormat = "zb:sweeper:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweeper"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	cfg.Service.Kind = "sweeper"

	logg = logger.New(logger.Options{
		ServiceName: "sweeper",
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

	jobMx := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	checkoutSvc, err := buildCheckoutService(cfg, dbClient, jobMx, logg)
	requireResource(logg, "checkout service", err)

	outboxRepo := outbox.NewRepository(dbClient.DB())

	expiryJob, err := jobs.NewOrderExpiryJob(jobs.OrderExpiryJobParams{
		Logger:   logg,
		Checkout: checkoutSvc,
	})
	requireResource(logg, "order expiry job", err)

	retentionJob, err := jobs.NewOutboxRetentionJob(jobs.OutboxRetentionJobParams{
		Logger:        logg,
		Repository:    outboxRepo,
		RetentionDays: cfg.Jobs.OutboxRetentionDays,
	})
	requireResource(logg, "outbox retention job", err)

	lock, err := jobs.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Jobs.LockTTL)
	requireResource(logg, "sweeper lock", err)

	runner, err := jobs.NewRunner(jobs.RunnerParams{
		Logger:   logg,
		Registry: jobs.NewRegistry(expiryJob, retentionJob),
		Lock:     lock,
		Metrics:  jobMx,
		Interval: cfg.Jobs.SweepInterval,
	})
	requireResource(logg, "sweeper runner", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting sweeper")

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweeper stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sweeper shutting down gracefully")
}

// buildCheckoutService wires the same order lifecycle stack the api serves,
// since expiring a pending order walks the full cancel path.
func buildCheckoutService(cfg *config.Config, dbClient *db.Client, jobMx *metrics.JobMetrics, logg *logger.Logger) (checkout.Service, error) {
	gormDB := dbClient.DB()
	catalogRepo := catalog.NewRepository(gormDB)
	couponRepo := promotions.NewCouponRepository(gormDB)
	shippingRepo := shipping.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)

	inventorySvc, err := inventory.NewService(gormDB)
	if err != nil {
		return nil, err
	}
	cartSvc, err := cart.NewService(cartRepo, dbClient, catalogRepo, inventorySvc, cfg.Checkout.MaxQtyPerLine)
	if err != nil {
		return nil, err
	}
	engine, err := checkout.NewPreviewEngine(
		cartRepo,
		catalogRepo,
		inventorySvc,
		pricing.NewRateSource(gormDB),
		promotions.NewRuleRepository(gormDB),
		couponRepo,
		shippingRepo,
		checkout.NewFeeRepository(gormDB),
		cfg.Checkout.Currency,
		cfg.Shipping.TaxClassCode,
	)
	if err != nil {
		return nil, err
	}
	providers, err := payments.NewRegistry(cfg.Payments)
	if err != nil {
		return nil, err
	}

	return checkout.NewService(
		checkout.NewRepository(gormDB),
		dbClient,
		engine,
		cartRepo,
		cartSvc,
		inventorySvc,
		couponRepo,
		shippingRepo,
		providers,
		outbox.NewService(outbox.NewRepository(gormDB), logg),
		cfg.Checkout,
		cfg.Payments.BankTransferInstructions,
		nil,
		jobMx,
		logg,
	)
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to bootstrap "+resource, err)
	os.Exit(1)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
