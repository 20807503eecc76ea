package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sokonihq/sokoni-backend/internal/agents"
	"github.com/sokonihq/sokoni-backend/internal/audit"
	"github.com/sokonihq/sokoni-backend/internal/cart"
	"github.com/sokonihq/sokoni-backend/internal/commission"
	"github.com/sokonihq/sokoni-backend/internal/cron"
	"github.com/sokonihq/sokoni-backend/internal/escrow"
	"github.com/sokonihq/sokoni-backend/internal/notifications"
	"github.com/sokonihq/sokoni-backend/internal/orders"
	"github.com/sokonihq/sokoni-backend/internal/pickupsites"
	"github.com/sokonihq/sokoni-backend/internal/products"
	"github.com/sokonihq/sokoni-backend/internal/referrals"
	"github.com/sokonihq/sokoni-backend/internal/settings"
	"github.com/sokonihq/sokoni-backend/internal/users"
	"github.com/sokonihq/sokoni-backend/internal/wallet"
	"github.com/sokonihq/sokoni-backend/pkg/config"
	"github.com/sokonihq/sokoni-backend/pkg/db"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
	"github.com/sokonihq/sokoni-backend/pkg/mailer"
	"github.com/sokonihq/sokoni-backend/pkg/metrics"
	"github.com/sokonihq/sokoni-backend/pkg/migrate"
	"github.com/sokonihq/sokoni-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	orderService, err := buildOrderService(dbClient, cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build order service", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger: logg,
		Orders: orderService,
		TTL:    time.Duration(cfg.Cron.PendingOrderTTLDays) * 24 * time.Hour,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order expiry job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(expiryJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildOrderService wires the full order dependency graph. The expiry
// job only calls ExpireStalePending, but cancellation reverses earnings
// and notifies, so the whole graph comes along.
func buildOrderService(dbClient *db.Client, cfg *config.Config, logg *logger.Logger) (orders.Service, error) {
	gdb := dbClient.DB()

	settingsService, err := settings.NewService(settings.NewRepository(gdb), cfg.Delivery)
	if err != nil {
		return nil, err
	}
	pricingService, err := commission.NewPricingService(settingsService)
	if err != nil {
		return nil, err
	}
	walletService, err := wallet.NewService(wallet.NewRepository(gdb))
	if err != nil {
		return nil, err
	}
	auditor := audit.NewRecorder()
	escrowService, err := escrow.NewService(escrow.NewRepository(gdb), walletService, auditor, dbClient, nil)
	if err != nil {
		return nil, err
	}
	mail, err := mailer.New(cfg.SMTP)
	if err != nil {
		return nil, err
	}
	notifier, err := notifications.NewService(mail, logg, cfg.App.AdminEmail)
	if err != nil {
		return nil, err
	}
	agentService, err := agents.NewService(agents.NewRepository(gdb))
	if err != nil {
		return nil, err
	}
	referralService, err := referrals.NewService(referrals.NewRepository(gdb))
	if err != nil {
		return nil, err
	}

	return orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(gdb),
		Products:  products.NewRepository(gdb),
		Carts:     cart.NewRepository(gdb),
		Sites:     pickupsites.NewRepository(gdb),
		Users:     users.NewRepository(gdb),
		Agents:    agentService,
		Referrals: referralService,
		Pricing:   pricingService,
		Escrow:    escrowService,
		Wallets:   walletService,
		Notifier:  notifier,
		Auditor:   auditor,
		Tx:        dbClient,
		Log:       logg,
	})
}

// lockName scopes the cron lock per environment so staging and prod
// workers sharing a redis never block each other.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
