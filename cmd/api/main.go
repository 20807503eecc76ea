package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sokonihq/sokoni-backend/api/routes"
	"github.com/sokonihq/sokoni-backend/internal/agents"
	"github.com/sokonihq/sokoni-backend/internal/audit"
	"github.com/sokonihq/sokoni-backend/internal/cart"
	"github.com/sokonihq/sokoni-backend/internal/commission"
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
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	gdb := dbClient.DB()
	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)

	settingsService, err := settings.NewService(settings.NewRepository(gdb), cfg.Delivery)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}
	pricingService, err := commission.NewPricingService(settingsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}
	walletService, err := wallet.NewService(wallet.NewRepository(gdb))
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}
	auditor := audit.NewRecorder()
	escrowService, err := escrow.NewService(escrow.NewRepository(gdb), walletService, auditor, dbClient, orderMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create escrow service", err)
		os.Exit(1)
	}
	mail, err := mailer.New(cfg.SMTP)
	if err != nil {
		logg.Error(context.Background(), "failed to create mailer", err)
		os.Exit(1)
	}
	notifier, err := notifications.NewService(mail, logg, cfg.App.AdminEmail)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}
	agentService, err := agents.NewService(agents.NewRepository(gdb))
	if err != nil {
		logg.Error(context.Background(), "failed to create agent service", err)
		os.Exit(1)
	}
	referralService, err := referrals.NewService(referrals.NewRepository(gdb))
	if err != nil {
		logg.Error(context.Background(), "failed to create referral service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
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
		Metrics:   orderMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:  cfg,
			Logger:  logg,
			DB:      dbClient,
			Redis:   redisClient,
			Orders:  orderService,
			Escrow:  escrowService,
			Wallets: walletService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
