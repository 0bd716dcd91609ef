package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/packcredits/backend/api/routes"
	"github.com/packcredits/backend/internal/accounts"
	"github.com/packcredits/backend/internal/cart"
	checkoutsvc "github.com/packcredits/backend/internal/checkout"
	"github.com/packcredits/backend/internal/ledger"
	"github.com/packcredits/backend/internal/notifications"
	"github.com/packcredits/backend/internal/orders"
	"github.com/packcredits/backend/internal/packs"
	"github.com/packcredits/backend/internal/reconcile"
	"github.com/packcredits/backend/pkg/config"
	"github.com/packcredits/backend/pkg/db"
	"github.com/packcredits/backend/pkg/logger"
	"github.com/packcredits/backend/pkg/metrics"
	"github.com/packcredits/backend/pkg/migrate"
	"github.com/packcredits/backend/pkg/redis"
	"github.com/packcredits/backend/pkg/signature"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	packService := packs.NewService(packs.NewRepository(dbClient.DB()))
	cartService := cart.NewService(redisClient, cfg.Cart.TTL)

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	checkoutService := checkoutsvc.NewService(cartService, packs.NewRepository(dbClient.DB()), orderRepo, logg)

	var notifier notifications.Notifier = notifications.Noop{}
	if cfg.Mailer.RelayURL != "" {
		mailer, err := notifications.NewRelayClient(cfg.Mailer)
		if err != nil {
			logg.Error(context.Background(), "failed to create mail relay client", err)
			os.Exit(1)
		}
		notifier = notifications.NewService(accounts.NewDirectory(dbClient.DB()), mailer, cfg.Mailer.FromAddress, logg)
	} else {
		logg.Warn(context.Background(), "mail relay not configured, purchase confirmations disabled")
	}

	reconcileMetrics := metrics.NewReconcileMetrics(prometheus.DefaultRegisterer)
	reconcileService, err := reconcile.NewService(orderRepo, ledgerService, notifier, reconcileMetrics, logg, cfg.Gateway.Name)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	verifier, err := signature.NewHMACVerifier(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create signature verifier", err)
		os.Exit(1)
	}

	webhookGuard, err := reconcile.NewIdempotencyGuard(redisClient, cfg.Gateway.EventDedupeTTL, "payment-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
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
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DBPinger:     dbClient,
			Redis:        redisClient,
			Packs:        packService,
			Cart:         cartService,
			Checkout:     checkoutService,
			Orders:       orderService,
			Ledger:       ledgerService,
			Reconcile:    reconcileService,
			Verifier:     verifier,
			WebhookGuard: webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
