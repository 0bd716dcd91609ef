package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/packcredits/backend/internal/accounts"
	"github.com/packcredits/backend/internal/ledger"
	"github.com/packcredits/backend/internal/notifications"
	"github.com/packcredits/backend/internal/orders"
	"github.com/packcredits/backend/internal/reconcile"
	"github.com/packcredits/backend/pkg/config"
	"github.com/packcredits/backend/pkg/db"
	"github.com/packcredits/backend/pkg/logger"
	"github.com/packcredits/backend/pkg/metrics"
)

// The sweeper periodically repairs the window between a paid transition and
// its ledger append: orders marked paid whose credits never landed.
func main() {
	logg := logger.New(logger.Options{ServiceName: "sweeper"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sweeper",
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

	orderRepo := orders.NewRepository(dbClient.DB())
	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	var notifier notifications.Notifier = notifications.Noop{}
	if cfg.Mailer.RelayURL != "" {
		mailer, err := notifications.NewRelayClient(cfg.Mailer)
		if err != nil {
			logg.Error(context.Background(), "failed to create mail relay client", err)
			os.Exit(1)
		}
		notifier = notifications.NewService(accounts.NewDirectory(dbClient.DB()), mailer, cfg.Mailer.FromAddress, logg)
	}

	reconcileMetrics := metrics.NewReconcileMetrics(prometheus.DefaultRegisterer)
	reconcileService, err := reconcile.NewService(orderRepo, ledgerService, notifier, reconcileMetrics, logg, cfg.Gateway.Name)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Sweeper.Interval.String(),
	})
	logg.Info(ctx, "starting audit sweeper")

	ticker := time.NewTicker(cfg.Sweeper.Interval)
	defer ticker.Stop()

	runPass(ctx, logg, cfg, reconcileService)
	for {
		select {
		case <-ctx.Done():
			logg.Info(ctx, "audit sweeper stopping")
			return
		case <-ticker.C:
			runPass(ctx, logg, cfg, reconcileService)
		}
	}
}

func runPass(ctx context.Context, logg *logger.Logger, cfg *config.Config, svc *reconcile.Service) {
	passCtx, cancel := context.WithTimeout(ctx, cfg.Sweeper.PassTimeout)
	defer cancel()

	report, err := svc.RepairAll(passCtx, 0)
	if err != nil {
		logg.Error(passCtx, "audit sweep pass finished with failures", err)
	}
	if report == nil {
		return
	}
	logCtx := logg.WithFields(passCtx, map[string]any{
		"scanned":  report.Scanned,
		"repaired": len(report.Repaired),
		"failed":   len(report.Failed),
	})
	logg.Info(logCtx, "audit sweep pass complete")
}
