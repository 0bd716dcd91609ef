package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packcredits/backend/api/controllers"
	webhookcontrollers "github.com/packcredits/backend/api/controllers/webhooks"
	"github.com/packcredits/backend/api/middleware"
	"github.com/packcredits/backend/internal/cart"
	checkoutsvc "github.com/packcredits/backend/internal/checkout"
	"github.com/packcredits/backend/internal/ledger"
	"github.com/packcredits/backend/internal/orders"
	"github.com/packcredits/backend/internal/packs"
	"github.com/packcredits/backend/internal/reconcile"
	"github.com/packcredits/backend/pkg/config"
	"github.com/packcredits/backend/pkg/logger"
	"github.com/packcredits/backend/pkg/signature"
)

// Pinger is the health-check surface of a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DBPinger Pinger
	Redis    Pinger

	Packs     *packs.Service
	Cart      *cart.Service
	Checkout  *checkoutsvc.Service
	Orders    orders.Service
	Ledger    ledger.Service
	Reconcile *reconcile.Service

	Verifier     signature.Verifier
	WebhookGuard *reconcile.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DBPinger, deps.Redis))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payment", webhookcontrollers.PaymentEvent(deps.Reconcile, deps.Verifier, deps.WebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/packs", controllers.PacksList(deps.Packs, logg))
		r.Get("/packs/{packID}", controllers.PacksGet(deps.Packs, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAccount(logg))

			r.Get("/cart", controllers.CartGet(deps.Cart, logg))
			r.Put("/cart/items", controllers.CartSetItem(deps.Cart, logg))
			r.Delete("/cart", controllers.CartClear(deps.Cart, logg))

			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

			r.Get("/orders", controllers.OrdersList(deps.Orders, logg))
			r.Get("/orders/{orderID}", controllers.OrdersGet(deps.Orders, logg))

			r.Get("/credits/balance", controllers.CreditsBalance(deps.Ledger, logg))
			r.Get("/credits/history", controllers.CreditsHistory(deps.Ledger, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(cfg.Admin.APIToken, logg))

		r.Get("/packs", controllers.AdminPacksList(deps.Packs, logg))
		r.Post("/packs", controllers.AdminPacksCreate(deps.Packs, logg))
		r.Patch("/packs/{packID}", controllers.AdminPacksUpdate(deps.Packs, logg))
		r.Delete("/packs/{packID}", controllers.AdminPacksDeactivate(deps.Packs, logg))

		r.Get("/reconciliation/uncredited", controllers.AdminAuditUncredited(deps.Reconcile, logg))
		r.Post("/reconciliation/orders/{orderID}/repair", controllers.AdminRepairOrder(deps.Reconcile, logg))
		r.Post("/reconciliation/repair", controllers.AdminRepairAll(deps.Reconcile, logg))
	})

	return r
}
