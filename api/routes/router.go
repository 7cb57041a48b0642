package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/artvault-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/artvault-backend/api/controllers/admin"
	collectorcontrollers "github.com/angelmondragon/artvault-backend/api/controllers/collectors"
	webhookcontrollers "github.com/angelmondragon/artvault-backend/api/controllers/webhooks"
	"github.com/angelmondragon/artvault-backend/api/middleware"
	"github.com/angelmondragon/artvault-backend/internal/balances"
	"github.com/angelmondragon/artvault-backend/internal/banking"
	"github.com/angelmondragon/artvault-backend/internal/fulfillment"
	"github.com/angelmondragon/artvault-backend/internal/ledger"
	"github.com/angelmondragon/artvault-backend/internal/payouts"
	"github.com/angelmondragon/artvault-backend/internal/perks"
	"github.com/angelmondragon/artvault-backend/internal/transactions"
	"github.com/angelmondragon/artvault-backend/internal/vendors"
	"github.com/angelmondragon/artvault-backend/pkg/config"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
	"github.com/angelmondragon/artvault-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/artvault-backend/pkg/redis"
)

// RequestStore backs request idempotency and rate limiting.
type RequestStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// WebhookGuard dedupes storefront deliveries by webhook id.
type WebhookGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

// Dependencies carries the services the HTTP surface is built on.
type Dependencies struct {
	Store        RequestStore
	WebhookGuard WebhookGuard
	Pingers      map[string]controllers.Pinger

	Ledger       ledger.Service
	Balances     balances.Service
	Transactions transactions.Service
	Banking      banking.Service
	Payouts      payouts.Service
	Perks        perks.Service
	Vendors      vendors.Service
	Fulfillment  fulfillment.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	collectorPolicy := middleware.NewRateLimitPolicy("collector", cfg.RateLimit.Window, cfg.RateLimit.CollectorLimit)
	webhookPolicy := middleware.NewRateLimitPolicy("webhook", cfg.RateLimit.Window, cfg.RateLimit.WebhookLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1/webhooks/shopify", func(r chi.Router) {
		r.Use(middleware.RateLimit(webhookPolicy, deps.Store, logg))
		r.Post("/fulfillment", webhookcontrollers.ShopifyFulfillment(deps.Fulfillment, cfg.Shopify.WebhookSecret, deps.WebhookGuard, logg))
		r.Post("/refund", webhookcontrollers.ShopifyRefund(deps.Fulfillment, cfg.Shopify.WebhookSecret, deps.WebhookGuard, logg))
	})

	r.Route("/api/v1/collectors/{"+collectorcontrollers.IdentifierParam+"}", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.CollectorScope(collectorcontrollers.IdentifierParam, logg))
		r.Use(middleware.Idempotency(deps.Store, logg))

		r.Get("/balance", collectorcontrollers.Balance(deps.Balances, logg))
		r.Get("/balance/unified", collectorcontrollers.UnifiedBalance(deps.Banking, logg))
		r.Get("/entries", collectorcontrollers.Entries(deps.Ledger, logg))
		r.Get("/perks", collectorcontrollers.PerkStatus(deps.Perks, logg))
		r.Get("/perks/redemptions", collectorcontrollers.PerkRedemptions(deps.Perks, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(collectorPolicy, deps.Store, logg))
			r.Post("/perks/redeem", collectorcontrollers.RedeemPerk(deps.Perks, logg))
			r.Post("/payments", collectorcontrollers.CreditPayment(deps.Transactions, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleAdmin, logg))
		r.Use(middleware.Idempotency(deps.Store, logg))

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", admincontrollers.PayoutList(deps.Payouts, logg))
			r.Post("/batch", admincontrollers.PayoutBatch(deps.Payouts, logg))
			r.Get("/{payoutId}", admincontrollers.PayoutDetail(deps.Payouts, logg))
			r.Post("/{payoutId}/process", admincontrollers.PayoutProcess(deps.Payouts, logg))
			r.Post("/{payoutId}/withdrawal", admincontrollers.PayoutWithdrawal(deps.Payouts, logg))
		})

		r.Post("/vendors", admincontrollers.VendorRegister(deps.Vendors, logg))
		r.Get("/vendors/balances", admincontrollers.VendorBalances(deps.Banking, logg))
		r.Post("/product-rules", admincontrollers.ProductRule(deps.Vendors, logg))

		r.Get("/integrity", admincontrollers.Integrity(deps.Banking, logg))
		r.Post("/adjustments", admincontrollers.Adjustment(deps.Banking, logg))
		r.Post("/refund-deductions", admincontrollers.RefundDeduction(deps.Banking, logg))
		r.Post("/rewards/series-completion", admincontrollers.SeriesCompletionReward(deps.Transactions, logg))

		r.Get("/collectors/{"+collectorcontrollers.IdentifierParam+"}/entries", collectorcontrollers.Entries(deps.Ledger, logg))
		r.Get("/collectors/{"+collectorcontrollers.IdentifierParam+"}/balance/unified", collectorcontrollers.UnifiedBalance(deps.Banking, logg))
		r.Patch("/perks/{redemptionId}", admincontrollers.PerkRedemptionUpdate(deps.Perks, logg))
	})

	return r
}
