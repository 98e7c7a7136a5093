package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caiomonteiro/imovia-backend/api/controllers"
	admincontrollers "github.com/caiomonteiro/imovia-backend/api/controllers/admin"
	feedcontrollers "github.com/caiomonteiro/imovia-backend/api/controllers/feed"
	webhookcontrollers "github.com/caiomonteiro/imovia-backend/api/controllers/webhooks"
	"github.com/caiomonteiro/imovia-backend/api/middleware"
	"github.com/caiomonteiro/imovia-backend/pkg/config"
	"github.com/caiomonteiro/imovia-backend/pkg/db"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
	"github.com/caiomonteiro/imovia-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers. Grouping them in a
// struct keeps main readable as the surface grows.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          redis.Pinger
	Gatherer       prometheus.Gatherer
	WebhookService webhookcontrollers.AsaasWebhookService
	FeedGenerator  feedcontrollers.Generator
	PaymentLister  admincontrollers.PaymentLister
	WebhookMonitor admincontrollers.WebhookMonitor
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
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/asaas", webhookcontrollers.AsaasWebhook(deps.WebhookService, logg))
		r.Get("/feed/vivareal", feedcontrollers.VivaReal(cfg.Feed, deps.FeedGenerator, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminAuth, logg))
		r.Get("/brokers/{brokerId}/payments", admincontrollers.ListBrokerPayments(deps.PaymentLister, logg))
		r.Get("/webhooks", admincontrollers.ListWebhooks(deps.WebhookMonitor, logg))
		r.Post("/webhooks/{webhookId}/retry", admincontrollers.RetryWebhook(deps.WebhookMonitor, logg))
	})

	return r
}
