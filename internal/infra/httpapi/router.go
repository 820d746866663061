package httpapi

import (
	"net/http"
	"time"

	"company_account_lifecycle/internal/infra/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RouterDeps collects what NewRouter wires together.
type RouterDeps struct {
	Runner        PipelineRunner
	Notifications NotificationReader
	History       HistoryReader
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer
	AdminToken    string
	TriggerLimit  *rate.Limiter
	Now           func() time.Time
	Logger        *logrus.Entry
}

// NewRouter builds the HTTP surface.
func NewRouter(deps *RouterDeps) http.Handler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	h := &Handler{
		runner:        deps.Runner,
		notifications: deps.Notifications,
		history:       deps.History,
		health:        deps.HealthChecker,
		now:           now,
		logger:        deps.Logger,
	}
	limiter := deps.TriggerLimit
	if limiter == nil {
		limiter = NewManualTriggerLimiter(6)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(deps.Logger))

	r.Get("/health", h.Health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireAdminToken(deps.AdminToken))

		r.Route("/admin", func(r chi.Router) {
			r.With(RateLimit(limiter)).Post("/daily-run", h.RunDaily)
			r.With(RateLimit(limiter)).Post("/notifications/run", h.RunNotifications)
			r.Get("/runs/last", h.LastRun)
		})

		r.Route("/accounts/{id}", func(r chi.Router) {
			r.Get("/notifications", h.ListNotifications)
			r.Get("/history", h.ListHistory)
		})
	})

	return r
}
