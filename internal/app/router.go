package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/msmebazaar/platform/internal/auth"
	"github.com/msmebazaar/platform/internal/gamification"
	"github.com/msmebazaar/platform/internal/loans"
	"github.com/msmebazaar/platform/internal/matchmaking"
	"github.com/msmebazaar/platform/internal/mlmonitor"
	"github.com/msmebazaar/platform/internal/observability"
	"github.com/msmebazaar/platform/internal/payments"
	"github.com/msmebazaar/platform/internal/profiles"
	"github.com/msmebazaar/platform/internal/recommendations"
	"github.com/msmebazaar/platform/internal/sellers"
	"github.com/msmebazaar/platform/internal/txmatch"
	"github.com/msmebazaar/platform/jobs"
)

// RouterParams aggregates every handler the gateway mounts. Nil entries are
// skipped so partial deployments and tests can mount a subset.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	Auth            *auth.Handler
	Sellers         *sellers.Handler
	Profiles        *profiles.Handler
	Loans           *loans.Handler
	Payments        *payments.Handler
	Matchmaking     *matchmaking.Handler
	Recommendations *recommendations.Handler
	Gamification    *gamification.Handler
	TxMatch         *txmatch.Handler
	MLMonitor       *mlmonitor.Handler
	Jobs            *jobs.Handler
}

// NewRouter assembles the platform gateway: the shared middleware stack plus
// every service mounted under its /api prefix.
func NewRouter(params RouterParams) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.Auth != nil {
		r.Route("/api/auth", params.Auth.MountRoutes)
	}
	if params.Sellers != nil {
		r.Route("/api/sellers", params.Sellers.MountRoutes)
	}
	if params.Profiles != nil {
		r.Route("/api/profiles", params.Profiles.MountRoutes)
	}
	if params.Loans != nil {
		r.Route("/api/loans", params.Loans.MountRoutes)
	}
	if params.Payments != nil {
		r.Route("/api/payments", params.Payments.MountRoutes)
	}
	if params.Matchmaking != nil {
		r.Route("/api/matchmaking", params.Matchmaking.MountRoutes)
	}
	if params.Recommendations != nil {
		r.Route("/api/recommendations", params.Recommendations.MountRoutes)
	}
	if params.Gamification != nil {
		r.Route("/api/gamification", params.Gamification.MountRoutes)
	}
	if params.TxMatch != nil {
		r.Route("/api/txmatch", params.TxMatch.MountRoutes)
	}
	if params.MLMonitor != nil {
		r.Route("/api/mlmonitor", params.MLMonitor.MountRoutes)
	}
	if params.Jobs != nil {
		r.Route("/api/jobs", params.Jobs.MountRoutes)
	}
	return r
}
