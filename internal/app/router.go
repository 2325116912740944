package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/anungis437/nzila-os-sub012/internal/assignments"
	"github.com/anungis437/nzila-os-sub012/internal/authz"
	"github.com/anungis437/nzila-os-sub012/internal/exceptions"
	"github.com/anungis437/nzila-os-sub012/internal/ledger"
	"github.com/anungis437/nzila-os-sub012/internal/observability"
	"github.com/anungis437/nzila-os-sub012/internal/roles"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	RolesHandler       *roles.Handler
	AssignmentsHandler *assignments.Handler
	ExceptionsHandler  *exceptions.Handler
	AuthzHandler       *authz.Handler
	LedgerHandler      *ledger.Handler
	AuthzMiddleware    authz.Middleware
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if params.RolesHandler != nil {
			api.Group(func(g chi.Router) {
				g.Use(params.AuthzMiddleware.RequirePermission("governance:roles:manage"))
				params.RolesHandler.MountRoutes(g)
			})
		}
		if params.AssignmentsHandler != nil {
			api.Group(func(g chi.Router) {
				g.Use(params.AuthzMiddleware.RequirePermission("governance:assignments:manage"))
				params.AssignmentsHandler.MountRoutes(g)
			})
		}
		if params.ExceptionsHandler != nil {
			api.Group(func(g chi.Router) {
				g.Use(params.AuthzMiddleware.RequirePermission("governance:exceptions:manage"))
				params.ExceptionsHandler.MountRoutes(g)
			})
		}
		if params.AuthzHandler != nil {
			params.AuthzHandler.MountRoutes(api)
		}
		if params.LedgerHandler != nil {
			api.Group(func(g chi.Router) {
				g.Use(params.AuthzMiddleware.RequirePermission("governance:audit:review"))
				params.LedgerHandler.MountRoutes(g)
			})
		}
	})

	return r
}
