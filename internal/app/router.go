package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/erpgate/erpgate/internal/auth"
	"github.com/erpgate/erpgate/internal/invoices"
	"github.com/erpgate/erpgate/internal/items"
	"github.com/erpgate/erpgate/internal/masterdata"
	"github.com/erpgate/erpgate/internal/observability"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AuthService       *auth.Service
	ItemHandler       *items.Handler
	InvoiceHandler    *invoices.Handler
	MasterDataHandler *masterdata.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with gateway defaults. Everything
// under /api/v1 requires an authenticated caller; mutations additionally
// require the write role.
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
		api.Use(auth.Middleware(params.AuthService))

		params.MasterDataHandler.MountRoutes(api)

		api.Group(func(mutations chi.Router) {
			mutations.Use(auth.RequireWrite)
			params.ItemHandler.MountRoutes(mutations)
			params.InvoiceHandler.MountRoutes(mutations)
		})
	})

	return r
}
