// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services without embedding business logic so transport concerns stay
// isolated.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"balangay/internal/platform/middleware"
)

// NewRouter wires all endpoints. Signup is called by the front-end on
// behalf of a freshly authenticated identity and carries no principal yet;
// everything else requires a bearer token naming the acting principal.
func NewRouter(h *Handler, validator middleware.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestMetadata)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/principals", h.handleCreatePrincipal)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))

		r.Post("/access/check", h.handleCheckAccess)
		r.Post("/principals/{id}/deactivate", h.handleDeactivatePrincipal)
		r.Post("/households", h.handleCreateHousehold)
		r.Get("/households/{code}", h.handleGetHousehold)
		r.Post("/households/migrate", h.handleMigrateLegacyCodes)
	})

	return r
}
