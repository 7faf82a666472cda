package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/catalogd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/catalogd/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/catalogd/internal/httpserver/mw"
)

func init() { Register("ops", registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	internal := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	internal.Get("/readyz", handlers.Readyz(d))

	restricted := internal.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	restricted.Get("/infra", handlers.Infra(d))
	restricted.Post("/sync", handlers.Sync(d))
}
