package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/catalogd/internal/catalog"
	"github.com/MrSnakeDoc/catalogd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/catalogd/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/catalogd/internal/httpserver/mw"
)

func init() { Register("catalog", registerCatalog) }

func registerCatalog(r chi.Router, d deps.Deps) {
	// one limiter shared by every mutation route
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:        d.RateBurst,
		RefillPerMin: d.RatePerMin,
		MaxEntries:   10000,
		TrustProxy:   d.TrustProxy,
		Key:          mw.ClientTenantKey,
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))

		mount(api, d, limit, catalog.KindCourses, handlers.Courses, func(r chi.Router) {
			r.With(limit).Put("/{id}/status", handlers.UpdateStatus(d, handlers.Courses))
		})
		mount(api, d, limit, catalog.KindJobs, handlers.Jobs)
		mount(api, d, limit, catalog.KindTests, handlers.Tests)
	})
}

func mount[T catalog.Entity[T], P any](r chi.Router, d deps.Deps, limit Middleware, kind string, pick handlers.Picker[T, P], extra ...func(chi.Router)) {
	r.Route("/"+kind, func(r chi.Router) {
		r.Get("/", handlers.List(d, pick))
		r.Get("/{id}", handlers.Get(d, pick))
		r.With(limit).Post("/", handlers.Create(d, pick))
		r.With(limit).Patch("/{id}", handlers.Update(d, pick))
		r.With(limit).Delete("/{id}", handlers.Delete(d, pick))
		for _, fn := range extra {
			fn(r)
		}
	})
}
