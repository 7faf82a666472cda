package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/catalogd/internal/cache"
	"github.com/MrSnakeDoc/catalogd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/catalogd/internal/store"
	"github.com/MrSnakeDoc/catalogd/internal/tenant"
)

type backendStatus struct {
	OK     bool   `json:"ok"`
	Name   string `json:"name"`
	Mode   string `json:"mode"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type tenantStatus struct {
	Courses     int            `json:"courses"`
	Jobs        int            `json:"jobs"`
	Tests       int            `json:"tests"`
	Collections []cache.Health `json:"collections,omitempty"`
}

type infraResponse struct {
	PersistenceMode string                  `json:"persistence_mode"`
	Backend         backendStatus           `json:"backend"`
	Tenants         map[string]tenantStatus `json:"tenants"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		backend := checkBackend(r.Context(), d.Registry.Backend())

		tenants := make(map[string]tenantStatus)
		degraded := false
		d.Registry.Each(func(c *tenant.Catalog) {
			health := c.Health()
			for _, h := range health {
				degraded = degraded || h.Degraded
			}
			tenants[c.Tenant] = tenantStatus{
				Courses:     c.Courses.Len(),
				Jobs:        c.Jobs.Len(),
				Tests:       c.Tests.Len(),
				Collections: health,
			}
		})

		writeJSON(d, w, http.StatusOK, infraResponse{
			PersistenceMode: determinePersistenceMode(backend, degraded),
			Backend:         backend,
			Tenants:         tenants,
		})
	}
}

func determinePersistenceMode(backend backendStatus, degraded bool) string {
	switch {
	case backend.Mode == "memory-only":
		return "memory-only" // nothing survives a restart
	case !backend.OK || degraded:
		return "degraded" // writes are kept in memory until the next sync
	default:
		return "durable"
	}
}

func checkBackend(ctx context.Context, b store.Backend) backendStatus {
	if b == nil {
		return backendStatus{
			OK:     true,
			Name:   "none",
			Mode:   "memory-only",
			Impact: "changes-lost-on-restart",
		}
	}

	p, ok := b.(store.Pinger)
	if !ok {
		return backendStatus{OK: true, Name: b.Name(), Mode: "optimal"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		return backendStatus{
			OK:     false,
			Name:   b.Name(),
			Mode:   "degraded",
			Impact: "writes-not-mirrored",
			Error:  err.Error(),
		}
	}

	return backendStatus{OK: true, Name: b.Name(), Mode: "optimal"}
}
