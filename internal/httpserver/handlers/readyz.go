package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/catalogd/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready   bool     `json:"ready"`
	Tenants []string `json:"tenants"`
}

// Readyz reports ready once the default tenant's catalog is hydrated.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenants := d.Registry.Tenants()
		ready := false
		for _, t := range tenants {
			if t == d.DefaultTenant {
				ready = true
				break
			}
		}

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(d, w, status, readyzResponse{
			Ready:   ready,
			Tenants: tenants,
		})
	}
}
