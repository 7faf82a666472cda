package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/catalogd/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Backend       string  `json:"backend"`
	Tenants       int     `json:"tenants"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
}

// Healthz reports liveness only; it never touches the backend.
func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status:        "ok",
			UptimeSeconds: time.Since(d.StartTime).Seconds(),
			Backend:       "none",
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
		}
		if d.Registry != nil {
			resp.Tenants = len(d.Registry.Tenants())
			if b := d.Registry.Backend(); b != nil {
				resp.Backend = b.Name()
			}
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(d, w, http.StatusOK, resp)
	}
}
