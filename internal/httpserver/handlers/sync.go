package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/catalogd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/catalogd/internal/logger"
)

type syncResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// Sync triggers a manual re-push of every collection to the durable cache.
func Sync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.SyncTrigger == nil {
			writeJSON(d, w, http.StatusServiceUnavailable, syncResponse{
				Message: "mirror sync disabled",
			})
			return
		}

		select {
		case d.SyncTrigger <- struct{}{}:
			d.Logger.Info("manual mirror sync triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(d, w, http.StatusAccepted, syncResponse{
				Triggered: true,
				Message:   "sync triggered",
			})
		default:
			d.Logger.Warn("mirror sync already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(d, w, http.StatusTooManyRequests, syncResponse{
				Message: "sync already pending, please wait",
			})
		}
	}
}
