package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/catalogd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/catalogd/internal/logger"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type group struct {
	name string
	reg  Registrar
	mws  []Middleware
}

var groups []group

// Register adds a named route group from an init function. Middlewares
// apply to every route of the group.
func Register(name string, reg Registrar, mws ...Middleware) {
	groups = append(groups, group{name: name, reg: reg, mws: mws})
}

// RegisterAll mounts every group on r. Called once by the server.
func RegisterAll(r chi.Router, d deps.Deps) {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		if len(g.mws) == 0 {
			g.reg(r, d)
		} else {
			g.reg(r.With(g.mws...), d)
		}
		names = append(names, g.name)
	}
	d.Logger.Debug("routes registered", logger.Strings("groups", names))
}
