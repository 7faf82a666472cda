package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/catalogd/internal/catalog"
	"github.com/MrSnakeDoc/catalogd/internal/domain"
	"github.com/MrSnakeDoc/catalogd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/catalogd/internal/httpserver/mw"
	"github.com/MrSnakeDoc/catalogd/internal/logger"
	"github.com/MrSnakeDoc/catalogd/internal/tenant"
)

// Picker selects one collection from a tenant catalog.
type Picker[T catalog.Entity[T], P any] func(*tenant.Catalog) *catalog.Store[T, P]

func Courses(c *tenant.Catalog) *catalog.CourseStore       { return c.Courses }
func Jobs(c *tenant.Catalog) *catalog.JobPostingStore      { return c.Jobs }
func Tests(c *tenant.Catalog) *catalog.AssessmentTestStore { return c.Tests }

// persistCtx detaches hydration and durable writes from the request, so a
// client disconnect or the server timeout cannot cancel them half way. Each
// backend call is still bounded by the cache timeout.
func persistCtx(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func resolve[T catalog.Entity[T], P any](d deps.Deps, r *http.Request, pick Picker[T, P]) (*catalog.Store[T, P], error) {
	id := r.Header.Get(mw.TenantHeader)
	if id == "" {
		id = d.DefaultTenant
	}
	c, err := d.Registry.Get(persistCtx(r), id)
	if err != nil {
		return nil, err
	}
	return pick(c), nil
}

// List serves GET /api/{kind}?all=true&order=insertion.
func List[T catalog.Entity[T], P any](d deps.Deps, pick Picker[T, P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := resolve(d, r, pick)
		if err != nil {
			writeError(d, w, err)
			return
		}

		q := r.URL.Query()
		all, _ := strconv.ParseBool(q.Get("all"))
		items := s.ListBy(catalog.Query{
			IncludeAll: all,
			Order:      catalog.ParseOrder(q.Get("order")),
		})
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(d, w, http.StatusOK, items)
	}
}

// Get serves GET /api/{kind}/{id}.
func Get[T catalog.Entity[T], P any](d deps.Deps, pick Picker[T, P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := resolve(d, r, pick)
		if err != nil {
			writeError(d, w, err)
			return
		}

		id := chi.URLParam(r, "id")
		e, ok := s.Get(id)
		if !ok {
			writeError(d, w, fmt.Errorf("%w: %s %q", catalog.ErrNotFound, s.Kind(), id))
			return
		}
		writeJSON(d, w, http.StatusOK, e)
	}
}

// Create serves POST /api/{kind}.
func Create[T catalog.Entity[T], P any](d deps.Deps, pick Picker[T, P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := resolve(d, r, pick)
		if err != nil {
			writeError(d, w, err)
			return
		}

		var e T
		if err := decode(w, r, &e); err != nil {
			writeError(d, w, err)
			return
		}

		added, err := s.Add(persistCtx(r), e)
		if err != nil {
			d.Logger.Debug("add rejected",
				logger.String("kind", s.Kind()),
				logger.Error(err))
			writeError(d, w, err)
			return
		}

		d.Logger.Info("entity created",
			logger.String("kind", s.Kind()),
			logger.String("id", added.Key()))
		w.Header().Set("Location", r.URL.Path+"/"+added.Key())
		writeJSON(d, w, http.StatusCreated, added)
	}
}

// Update serves PATCH /api/{kind}/{id}.
func Update[T catalog.Entity[T], P any](d deps.Deps, pick Picker[T, P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := resolve(d, r, pick)
		if err != nil {
			writeError(d, w, err)
			return
		}

		var patch P
		if err := decode(w, r, &patch); err != nil {
			writeError(d, w, err)
			return
		}

		id := chi.URLParam(r, "id")
		updated, ok := s.Update(persistCtx(r), id, patch)
		if !ok {
			writeError(d, w, fmt.Errorf("%w: %s %q", catalog.ErrNotFound, s.Kind(), id))
			return
		}
		writeJSON(d, w, http.StatusOK, updated)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus serves PUT /api/courses/{id}/status.
func UpdateStatus[T catalog.Entity[T], P any](d deps.Deps, pick Picker[T, P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := resolve(d, r, pick)
		if err != nil {
			writeError(d, w, err)
			return
		}

		var req statusRequest
		if err := decode(w, r, &req); err != nil {
			writeError(d, w, err)
			return
		}
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			writeError(d, w, fmt.Errorf("%w: %w", catalog.ErrInvalidStatus, err))
			return
		}

		id := chi.URLParam(r, "id")
		updated, ok, err := s.UpdateStatus(persistCtx(r), id, status)
		switch {
		case err != nil:
			writeError(d, w, err)
		case !ok:
			writeError(d, w, fmt.Errorf("%w: %s %q", catalog.ErrNotFound, s.Kind(), id))
		default:
			d.Logger.Info("status changed",
				logger.String("kind", s.Kind()),
				logger.String("id", id),
				logger.String("status", string(status)))
			writeJSON(d, w, http.StatusOK, updated)
		}
	}
}

// Delete serves DELETE /api/{kind}/{id}.
func Delete[T catalog.Entity[T], P any](d deps.Deps, pick Picker[T, P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := resolve(d, r, pick)
		if err != nil {
			writeError(d, w, err)
			return
		}

		id := chi.URLParam(r, "id")
		if err := s.Delete(persistCtx(r), id); err != nil {
			writeError(d, w, err)
			return
		}

		d.Logger.Info("entity deleted",
			logger.String("kind", s.Kind()),
			logger.String("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}
