package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/catalogd/internal/catalog"
	"github.com/MrSnakeDoc/catalogd/internal/domain"
	"github.com/MrSnakeDoc/catalogd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/catalogd/internal/logger"
	"github.com/MrSnakeDoc/catalogd/internal/tenant"
)

// maxBodyBytes caps request payloads; courses with quizzes stay well below.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

func writeJSON(d deps.Deps, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}

func writeError(d deps.Deps, w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(d, w, statusFor(err), resp)
}

// statusFor maps store and tenant errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrDuplicateIdentity):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, tenant.ErrUnknownTenant):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInvalidEntity),
		errors.Is(err, catalog.ErrInvalidStatus),
		errors.Is(err, catalog.ErrStatusUnsupported),
		errors.Is(err, tenant.ErrInvalidTenant),
		errors.Is(err, tenant.ErrTenantLimit),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadBody = errors.New("invalid request body")

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}
	return nil
}
