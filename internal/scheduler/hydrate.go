package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/catalogd/internal/logger"
	"github.com/MrSnakeDoc/catalogd/internal/tenant"
)

// Hydrator loads tenant catalogs from the durable cache on startup, so the
// first request of a known tenant does not pay for it.
type Hydrator struct {
	registry      *tenant.Registry
	defaultTenant string
	logger        logger.Logger
}

// NewHydrator creates a new startup hydrator
func NewHydrator(registry *tenant.Registry, defaultTenant string, log logger.Logger) *Hydrator {
	return &Hydrator{
		registry:      registry,
		defaultTenant: defaultTenant,
		logger:        log,
	}
}

// Hydrate builds the default tenant and every tenant found in the backend.
// A failure to enumerate the backend is logged; the default tenant is still
// served from seed.
func (h *Hydrator) Hydrate(ctx context.Context) error {
	h.logger.Info("hydrating tenant catalogs")

	if _, err := h.registry.Get(ctx, h.defaultTenant); err != nil {
		return err
	}

	found, err := h.registry.Discover(ctx)
	if err != nil {
		h.logger.Warn("failed to discover tenants from durable cache",
			logger.Error(err))
		return nil
	}

	h.logger.Info("hydrated tenant catalogs",
		logger.Int("discovered", len(found)),
		logger.Strings("tenants", h.registry.Tenants()))

	return nil
}
