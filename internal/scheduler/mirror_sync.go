package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/catalogd/internal/logger"
	"github.com/MrSnakeDoc/catalogd/internal/store"
	"github.com/MrSnakeDoc/catalogd/internal/tenant"
)

// MirrorSyncer periodically re-pushes every tenant's collections to the
// durable cache. Writes after each mutation are best effort, so this closes
// the gap left by a backend outage.
type MirrorSyncer struct {
	registry      *tenant.Registry
	logger        logger.Logger
	interval      time.Duration
	timeout       time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
	now           func() time.Time
}

// NewMirrorSyncer creates a new mirror syncer. manualTrigger may be nil.
func NewMirrorSyncer(
	registry *tenant.Registry,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *MirrorSyncer {
	return &MirrorSyncer{
		registry:      registry,
		logger:        log,
		interval:      interval,
		timeout:       30 * time.Second,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
		now:           time.Now,
	}
}

// Start begins the periodic sync. A zero interval leaves only the manual
// trigger active.
func (ms *MirrorSyncer) Start(ctx context.Context) {
	var ticker *time.Ticker
	var tick <-chan time.Time
	if ms.interval > 0 {
		ticker = time.NewTicker(ms.interval)
		tick = ticker.C
	}

	go func() {
		if ticker != nil {
			defer ticker.Stop()
		}
		for {
			select {
			case <-tick:
				ms.run(ctx)
			case <-ms.manualTrigger:
				ms.logger.Info("manual mirror sync triggered")
				ms.run(ctx)
			case <-ms.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the syncer
func (ms *MirrorSyncer) Stop() {
	close(ms.stopCh)
}

func (ms *MirrorSyncer) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()
	if _, err := ms.Sync(ctx); err != nil {
		ms.logger.Error("mirror sync failed", logger.Error(err))
	}
}

// Sync flushes every hydrated tenant and returns how many were visited. It
// fails without writing when the backend does not answer a ping. Tenants
// whose collections fell back to the seed at startup are re-read first and
// skipped while the backend still cannot serve them.
func (ms *MirrorSyncer) Sync(ctx context.Context) (int, error) {
	backend := ms.registry.Backend()
	if backend == nil {
		ms.logger.Debug("no durable cache configured, skipping mirror sync")
		return 0, nil
	}

	if p, ok := backend.(store.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return 0, fmt.Errorf("%s unreachable: %w", backend.Name(), err)
		}
	}

	start := ms.now()
	count := 0
	var skipped []string
	ms.registry.Each(func(c *tenant.Catalog) {
		if !c.Flush(ctx) {
			skipped = append(skipped, c.Tenant)
		}
		count++
	})

	ms.logger.Info("mirror sync completed",
		logger.String("backend", backend.Name()),
		logger.Int("tenants", count),
		logger.Strings("unconfirmed", skipped),
		logger.Duration("elapsed", ms.now().Sub(start)))

	return count, nil
}
