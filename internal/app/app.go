package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/catalogd/internal/cache"
	"github.com/MrSnakeDoc/catalogd/internal/config"
	"github.com/MrSnakeDoc/catalogd/internal/httpserver"
	"github.com/MrSnakeDoc/catalogd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/catalogd/internal/logger"
	"github.com/MrSnakeDoc/catalogd/internal/scheduler"
	"github.com/MrSnakeDoc/catalogd/internal/seed"
	"github.com/MrSnakeDoc/catalogd/internal/tenant"
	"github.com/MrSnakeDoc/catalogd/internal/version"
)

type App struct {
	cfg      *config.Config
	logger   logger.Logger
	server   *httpserver.Server
	backend  *backend
	registry *tenant.Registry
	hydrator *scheduler.Hydrator
	syncer   *scheduler.MirrorSyncer
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Load the seed dataset - fail fast if it is broken
	loader := seed.NewLoader(cfg.SeedFile)
	dataset, err := loader.Load()
	if err != nil {
		loggerClient.Errorf("Failed to load seed dataset: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("seed dataset loaded",
		logger.String("source", loader.Source()),
		logger.Int("courses", len(dataset.Courses)),
		logger.Int("jobs", len(dataset.Jobs)),
		logger.Int("tests", len(dataset.Tests)))

	// Initialize the durable cache early - fail fast if unavailable
	b, err := openBackend(cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s cache backend: %v", cfg.CacheBackend, err)
		os.Exit(1)
	}

	registry := tenant.NewRegistry(tenant.Options{
		Backend:      b.store,
		Seed:         dataset,
		Logger:       loggerClient,
		CacheOptions: []cache.DurableOption{cache.WithTimeout(cfg.CacheTimeout)},
		Allowed:      cfg.Tenants,
		MaxTenants:   cfg.MaxTenants,
	})

	// Create manual sync trigger channel
	syncTrigger := make(chan struct{}, 1)

	syncer := scheduler.NewMirrorSyncer(
		registry,
		loggerClient,
		cfg.SyncInterval,
		syncTrigger,
	)

	build := version.Get()

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       build.Version,
		Commit:        build.Commit,
		BuildDate:     build.BuildDate,
		GoVersion:     build.GoVersion,
		TimeNow:       time.Now,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		Registry:      registry,
		DefaultTenant: cfg.DefaultTenant,
		SyncTrigger:   syncTrigger,
		RateBurst:     cfg.RateBurst,
		RatePerMin:    cfg.RatePerMin,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:      cfg,
		logger:   loggerClient,
		server:   server,
		backend:  b,
		registry: registry,
		hydrator: scheduler.NewHydrator(registry, cfg.DefaultTenant, loggerClient),
		syncer:   syncer,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting catalogd v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.Get().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hydrate known tenants before serving traffic
	if err := a.hydrator.Hydrate(ctx); err != nil {
		return fmt.Errorf("failed to hydrate catalogs: %w", err)
	}

	// Start mirror syncer (periodic re-push to the durable cache)
	a.syncer.Start(ctx)
	a.logger.Info("mirror syncer started",
		logger.String("backend", a.backend.name),
		logger.Duration("interval", a.cfg.SyncInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	// Stop syncer
	a.syncer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// Last chance to mirror writes that failed while serving
	if _, err := a.syncer.Sync(shutdownCtx); err != nil {
		a.logger.Warn("final mirror sync failed", logger.Error(err))
	}

	if err := a.backend.close(shutdownCtx); err != nil {
		a.logger.Warnf("failed to close %s: %v", a.backend.name, err)
	} else {
		a.logger.Infof("✅ %s closed cleanly", a.backend.name)
	}

	a.logger.Info("✅ catalogd stopped cleanly")
	return nil
}
