// Package tenant keeps one set of catalog stores per tenant.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"

	"github.com/MrSnakeDoc/catalogd/internal/cache"
	"github.com/MrSnakeDoc/catalogd/internal/catalog"
	"github.com/MrSnakeDoc/catalogd/internal/domain"
	"github.com/MrSnakeDoc/catalogd/internal/logger"
	"github.com/MrSnakeDoc/catalogd/internal/seed"
	"github.com/MrSnakeDoc/catalogd/internal/store"
)

var (
	// ErrInvalidTenant is returned for tenant ids outside [a-z0-9-]{1,64}.
	ErrInvalidTenant = errors.New("invalid tenant id")
	// ErrUnknownTenant is returned for tenants outside the allow list.
	ErrUnknownTenant = errors.New("unknown tenant")
	// ErrTenantLimit is returned when a new tenant would exceed MaxTenants.
	ErrTenantLimit = errors.New("tenant limit reached")
)

var idPattern = regexp.MustCompile(`^[a-z0-9-]{1,64}$`)

// ValidID reports whether id can name a tenant.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Catalog groups the collections of one tenant.
type Catalog struct {
	Tenant  string
	Courses *catalog.CourseStore
	Jobs    *catalog.JobPostingStore
	Tests   *catalog.AssessmentTestStore
}

// Flush re-pushes every collection to its repository. It reports false when
// a collection was skipped because its durable copy could not be read yet.
func (c *Catalog) Flush(ctx context.Context) bool {
	courses := c.Courses.Flush(ctx)
	jobs := c.Jobs.Flush(ctx)
	tests := c.Tests.Flush(ctx)
	return courses && jobs && tests
}

// Health reports the durable mirror state of each collection. Collections
// without a durable mirror are omitted.
func (c *Catalog) Health() []cache.Health {
	var out []cache.Health
	for _, r := range []any{c.Courses.Repository(), c.Jobs.Repository(), c.Tests.Repository()} {
		if h, ok := r.(interface{ Health() cache.Health }); ok {
			out = append(out, h.Health())
		}
	}
	return out
}

// Options configures a Registry.
type Options struct {
	// Backend mirrors collections durably. Nil keeps everything in memory.
	Backend store.Backend
	// Seed is copied into every new tenant.
	Seed   seed.Dataset
	Logger logger.Logger
	// StoreOptions are passed to every catalog.New call.
	StoreOptions []catalog.Option
	// CacheOptions are passed to every durable repository.
	CacheOptions []cache.DurableOption
	// Allowed restricts the tenants that may be created. Empty allows any
	// valid id.
	Allowed []string
	// MaxTenants caps how many tenants are kept. Zero means no cap.
	MaxTenants int
}

// entry is one tenant slot. ready is closed once c is built.
type entry struct {
	ready chan struct{}
	c     *Catalog
}

func (e *entry) built() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// Registry lazily builds a Catalog the first time a tenant is seen.
type Registry struct {
	opts Options
	log  logger.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry(opts Options) *Registry {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Registry{
		opts:    opts,
		log:     log,
		entries: make(map[string]*entry),
	}
}

// Get returns the tenant's catalog, hydrating it on first use. Hydration
// runs outside the registry lock; concurrent callers for the same tenant
// wait for the first one.
func (r *Registry) Get(ctx context.Context, tenant string) (*Catalog, error) {
	if !ValidID(tenant) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTenant, tenant)
	}

	r.mu.Lock()
	e, ok := r.entries[tenant]
	if !ok {
		if err := r.admitLocked(tenant); err != nil {
			r.mu.Unlock()
			return nil, err
		}
		e = &entry{ready: make(chan struct{})}
		r.entries[tenant] = e
	}
	r.mu.Unlock()

	if ok {
		select {
		case <-e.ready:
			return e.c, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e.c = r.build(ctx, tenant)
	close(e.ready)
	r.log.Info("tenant catalog ready",
		logger.String("tenant", tenant),
		logger.Int("courses", e.c.Courses.Len()),
		logger.Int("jobs", e.c.Jobs.Len()),
		logger.Int("tests", e.c.Tests.Len()))
	return e.c, nil
}

func (r *Registry) admitLocked(tenant string) error {
	if len(r.opts.Allowed) > 0 && !slices.Contains(r.opts.Allowed, tenant) {
		return fmt.Errorf("%w: %q", ErrUnknownTenant, tenant)
	}
	if r.opts.MaxTenants > 0 && len(r.entries) >= r.opts.MaxTenants {
		return fmt.Errorf("%w: %d", ErrTenantLimit, r.opts.MaxTenants)
	}
	return nil
}

func (r *Registry) build(ctx context.Context, tenant string) *Catalog {
	data := r.opts.Seed.Clone()
	opts := append([]catalog.Option{catalog.WithLogger(logger.With(r.log, logger.String("tenant", tenant)))}, r.opts.StoreOptions...)

	return &Catalog{
		Tenant: tenant,
		Courses: catalog.New(ctx, catalog.CoursePolicy(),
			repository[domain.Course](r, tenant, catalog.KindCourses), data.Courses, opts...),
		Jobs: catalog.New(ctx, catalog.JobPostingPolicy(),
			repository[domain.JobPosting](r, tenant, catalog.KindJobs), data.Jobs, opts...),
		Tests: catalog.New(ctx, catalog.AssessmentTestPolicy(),
			repository[domain.AssessmentTest](r, tenant, catalog.KindTests), data.Tests, opts...),
	}
}

func repository[T any](r *Registry, tenant, kind string) catalog.Repository[T] {
	if r.opts.Backend == nil {
		return cache.NewMemory[T]()
	}
	return cache.NewDurable[T](r.opts.Backend, store.CollectionKey(tenant, kind), r.log, r.opts.CacheOptions...)
}

// Discover hydrates every tenant that already has collections in the
// backend. Backends that cannot enumerate keys are skipped.
func (r *Registry) Discover(ctx context.Context) ([]string, error) {
	lister, ok := r.opts.Backend.(store.Lister)
	if !ok {
		return nil, nil
	}

	keys, err := lister.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection keys: %w", err)
	}

	var found []string
	for _, key := range keys {
		tenant, _, err := store.ParseCollectionKey(key)
		if err != nil || !ValidID(tenant) {
			r.log.Warn("ignoring unrecognized key", logger.String("key", key))
			continue
		}
		if slices.Contains(found, tenant) {
			continue
		}
		if _, err := r.Get(ctx, tenant); err != nil {
			if errors.Is(err, ErrUnknownTenant) || errors.Is(err, ErrTenantLimit) {
				r.log.Warn("not hydrating stored tenant",
					logger.String("tenant", tenant),
					logger.Error(err))
				continue
			}
			return found, err
		}
		found = append(found, tenant)
	}
	slices.Sort(found)
	return found, nil
}

// Tenants lists the tenants hydrated so far, sorted.
func (r *Registry) Tenants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.entries))
	for t, e := range r.entries {
		if e.built() {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// Each calls fn for every hydrated tenant in id order.
func (r *Registry) Each(fn func(*Catalog)) {
	for _, t := range r.Tenants() {
		r.mu.Lock()
		e := r.entries[t]
		r.mu.Unlock()
		fn(e.c)
	}
}

// Backend returns the durable backend, or nil.
func (r *Registry) Backend() store.Backend { return r.opts.Backend }
