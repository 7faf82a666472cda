package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MrSnakeDoc/catalogd/internal/domain"
	"github.com/MrSnakeDoc/catalogd/internal/logger"
)

// Order selects how List results are arranged.
type Order string

const (
	// OrderSorted uses the kind's sort key with ties broken by id.
	OrderSorted Order = "sorted"
	// OrderInsertion returns the most recently added entities first.
	OrderInsertion Order = "insertion"
)

// ParseOrder maps a query value to an Order; unknown or empty values fall
// back to OrderSorted.
func ParseOrder(s string) Order {
	if Order(s) == OrderInsertion {
		return OrderInsertion
	}
	return OrderSorted
}

// Query parameterizes ListBy.
type Query struct {
	IncludeAll bool
	Order      Order
}

type options struct {
	log   logger.Logger
	now   func() time.Time
	newID func() string
}

// Option customizes a Store.
type Option func(*options)

// WithLogger sets the logger used for mutation traces.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock overrides the wall clock used for defaults and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides the policy's id generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// Store is the authoritative in-memory collection for one entity kind.
//
// The collection is kept in insertion order, newest first. Every successful
// mutation is immediately visible to readers and then pushed, as a full
// snapshot, to the Repository. Saves are sequenced so an older snapshot never
// overwrites a newer one.
//
// A Store is safe for concurrent use, but it is one shared collection: give
// each tenant its own Store.
type Store[T Entity[T], P any] struct {
	policy Policy[T, P]
	repo   Repository[T]
	log    logger.Logger
	now    func() time.Time
	newID  func() string

	mu    sync.RWMutex
	items []T
	seq   uint64
	// confirmed is false while items came from the seed because the
	// repository could not be read. Flush never writes such a collection.
	confirmed bool

	persistMu sync.Mutex
	persisted uint64
}

// New builds a Store and hydrates it from repo, falling back to seed.
func New[T Entity[T], P any](ctx context.Context, policy Policy[T, P], repo Repository[T], seed []T, opts ...Option) *Store[T, P] {
	o := options{
		log:   logger.NewNop(),
		now:   time.Now,
		newID: policy.NewID,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[T, P]{
		policy: policy,
		repo:   repo,
		log:    o.log,
		now:    o.now,
		newID:  o.newID,
	}

	loaded := repo.Load(ctx, cloneAll(seed))
	s.items = s.dedupe(loaded)
	s.confirmed = true
	if r, ok := repo.(resolver); ok {
		s.confirmed = r.Resolved()
	}

	s.log.Debug("catalog store ready",
		logger.String("kind", policy.Kind),
		logger.String("repository", repo.Name()),
		logger.Int("count", len(s.items)))

	return s
}

// dedupe keeps the first occurrence of every id so a corrupt mirror cannot
// break the uniqueness invariant.
func (s *Store[T, P]) dedupe(items []T) []T {
	seen := make(map[string]bool, len(items))
	out := make([]T, 0, len(items))
	for _, e := range items {
		if seen[e.Key()] {
			s.log.Warn("dropping duplicate entity from loaded collection",
				logger.String("kind", s.policy.Kind),
				logger.String("id", e.Key()))
			continue
		}
		seen[e.Key()] = true
		out = append(out, e.Clone())
	}
	return out
}

// Kind returns the collection name.
func (s *Store[T, P]) Kind() string { return s.policy.Kind }

// Repository returns the backing repository.
func (s *Store[T, P]) Repository() Repository[T] { return s.repo }

// List returns the visible entities (or all of them when includeAll is set)
// in the kind's deterministic order.
func (s *Store[T, P]) List(includeAll bool) []T {
	return s.ListBy(Query{IncludeAll: includeAll, Order: OrderSorted})
}

// ListBy is List with an explicit ordering mode.
func (s *Store[T, P]) ListBy(q Query) []T {
	now := domain.InstantOf(s.now())

	s.mu.RLock()
	out := make([]T, 0, len(s.items))
	for _, e := range s.items {
		if q.IncludeAll || s.policy.Visible(e, now) {
			out = append(out, e.Clone())
		}
	}
	s.mu.RUnlock()

	if q.Order != OrderInsertion {
		slices.SortStableFunc(out, func(a, b T) int {
			if c := s.policy.Compare(a, b); c != 0 {
				return c
			}
			return cmp.Compare(a.Key(), b.Key())
		})
	}
	return out
}

// Get looks an entity up by id. The boolean is false when it does not exist.
func (s *Store[T, P]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.items[i].Clone(), true
	}
	var zero T
	return zero, false
}

// Len returns the number of entities regardless of status.
func (s *Store[T, P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns a copy of the whole collection in insertion order.
func (s *Store[T, P]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.items)
}

// Add validates e, assigns store-owned defaults and prepends it.
func (s *Store[T, P]) Add(ctx context.Context, e T) (T, error) {
	var zero T

	e = e.Clone()
	if err := s.policy.Validate(e); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}
	e = s.policy.Prepare(e, domain.InstantOf(s.now()))

	s.mu.Lock()
	if e.Key() == "" && s.newID != nil {
		id, err := s.uniqueIDLocked()
		if err != nil {
			s.mu.Unlock()
			return zero, err
		}
		e = s.policy.SetID(e, id)
	}
	if e.Key() == "" {
		s.mu.Unlock()
		return zero, fmt.Errorf("%w: %s without id", ErrInvalidEntity, s.policy.Kind)
	}
	if s.indexLocked(e.Key()) >= 0 {
		s.mu.Unlock()
		return zero, fmt.Errorf("%w: %s %q", ErrDuplicateIdentity, s.policy.Kind, e.Key())
	}
	s.items = slices.Insert(s.items, 0, e)
	seq, snap := s.commitLocked()
	s.mu.Unlock()

	s.log.Debug("entity added",
		logger.String("kind", s.policy.Kind),
		logger.String("id", e.Key()))

	s.persist(ctx, seq, snap, false)
	return e.Clone(), nil
}

// maxIDAttempts bounds how many generated ids Add tries before giving up.
const maxIDAttempts = 16

// uniqueIDLocked draws ids until one is unused.
func (s *Store[T, P]) uniqueIDLocked() (string, error) {
	var id string
	for range maxIDAttempts {
		id = s.newID()
		if s.indexLocked(id) < 0 {
			return id, nil
		}
		s.log.Warn("generated id collided, retrying",
			logger.String("kind", s.policy.Kind),
			logger.String("id", id))
	}
	return "", fmt.Errorf("%w: %s %q after %d generated ids", ErrDuplicateIdentity, s.policy.Kind, id, maxIDAttempts)
}

// Update merges patch onto the entity with the given id. The id itself never
// changes. The boolean is false when no entity matched.
func (s *Store[T, P]) Update(ctx context.Context, id string, patch P) (T, bool) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		var zero T
		return zero, false
	}
	updated := s.policy.SetID(s.policy.Apply(s.items[i].Clone(), patch), id)
	s.items[i] = updated
	seq, snap := s.commitLocked()
	s.mu.Unlock()

	s.log.Debug("entity updated",
		logger.String("kind", s.policy.Kind),
		logger.String("id", id))

	s.persist(ctx, seq, snap, false)
	return updated.Clone(), true
}

// UpdateStatus records a new approval status. It fails for kinds without a
// workflow and for unknown statuses; a missing id is reported by the boolean.
func (s *Store[T, P]) UpdateStatus(ctx context.Context, id string, status domain.Status) (T, bool, error) {
	var zero T
	if s.policy.StatusPatch == nil {
		return zero, false, fmt.Errorf("%w: %s", ErrStatusUnsupported, s.policy.Kind)
	}
	if !status.Valid() {
		return zero, false, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	e, ok := s.Update(ctx, id, s.policy.StatusPatch(status))
	return e, ok, nil
}

// Delete removes the entity permanently. It fails with ErrNotFound when the
// id was not present.
func (s *Store[T, P]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s %q", ErrNotFound, s.policy.Kind, id)
	}
	s.items = slices.Delete(s.items, i, i+1)
	seq, snap := s.commitLocked()
	s.mu.Unlock()

	s.log.Debug("entity deleted",
		logger.String("kind", s.policy.Kind),
		logger.String("id", id))

	s.persist(ctx, seq, snap, false)
	return nil
}

// Flush pushes the current collection to the repository again, repairing a
// mirror that missed a best-effort write. A collection that fell back to the
// seed is first re-read from the repository; if that still fails nothing is
// written, so a durable copy is never replaced by the seed. It reports
// whether the collection was pushed.
func (s *Store[T, P]) Flush(ctx context.Context) bool {
	if !s.confirm(ctx) {
		s.log.Warn("skipping flush of unconfirmed collection",
			logger.String("kind", s.policy.Kind),
			logger.String("repository", s.repo.Name()))
		return false
	}

	s.mu.RLock()
	seq, snap := s.seq, cloneAll(s.items)
	s.mu.RUnlock()

	s.persist(ctx, seq, snap, true)
	return true
}

// Confirmed reports whether the collection reflects the repository rather
// than a seed fallback.
func (s *Store[T, P]) Confirmed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmed
}

// confirm retries the repository Load for a collection that fell back to the
// seed. When no mutation happened in between, the loaded collection replaces
// the seed.
func (s *Store[T, P]) confirm(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.confirmed {
		return true
	}
	r := s.repo.(resolver)
	if !r.Resolved() {
		loaded := s.repo.Load(ctx, cloneAll(s.items))
		if !r.Resolved() {
			return false
		}
		if s.seq == 0 {
			s.items = s.dedupe(loaded)
			s.log.Info("collection re-hydrated from repository",
				logger.String("kind", s.policy.Kind),
				logger.Int("count", len(s.items)))
		}
	}
	s.confirmed = true
	return true
}

func (s *Store[T, P]) indexLocked(id string) int {
	return slices.IndexFunc(s.items, func(e T) bool { return e.Key() == id })
}

// commitLocked bumps the mutation sequence and snapshots the collection.
func (s *Store[T, P]) commitLocked() (uint64, []T) {
	s.seq++
	return s.seq, cloneAll(s.items)
}

func (s *Store[T, P]) persist(ctx context.Context, seq uint64, snap []T, force bool) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if seq < s.persisted || (seq == s.persisted && !force) {
		// a newer snapshot already reached the repository
		return
	}
	s.repo.Save(ctx, snap)
	s.persisted = seq
}

func cloneAll[T Entity[T]](items []T) []T {
	out := make([]T, len(items))
	for i, e := range items {
		out[i] = e.Clone()
	}
	return out
}
