// Package cache mirrors catalog collections into a durable key/value store.
//
// Two repositories are provided: Memory, for processes without a durable
// store, and Durable, which loads a collection once per process and writes
// the whole collection back after every mutation. Neither ever returns an
// error to the catalog; failures are logged and the caller keeps operating on
// in-memory state.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/MrSnakeDoc/catalogd/internal/logger"
	"github.com/MrSnakeDoc/catalogd/internal/store"
)

const defaultTimeout = 3 * time.Second

// Health describes the state of a durable mirror.
type Health struct {
	Backend   string    `json:"backend"`
	Key       string    `json:"key"`
	Degraded  bool      `json:"degraded"`
	LastError string    `json:"last_error,omitempty"`
	LastWrite time.Time `json:"last_write,omitempty"`
}

// Durable is a Repository backed by a store.Backend under a single key.
type Durable[T any] struct {
	backend store.Backend
	key     string
	log     logger.Logger
	timeout time.Duration

	mu        sync.Mutex
	cached    []T
	loaded    bool
	lastErr   error
	lastWrite time.Time
}

// DurableOption customizes a Durable repository.
type DurableOption func(*durableOptions)

type durableOptions struct {
	timeout time.Duration
}

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) DurableOption {
	return func(o *durableOptions) { o.timeout = d }
}

// NewDurable returns a repository that mirrors a collection to backend under
// key.
func NewDurable[T any](backend store.Backend, key string, log logger.Logger, opts ...DurableOption) *Durable[T] {
	o := durableOptions{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Durable[T]{
		backend: backend,
		key:     key,
		log:     log,
		timeout: o.timeout,
	}
}

func (d *Durable[T]) Name() string { return d.backend.Name() }

// Key returns the durable key this repository writes to.
func (d *Durable[T]) Key() string { return d.key }

// Load resolves the collection once per process:
//   - a previously loaded or saved copy is returned without touching the
//     backend;
//   - a stored value is decoded; undecodable data falls back to seed;
//   - a missing value is initialized with seed;
//   - an unreachable backend yields seed with no side effect, and the next
//     Load tries again.
func (d *Durable[T]) Load(ctx context.Context, seed []T) []T {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded {
		return slices.Clone(d.cached)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	raw, err := d.backend.Get(ctx, d.key)
	switch {
	case errors.Is(err, store.ErrMiss):
		d.log.Info("durable cache empty, initializing from seed",
			logger.String("key", d.key),
			logger.Int("count", len(seed)))
		d.writeLocked(ctx, seed)
		d.rememberLocked(seed)
		return seed

	case err != nil:
		d.lastErr = err
		d.log.Warn("durable cache unavailable, using seed",
			logger.String("backend", d.backend.Name()),
			logger.String("key", d.key),
			logger.Error(err))
		return seed
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		d.lastErr = err
		d.log.Error("failed to parse durable cache, using seed",
			logger.String("key", d.key),
			logger.Error(err))
		d.rememberLocked(seed)
		return seed
	}

	d.log.Info("hydrated collection from durable cache",
		logger.String("backend", d.backend.Name()),
		logger.String("key", d.key),
		logger.Int("count", len(items)))
	d.rememberLocked(items)
	return items
}

// Resolved reports whether the collection has been read from, or written
// to, the backend. A Load that fell back to seed because the backend was
// unreachable leaves it false.
func (d *Durable[T]) Resolved() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

// Save replaces the process-wide copy and then writes the whole collection
// to the backend. Write failures are logged and swallowed.
func (d *Durable[T]) Save(ctx context.Context, items []T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.rememberLocked(items)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	d.writeLocked(ctx, items)
}

// Health reports the outcome of the most recent backend interaction.
func (d *Durable[T]) Health() Health {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := Health{
		Backend:   d.backend.Name(),
		Key:       d.key,
		Degraded:  d.lastErr != nil,
		LastWrite: d.lastWrite,
	}
	if d.lastErr != nil {
		h.LastError = d.lastErr.Error()
	}
	return h
}

func (d *Durable[T]) rememberLocked(items []T) {
	d.cached = slices.Clone(items)
	d.loaded = true
}

func (d *Durable[T]) writeLocked(ctx context.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		d.lastErr = err
		d.log.Error("failed to encode collection",
			logger.String("key", d.key),
			logger.Error(err))
		return
	}

	if err := d.backend.Set(ctx, d.key, data); err != nil {
		d.lastErr = err
		d.log.Warn("failed to write durable cache, keeping in-memory state",
			logger.String("backend", d.backend.Name()),
			logger.String("key", d.key),
			logger.Error(err))
		return
	}

	d.lastErr = nil
	d.lastWrite = time.Now()
}
