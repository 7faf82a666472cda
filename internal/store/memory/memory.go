// Package memory is an in-process Backend. Values survive for the lifetime
// of the Backend value, which makes it a stand-in for browser-style local
// storage in tests and single-node development.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/MrSnakeDoc/catalogd/internal/store"
)

type Backend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Backend {
	return &Backend{data: make(map[string][]byte)}
}

func (b *Backend) Name() string { return "memory" }

func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.data[key]
	if !ok {
		return nil, store.ErrMiss
	}
	return slices.Clone(v), nil
}

func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[key] = slices.Clone(value)
	return nil
}

// Ping always succeeds.
func (b *Backend) Ping(context.Context) error { return nil }

// Keys lists stored keys in order.
func (b *Backend) Keys(context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}
