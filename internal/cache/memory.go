package cache

import (
	"context"
	"slices"
	"sync"
)

// Memory is the repository used when no durable store is available. Load
// hands the seed back untouched and Save only remembers the last collection.
type Memory[T any] struct {
	mu   sync.Mutex
	last []T
}

func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{}
}

func (m *Memory[T]) Name() string { return "none" }

func (m *Memory[T]) Load(_ context.Context, seed []T) []T {
	return seed
}

func (m *Memory[T]) Save(_ context.Context, items []T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = slices.Clone(items)
}

// Last returns the most recently saved collection, or nil.
func (m *Memory[T]) Last() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.last)
}
