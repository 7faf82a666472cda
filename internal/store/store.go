// Package store defines the key/value contract the durable cache adapter
// persists collections through. Implementations live in sub-packages.
package store

import (
	"context"
	"errors"
)

// ErrMiss is returned by Backend.Get when the key holds no value.
var ErrMiss = errors.New("key not found")

// Backend is a durable key/value store addressed by string keys.
type Backend interface {
	// Get returns the raw value stored at key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored at key.
	Set(ctx context.Context, key string, value []byte) error
	// Name identifies the backend in logs and health output.
	Name() string
}

// Pinger is implemented by backends that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Lister is implemented by backends that can enumerate their catalog keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}
