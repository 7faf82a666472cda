package catalog

import (
	"context"

	"github.com/MrSnakeDoc/catalogd/internal/domain"
)

// Entity is implemented by every record kept in a Store.
type Entity[T any] interface {
	// Key returns the unique identifier.
	Key() string
	// Clone returns a deep copy.
	Clone() T
}

// Repository loads the initial collection and mirrors it after mutations.
// Implementations must never fail the caller: degraded persistence is
// logged and swallowed.
type Repository[T any] interface {
	Load(ctx context.Context, seed []T) []T
	Save(ctx context.Context, items []T)
	Name() string
}

// resolver is implemented by repositories whose Load can fall back to the
// seed without having read the durable copy.
type resolver interface {
	Resolved() bool
}

// Policy holds everything that differs between entity kinds.
type Policy[T Entity[T], P any] struct {
	// Kind names the collection ("courses", "jobs", ...).
	Kind string

	// Visible reports whether e is listed when only active entities are
	// requested. now is the wall-clock instant of the call.
	Visible func(e T, now domain.Instant) bool

	// Compare orders listings. The store breaks ties by id.
	Compare func(a, b T) int

	// Prepare assigns store-owned defaults on add.
	Prepare func(e T, now domain.Instant) T

	// Validate checks an add payload.
	Validate func(e T) error

	// SetID overwrites the identifier.
	SetID func(e T, id string) T

	// NewID is set for kinds whose ids the store generates when the caller
	// leaves them empty.
	NewID func() string

	// Apply merges a typed patch.
	Apply func(e T, patch P) T

	// StatusPatch builds a patch that only changes the status. Nil for kinds
	// without an approval workflow.
	StatusPatch func(s domain.Status) P
}
