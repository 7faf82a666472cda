package catalog

import "errors"

// Sentinel errors returned by Store operations. They are wrapped with the
// offending id; use errors.Is to match.
var (
	ErrDuplicateIdentity = errors.New("duplicate identity")
	ErrNotFound          = errors.New("not found")
	ErrInvalidEntity     = errors.New("invalid entity")
	ErrStatusUnsupported = errors.New("status workflow not supported")
	ErrInvalidStatus     = errors.New("invalid status")
)
