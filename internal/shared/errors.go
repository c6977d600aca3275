package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTenant indicates a missing or non-positive tenant identifier.
	ErrInvalidTenant = errors.New("invalid tenant")
	// ErrMissingIdentity occurs when a request reaches a tenant-scoped handler without identity.
	ErrMissingIdentity = errors.New("request identity missing")
)
