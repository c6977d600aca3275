package shared

import (
	"fmt"
	"strconv"
)

// Tenant identifies the company that owns a row. Repositories accept a Tenant
// rather than a raw id so that tenant-scoped queries cannot be built without one.
type Tenant struct {
	id int64
}

// TenantFromID validates id and wraps it. Request handlers obtain tenants from
// IdentityFromContext; this constructor serves jobs and the operator CLI.
func TenantFromID(id int64) (Tenant, error) {
	if id <= 0 {
		return Tenant{}, fmt.Errorf("%w: %d", ErrInvalidTenant, id)
	}
	return Tenant{id: id}, nil
}

// ParseTenant parses a decimal tenant id.
func ParseTenant(raw string) (Tenant, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Tenant{}, fmt.Errorf("%w: %q", ErrInvalidTenant, raw)
	}
	return TenantFromID(id)
}

// ID returns the numeric tenant id used in SQL filters.
func (t Tenant) ID() int64 { return t.id }

// IsZero reports whether t was never initialised.
func (t Tenant) IsZero() bool { return t.id == 0 }

func (t Tenant) String() string { return strconv.FormatInt(t.id, 10) }
