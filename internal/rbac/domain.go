package rbac

import "time"

// Role represents a tenant-owned permission grouping.
type Role struct {
	ID          int64
	Name        string
	Description string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability shared by all tenants.
type Permission struct {
	ID          int64
	Name        string
	Description string
}

// RoleTemplate describes a default role created at bootstrap.
type RoleTemplate struct {
	Name        string
	Description string
	Permissions []string
}

// BootstrapResult reports what Bootstrap ensured.
type BootstrapResult struct {
	Permissions int
	Roles       map[string]int64
	OwnerRoleID int64
}
