package rbac

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/workdesk/internal/platform/httpx"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

// Service orchestrates RBAC operations.
type Service struct {
	store Store
}

// NewService constructs a Service backed by the provided store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Bootstrap ensures the permission catalog and the default roles of tenant
// exist and grants the owner role to ownerUserID. Running it again converges
// role grants back to the defaults.
func (s *Service) Bootstrap(ctx context.Context, tenant shared.Tenant, ownerUserID int64) (BootstrapResult, error) {
	if tenant.IsZero() {
		return BootstrapResult{}, shared.ErrInvalidTenant
	}
	if ownerUserID <= 0 {
		return BootstrapResult{}, fmt.Errorf("%w: owner user id required", httpx.ErrValidation)
	}
	result := BootstrapResult{Roles: make(map[string]int64)}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		catalog := Catalog()
		for _, p := range catalog {
			if err := tx.EnsurePermission(ctx, p); err != nil {
				return fmt.Errorf("ensure permission %s: %w", p.Name, err)
			}
		}
		result.Permissions = len(catalog)
		for _, tmpl := range DefaultRoles() {
			id, err := tx.UpsertRole(ctx, tenant, tmpl.Name, tmpl.Description)
			if err != nil {
				return fmt.Errorf("upsert role %s: %w", tmpl.Name, err)
			}
			if err := tx.SetRolePermissions(ctx, tenant, id, tmpl.Permissions); err != nil {
				return fmt.Errorf("grant role %s: %w", tmpl.Name, err)
			}
			result.Roles[tmpl.Name] = id
		}
		result.OwnerRoleID = result.Roles[RoleOwner]
		return tx.AssignRole(ctx, tenant, ownerUserID, result.OwnerRoleID)
	})
	if err != nil {
		return BootstrapResult{}, err
	}
	return result, nil
}

// ListRoles returns tenant roles with their permissions.
func (s *Service) ListRoles(ctx context.Context, tenant shared.Tenant) ([]Role, error) {
	return s.store.ListRoles(ctx, tenant)
}

// ListPermissions returns all permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// AssignRole assigns a tenant role to the given user.
func (s *Service) AssignRole(ctx context.Context, tenant shared.Tenant, userID, roleID int64) error {
	return s.store.AssignRole(ctx, tenant, userID, roleID)
}

// RemoveRole removes a role from a user.
func (s *Service) RemoveRole(ctx context.Context, tenant shared.Tenant, userID, roleID int64) error {
	return s.store.RemoveRole(ctx, tenant, userID, roleID)
}

// EffectivePermissions returns deduplicated permission names for a user in tenant.
func (s *Service) EffectivePermissions(ctx context.Context, tenant shared.Tenant, userID int64) ([]string, error) {
	return s.store.EffectivePermissions(ctx, tenant, userID)
}
