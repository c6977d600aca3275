package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/workdesk/internal/platform/db"
	"github.com/odyssey-erp/workdesk/internal/platform/httpx"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = fmt.Errorf("rbac: %w", httpx.ErrNotFound)

// Store persists roles, permissions and assignments.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, Store) error) error
	EnsurePermission(ctx context.Context, p Permission) error
	UpsertRole(ctx context.Context, tenant shared.Tenant, name, description string) (int64, error)
	SetRolePermissions(ctx context.Context, tenant shared.Tenant, roleID int64, names []string) error
	AssignRole(ctx context.Context, tenant shared.Tenant, userID, roleID int64) error
	RemoveRole(ctx context.Context, tenant shared.Tenant, userID, roleID int64) error
	ListRoles(ctx context.Context, tenant shared.Tenant) ([]Role, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	EffectivePermissions(ctx context.Context, tenant shared.Tenant, userID int64) ([]string, error)
}

type pgStore struct {
	pool *pgxpool.Pool
	db   db.Querier
}

// NewStore returns the PostgreSQL store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgStore{pool: s.pool, db: tx})
	})
}

func (s *pgStore) EnsurePermission(ctx context.Context, p Permission) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO permissions (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description`,
		strings.TrimSpace(p.Name), strings.TrimSpace(p.Description))
	return err
}

func (s *pgStore) UpsertRole(ctx context.Context, tenant shared.Tenant, name, description string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO roles (tenant_id, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, name) DO UPDATE SET description = EXCLUDED.description, updated_at = NOW()
		RETURNING id`, tenant.ID(), name, description).Scan(&id)
	return id, err
}

func (s *pgStore) SetRolePermissions(ctx context.Context, tenant shared.Tenant, roleID int64, names []string) error {
	if _, err := s.db.Exec(ctx, `
		DELETE FROM role_permissions rp USING roles r
		WHERE rp.role_id = r.id AND r.tenant_id = $1 AND r.id = $2`, tenant.ID(), roleID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT r.id, p.id FROM roles r, permissions p
		WHERE r.tenant_id = $1 AND r.id = $2 AND p.name = ANY($3)
		ON CONFLICT DO NOTHING`, tenant.ID(), roleID, names)
	return err
}

func (s *pgStore) AssignRole(ctx context.Context, tenant shared.Tenant, userID, roleID int64) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO user_roles (tenant_id, user_id, role_id)
		SELECT r.tenant_id, $2, r.id FROM roles r WHERE r.tenant_id = $1 AND r.id = $3
		ON CONFLICT DO NOTHING`, tenant.ID(), userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE tenant_id = $1 AND id = $2)`,
			tenant.ID(), roleID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (s *pgStore) RemoveRole(ctx context.Context, tenant shared.Tenant, userID, roleID int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM user_roles WHERE tenant_id = $1 AND user_id = $2 AND role_id = $3`,
		tenant.ID(), userID, roleID)
	return err
}

func (s *pgStore) ListRoles(ctx context.Context, tenant shared.Tenant) ([]Role, error) {
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
			COALESCE(array_agg(p.name ORDER BY p.name) FILTER (WHERE p.name IS NOT NULL), '{}')
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE r.tenant_id = $1
		GROUP BY r.id
		ORDER BY r.name`, tenant.ID())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt, &role.Permissions); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (s *pgStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (s *pgStore) EffectivePermissions(ctx context.Context, tenant shared.Tenant, userID int64) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT p.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id AND r.tenant_id = ur.tenant_id
		JOIN role_permissions rp ON rp.role_id = r.id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.tenant_id = $1 AND ur.user_id = $2
		ORDER BY p.name`, tenant.ID(), userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
