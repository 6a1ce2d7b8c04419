package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gppalanpur/portal-api/internal/models"
)

// RoleRepository manages persistence for role definitions.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository constructs a RoleRepository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// List returns all role definitions ordered by name.
func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	const query = `SELECT name, description, permissions, created_at, updated_at FROM roles ORDER BY name`
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// FindByName fetches one role by its primary key.
func (r *RoleRepository) FindByName(ctx context.Context, name string) (*models.Role, error) {
	const query = `SELECT name, description, permissions, created_at, updated_at FROM roles WHERE name = $1 LIMIT 1`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &role, nil
}

// Create inserts a new role definition.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	now := time.Now().UTC()
	if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}
	role.UpdatedAt = now
	const query = `INSERT INTO roles (name, description, permissions, created_at, updated_at) VALUES (:name, :description, :permissions, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, role); err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// Update modifies a role's description and permissions.
func (r *RoleRepository) Update(ctx context.Context, role *models.Role) error {
	role.UpdatedAt = time.Now().UTC()
	const query = `UPDATE roles SET description = :description, permissions = :permissions, updated_at = :updated_at WHERE name = :name`
	if _, err := r.db.NamedExecContext(ctx, query, role); err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

// Delete removes a role and its user assignments.
func (r *RoleRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE role_name = $1`, name); err != nil {
		return fmt.Errorf("delete role assignments: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

// CountAssignments returns how many users hold the role.
func (r *RoleRepository) CountAssignments(ctx context.Context, name string) (int, error) {
	const query = `SELECT COUNT(*) FROM user_roles WHERE role_name = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, name); err != nil {
		return 0, fmt.Errorf("count role assignments: %w", err)
	}
	return count, nil
}
