package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
)

const roleListCacheKey = "roles:list"

type roleRepository interface {
	List(ctx context.Context) ([]models.Role, error)
	FindByName(ctx context.Context, name string) (*models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, name string) error
	CountAssignments(ctx context.Context, name string) (int, error)
}

type roleCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RoleRequest payload for creating or updating a role.
type RoleRequest struct {
	Name        string   `json:"name" validate:"required,lowercase,alphanum"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// RoleService provides RBAC role management. Reads go through the cache
// since the role catalogue changes rarely.
type RoleService struct {
	repo      roleRepository
	cache     roleCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewRoleService constructs a RoleService.
func NewRoleService(repo roleRepository, cache roleCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &RoleService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// List returns all roles with permissions expanded.
func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	if s.cache != nil {
		var cached []models.Role
		if err := s.cache.Get(ctx, roleListCacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		} else if errors.Is(err, appErrors.ErrCacheMiss) {
			s.metrics.RecordCacheOperation(false)
		} else {
			s.logger.Warn("role cache read failed", zap.Error(err))
		}
	}

	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roles")
	}
	for i := range roles {
		roles[i].Permissions = splitPermissions(roles[i].PermissionsRaw)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, roleListCacheKey, roles, s.cacheTTL); err != nil {
			s.logger.Warn("role cache write failed", zap.Error(err))
		}
	}
	return roles, nil
}

// Get returns one role by name.
func (s *RoleService) Get(ctx context.Context, name string) (*models.Role, error) {
	role, err := s.repo.FindByName(ctx, strings.ToLower(name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	role.Permissions = splitPermissions(role.PermissionsRaw)
	return role, nil
}

// Create adds a role definition.
func (s *RoleService) Create(ctx context.Context, req RoleRequest) (*models.Role, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}

	name := strings.ToLower(req.Name)
	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "role already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check role")
	}

	role := &models.Role{
		Name:           name,
		Description:    req.Description,
		PermissionsRaw: joinPermissions(req.Permissions),
		Permissions:    req.Permissions,
	}
	if err := s.repo.Create(ctx, role); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create role")
	}
	s.invalidate(ctx)
	return role, nil
}

// Update modifies a role's description and permissions.
func (s *RoleService) Update(ctx context.Context, name string, req RoleRequest) (*models.Role, error) {
	role, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	role.Description = req.Description
	role.PermissionsRaw = joinPermissions(req.Permissions)
	role.Permissions = req.Permissions
	if err := s.repo.Update(ctx, role); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}
	s.invalidate(ctx)
	return role, nil
}

// Delete removes a role. Built-in roles and roles still held by users are
// protected.
func (s *RoleService) Delete(ctx context.Context, name string) error {
	name = strings.ToLower(name)
	if isBuiltinRole(name) {
		return appErrors.Clone(appErrors.ErrForbidden, "built-in roles cannot be deleted")
	}
	if _, err := s.Get(ctx, name); err != nil {
		return err
	}
	assigned, err := s.repo.CountAssignments(ctx, name)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count role assignments")
	}
	if assigned > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "role is still assigned to users")
	}
	if err := s.repo.Delete(ctx, name); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete role")
	}
	s.invalidate(ctx)
	return nil
}

func (s *RoleService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "roles:*"); err != nil {
		s.logger.Warn("failed to invalidate role cache", zap.Error(err))
	}
}

func isBuiltinRole(name string) bool {
	switch name {
	case models.RoleAdmin, models.RoleStudent, models.RoleFaculty, models.RoleHOD, models.RolePrincipal, models.RoleJury:
		return true
	}
	return false
}

func splitPermissions(raw string) []string {
	var perms []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			perms = append(perms, part)
		}
	}
	return perms
}

func joinPermissions(perms []string) string {
	trimmed := make([]string, 0, len(perms))
	for _, p := range perms {
		if p = strings.TrimSpace(p); p != "" {
			trimmed = append(trimmed, p)
		}
	}
	return strings.Join(trimmed, ",")
}
