package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gppalanpur/portal-api/internal/models"
)

type bootstrapRoleRepository interface {
	FindByName(ctx context.Context, name string) (*models.Role, error)
	Create(ctx context.Context, role *models.Role) error
}

type bootstrapUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// BootstrapService seeds the built-in roles and the initial admin account.
// Every operation is idempotent so it can run on each startup.
type BootstrapService struct {
	roles  bootstrapRoleRepository
	users  bootstrapUserRepository
	logger *zap.Logger
}

// NewBootstrapService constructs a BootstrapService.
func NewBootstrapService(roles bootstrapRoleRepository, users bootstrapUserRepository, logger *zap.Logger) *BootstrapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BootstrapService{roles: roles, users: users, logger: logger}
}

var builtinRoles = []models.Role{
	{Name: models.RoleAdmin, Description: "Full administrative access", Permissions: []string{"*"}},
	{Name: models.RoleStudent, Description: "Student self-service access", Permissions: []string{"profile:read", "results:read", "projects:write"}},
	{Name: models.RoleFaculty, Description: "Faculty member access", Permissions: []string{"students:read", "projects:read"}},
	{Name: models.RoleHOD, Description: "Head of department access", Permissions: []string{"department:manage", "faculty:read", "students:read"}},
	{Name: models.RolePrincipal, Description: "Institute-wide read access", Permissions: []string{"reports:read", "departments:read"}},
	{Name: models.RoleJury, Description: "Project fair evaluation access", Permissions: []string{"projects:evaluate"}},
}

// Run seeds roles and, when credentials are configured, the admin user.
func (s *BootstrapService) Run(ctx context.Context, adminEmail, adminPassword string) error {
	if err := s.seedRoles(ctx); err != nil {
		return err
	}
	if adminEmail == "" || adminPassword == "" {
		s.logger.Info("admin bootstrap skipped, no credentials configured")
		return nil
	}
	return s.seedAdmin(ctx, adminEmail, adminPassword)
}

func (s *BootstrapService) seedRoles(ctx context.Context) error {
	for _, role := range builtinRoles {
		_, err := s.roles.FindByName(ctx, role.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("look up role %s: %w", role.Name, err)
		}

		seeded := role
		seeded.PermissionsRaw = joinPermissions(role.Permissions)
		if err := s.roles.Create(ctx, &seeded); err != nil {
			return fmt.Errorf("seed role %s: %w", role.Name, err)
		}
		s.logger.Info("seeded role", zap.String("role", role.Name))
	}
	return nil
}

func (s *BootstrapService) seedAdmin(ctx context.Context, email, password string) error {
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("look up admin user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Roles:        []string{models.RoleAdmin},
	}
	selected := models.RoleAdmin
	admin.SelectedRole = &selected

	if err := s.users.Create(ctx, &admin); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	s.logger.Info("seeded admin account", zap.String("email", email))
	return nil
}
