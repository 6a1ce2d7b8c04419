package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gppalanpur/portal-api/internal/models"
	"github.com/gppalanpur/portal-api/pkg/csvio"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
	"github.com/gppalanpur/portal-api/pkg/export"
)

// DefaultImportPassword is assigned to imported accounts with no password column.
const DefaultImportPassword = "User@123"

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	ReplaceRoles(ctx context.Context, userID string, roles []string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type userRoleRepository interface {
	FindByName(ctx context.Context, name string) (*models.Role, error)
}

// CreateUserRequest payload for creating an account.
type CreateUserRequest struct {
	Name         string   `json:"name" validate:"required"`
	Email        string   `json:"email" validate:"required,email"`
	Password     string   `json:"password" validate:"required,min=6"`
	Roles        []string `json:"roles" validate:"required,min=1"`
	DepartmentID *string  `json:"department_id"`
}

// UpdateUserRequest payload for updating an account.
type UpdateUserRequest struct {
	Name         string   `json:"name" validate:"required"`
	Email        string   `json:"email" validate:"required,email"`
	Roles        []string `json:"roles" validate:"required,min=1"`
	DepartmentID *string  `json:"department_id"`
}

// UserService provides account management use cases.
type UserService struct {
	repo      userRepository
	roles     userRoleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, roles userRoleRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, roles: roles, validator: validate, logger: logger}
}

// List returns users matching the filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create registers a new account with the given roles.
func (s *UserService) Create(ctx context.Context, actorID string, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if err := s.checkRoles(ctx, req.Roles); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	selected := req.Roles[0]
	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		DepartmentID: req.DepartmentID,
		SelectedRole: &selected,
		Roles:        req.Roles,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.audit(ctx, actorID, models.AuditActionUserCreate, user.ID, fmt.Sprintf(`{"email":%q}`, user.Email))
	return user, nil
}

// Update modifies an existing account.
func (s *UserService) Update(ctx context.Context, actorID, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if err := s.checkRoles(ctx, req.Roles); err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(user.Email, req.Email) {
		if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		}
	}

	user.Name = req.Name
	user.Email = req.Email
	user.DepartmentID = req.DepartmentID
	user.Roles = req.Roles
	if user.SelectedRole == nil || !user.HasRole(*user.SelectedRole) {
		user.SelectedRole = &req.Roles[0]
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	if err := s.repo.ReplaceRoles(ctx, user.ID, req.Roles); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user roles")
	}

	s.audit(ctx, actorID, models.AuditActionUserUpdate, user.ID, fmt.Sprintf(`{"email":%q}`, user.Email))
	return user, nil
}

// Delete removes an account. The caller cannot delete itself.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete own account")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.audit(ctx, actorID, models.AuditActionUserDelete, id, `{"status":"deleted"}`)
	return nil
}

// AssignRoles replaces the role set of a user.
func (s *UserService) AssignRoles(ctx context.Context, actorID, id string, roles []string) (*models.User, error) {
	if len(roles) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one role is required")
	}
	if err := s.checkRoles(ctx, roles); err != nil {
		return nil, err
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceRoles(ctx, id, roles); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign roles")
	}
	user.Roles = roles
	if user.SelectedRole == nil || !user.HasRole(*user.SelectedRole) {
		user.SelectedRole = &roles[0]
		if err := s.repo.Update(ctx, user); err != nil {
			s.logger.Warn("failed to reset selected role", zap.Error(err))
		}
	}
	s.audit(ctx, actorID, models.AuditActionRolesAssign, id, fmt.Sprintf(`{"roles":%q}`, strings.Join(roles, ",")))
	return user, nil
}

// Import reads accounts from CSV. Rows with an existing email update the
// account; new emails create one. Missing password columns fall back to the
// default import password.
func (s *UserService) Import(ctx context.Context, actorID string, reader io.Reader) (*models.ImportReport, error) {
	rows, err := csvio.ReadAll(reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFile.Code, appErrors.ErrInvalidFile.Status, "failed to parse csv")
	}

	report := &models.ImportReport{}
	for _, row := range rows {
		email := strings.ToLower(strings.TrimSpace(row.Get("email", "email_address")))
		name := strings.TrimSpace(row.Get("name", "full_name"))
		if email == "" || name == "" {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "missing name or email"})
			continue
		}

		roles := splitRoles(row.Get("roles", "role"))
		if len(roles) == 0 {
			roles = []string{models.RoleStudent}
			report.Warnings = append(report.Warnings, models.ImportIssue{Row: row.Line, Message: "no roles given, defaulted to student"})
		}
		if err := s.checkRoles(ctx, roles); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "unknown role in list"})
			continue
		}

		existing, err := s.repo.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "lookup failed"})
			continue
		}

		if existing != nil {
			existing.Name = name
			existing.Roles = roles
			if existing.SelectedRole == nil || !existing.HasRole(*existing.SelectedRole) {
				existing.SelectedRole = &roles[0]
			}
			if err := s.repo.Update(ctx, existing); err != nil {
				report.Skipped++
				report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "update failed"})
				continue
			}
			if err := s.repo.ReplaceRoles(ctx, existing.ID, roles); err != nil {
				report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "role update failed"})
				continue
			}
			report.Updated++
			continue
		}

		password := row.Get("password")
		if password == "" {
			password = DefaultImportPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "password hash failed"})
			continue
		}

		selected := roles[0]
		user := &models.User{
			Name:         name,
			Email:        email,
			PasswordHash: string(hash),
			SelectedRole: &selected,
			Roles:        roles,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "create failed"})
			continue
		}
		report.Created++
	}

	s.audit(ctx, actorID, models.AuditActionCSVImport, "", fmt.Sprintf(`{"resource":"users","created":%d,"updated":%d}`, report.Created, report.Updated))
	return report, nil
}

// ExportDataset collects users matching the filter as a tabular dataset.
func (s *UserService) ExportDataset(ctx context.Context, filter models.UserFilter) (*export.Dataset, error) {
	filter.Page = 1
	filter.PageSize = 100
	ds := &export.Dataset{Headers: []string{"id", "name", "email", "roles", "selected_role", "department_id", "created_at"}}
	for {
		users, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export users")
		}
		for _, u := range users {
			selected := ""
			if u.SelectedRole != nil {
				selected = *u.SelectedRole
			}
			deptID := ""
			if u.DepartmentID != nil {
				deptID = *u.DepartmentID
			}
			ds.Rows = append(ds.Rows, map[string]string{
				"id":            u.ID,
				"name":          u.Name,
				"email":         u.Email,
				"roles":         strings.Join(u.Roles, ","),
				"selected_role": selected,
				"department_id": deptID,
				"created_at":    u.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		if len(ds.Rows) >= total || len(users) == 0 {
			break
		}
		filter.Page++
	}
	return ds, nil
}

func (s *UserService) checkRoles(ctx context.Context, roles []string) error {
	for _, role := range roles {
		if _, err := s.roles.FindByName(ctx, role); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrInvalidRole, fmt.Sprintf("role %q does not exist", role))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check role")
		}
	}
	return nil
}

func (s *UserService) audit(ctx context.Context, actorID, action, resourceID, payload string) {
	log := &models.AuditLog{
		Action:    action,
		Resource:  "users",
		NewValues: []byte(payload),
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if resourceID != "" {
		log.ResourceID = &resourceID
	}
	if err := s.repo.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record user audit log", zap.Error(err))
	}
}

func splitRoles(raw string) []string {
	var roles []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			roles = append(roles, part)
		}
	}
	return roles
}
