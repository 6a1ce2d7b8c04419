package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gppalanpur/portal-api/internal/models"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	auditLogs []*models.AuditLog
	deleted   []string
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	if filter.Page > 1 {
		return nil, len(out), nil
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "generated-" + user.Email
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockUserRepo) ReplaceRoles(ctx context.Context, userID string, roles []string) error {
	if u, ok := m.users[userID]; ok {
		u.Roles = roles
	}
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockRoleLookup struct {
	known map[string]bool
}

func (m *mockRoleLookup) FindByName(ctx context.Context, name string) (*models.Role, error) {
	if m.known == nil || !m.known[name] {
		return nil, sql.ErrNoRows
	}
	return &models.Role{Name: name}, nil
}

func allRolesLookup() *mockRoleLookup {
	return &mockRoleLookup{known: map[string]bool{
		models.RoleAdmin:     true,
		models.RoleStudent:   true,
		models.RoleFaculty:   true,
		models.RoleHOD:       true,
		models.RolePrincipal: true,
		models.RoleJury:      true,
	}}
}

func newUserService(repo *mockUserRepo, roles *mockRoleLookup) *UserService {
	return NewUserService(repo, roles, validator.New(), zap.NewNop())
}

func TestUserServiceCreate(t *testing.T) {
	repo := newMockUserRepo()
	svc := newUserService(repo, allRolesLookup())

	user, err := svc.Create(context.Background(), "actor", CreateUserRequest{
		Name:     "Jane",
		Email:    "jane@example.com",
		Password: "password",
		Roles:    []string{models.RoleFaculty, models.RoleHOD},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	require.NotNil(t, user.SelectedRole)
	assert.Equal(t, models.RoleFaculty, *user.SelectedRole)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password")))
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.auditLogs[0].Action)
}

func TestUserServiceCreateUnknownRole(t *testing.T) {
	svc := newUserService(newMockUserRepo(), allRolesLookup())

	_, err := svc.Create(context.Background(), "actor", CreateUserRequest{
		Name:     "Jane",
		Email:    "jane@example.com",
		Password: "password",
		Roles:    []string{"superuser"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRole.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: "u1", Email: "jane@example.com"})
	svc := newUserService(repo, allRolesLookup())

	_, err := svc.Create(context.Background(), "actor", CreateUserRequest{
		Name:     "Jane",
		Email:    "jane@example.com",
		Password: "password",
		Roles:    []string{models.RoleStudent},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDeleteSelf(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: "u1", Email: "me@example.com"})
	svc := newUserService(repo, allRolesLookup())

	err := svc.Delete(context.Background(), "u1", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestUserServiceUpdateResetsStaleSelectedRole(t *testing.T) {
	selected := models.RoleHOD
	repo := newMockUserRepo(&models.User{
		ID:           "u1",
		Name:         "Jane",
		Email:        "jane@example.com",
		Roles:        []string{models.RoleFaculty, models.RoleHOD},
		SelectedRole: &selected,
	})
	svc := newUserService(repo, allRolesLookup())

	user, err := svc.Update(context.Background(), "actor", "u1", UpdateUserRequest{
		Name:  "Jane",
		Email: "jane@example.com",
		Roles: []string{models.RoleFaculty},
	})
	require.NoError(t, err)
	require.NotNil(t, user.SelectedRole)
	assert.Equal(t, models.RoleFaculty, *user.SelectedRole)
}

func TestUserServiceAssignRoles(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: "u1", Email: "jane@example.com", Roles: []string{models.RoleStudent}})
	svc := newUserService(repo, allRolesLookup())

	user, err := svc.AssignRoles(context.Background(), "actor", "u1", []string{models.RoleStudent, models.RoleJury})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{models.RoleStudent, models.RoleJury}, user.Roles)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionRolesAssign, repo.auditLogs[0].Action)
}

func TestUserServiceImport(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: "u1", Name: "Old Name", Email: "existing@example.com", Roles: []string{models.RoleStudent}})
	svc := newUserService(repo, allRolesLookup())

	csv := strings.Join([]string{
		"name,email,roles",
		"Existing,existing@example.com,faculty",
		"Fresh,fresh@example.com,",
		",missing@example.com,student",
	}, "\n")

	report, err := svc.Import(context.Background(), "actor", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)

	fresh, err := repo.FindByEmail(context.Background(), "fresh@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleStudent}, fresh.Roles)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(fresh.PasswordHash), []byte(DefaultImportPassword)))

	existing, err := repo.FindByEmail(context.Background(), "existing@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Existing", existing.Name)
	assert.Equal(t, []string{models.RoleFaculty}, existing.Roles)
}

func TestUserServiceExportDataset(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "u1", Name: "A", Email: "a@example.com", Roles: []string{models.RoleStudent}},
		&models.User{ID: "u2", Name: "B", Email: "b@example.com", Roles: []string{models.RoleFaculty}},
	)
	svc := newUserService(repo, allRolesLookup())

	ds, err := svc.ExportDataset(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	assert.Contains(t, ds.Headers, "email")
	assert.Len(t, ds.Rows, 2)
}
