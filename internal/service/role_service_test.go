package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
)

type mockRoleRepo struct {
	roles       map[string]*models.Role
	assignments map[string]int
	listCalls   int
}

func newMockRoleRepo(roles ...*models.Role) *mockRoleRepo {
	repo := &mockRoleRepo{roles: make(map[string]*models.Role), assignments: make(map[string]int)}
	for _, r := range roles {
		repo.roles[r.Name] = r
	}
	return repo
}

func (m *mockRoleRepo) List(ctx context.Context) ([]models.Role, error) {
	m.listCalls++
	var out []models.Role
	for _, r := range m.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRoleRepo) FindByName(ctx context.Context, name string) (*models.Role, error) {
	r, ok := m.roles[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r, nil
}

func (m *mockRoleRepo) Create(ctx context.Context, role *models.Role) error {
	m.roles[role.Name] = role
	return nil
}

func (m *mockRoleRepo) Update(ctx context.Context, role *models.Role) error {
	m.roles[role.Name] = role
	return nil
}

func (m *mockRoleRepo) Delete(ctx context.Context, name string) error {
	delete(m.roles, name)
	return nil
}

func (m *mockRoleRepo) CountAssignments(ctx context.Context, name string) (int, error) {
	return m.assignments[name], nil
}

type memoryCache struct {
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.entries = make(map[string][]byte)
	return nil
}

func newRoleService(repo *mockRoleRepo, cache *memoryCache) *RoleService {
	return NewRoleService(repo, cache, nil, validator.New(), zap.NewNop(), time.Minute)
}

func TestRoleServiceListCaches(t *testing.T) {
	repo := newMockRoleRepo(&models.Role{Name: models.RoleAdmin, PermissionsRaw: "*"})
	cache := newMemoryCache()
	svc := newRoleService(repo, cache)

	first, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, []string{"*"}, first[0].Permissions)

	second, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Equal(t, 1, repo.listCalls)
}

func TestRoleServiceCreateConflict(t *testing.T) {
	repo := newMockRoleRepo(&models.Role{Name: "jury"})
	svc := newRoleService(repo, newMemoryCache())

	_, err := svc.Create(context.Background(), RoleRequest{Name: "jury"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRoleServiceCreateInvalidatesCache(t *testing.T) {
	repo := newMockRoleRepo(&models.Role{Name: models.RoleAdmin})
	cache := newMemoryCache()
	svc := newRoleService(repo, cache)

	_, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cache.entries)

	_, err = svc.Create(context.Background(), RoleRequest{Name: "labassistant", Description: "Lab assistant", Permissions: []string{"labs:read"}})
	require.NoError(t, err)
	assert.Empty(t, cache.entries)
}

func TestRoleServiceDeleteBuiltin(t *testing.T) {
	repo := newMockRoleRepo(&models.Role{Name: models.RoleAdmin})
	svc := newRoleService(repo, newMemoryCache())

	err := svc.Delete(context.Background(), models.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRoleServiceDeleteAssigned(t *testing.T) {
	repo := newMockRoleRepo(&models.Role{Name: "mentor"})
	repo.assignments["mentor"] = 3
	svc := newRoleService(repo, newMemoryCache())

	err := svc.Delete(context.Background(), "mentor")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRoleServiceDelete(t *testing.T) {
	repo := newMockRoleRepo(&models.Role{Name: "mentor"})
	svc := newRoleService(repo, newMemoryCache())

	require.NoError(t, svc.Delete(context.Background(), "mentor"))
	_, err := repo.FindByName(context.Background(), "mentor")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
