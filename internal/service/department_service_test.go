package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
)

type mockDepartmentRepo struct {
	departments map[string]*models.Department
	stats       []models.DepartmentStats
	statsCalls  int
}

func newMockDepartmentRepo(depts ...*models.Department) *mockDepartmentRepo {
	repo := &mockDepartmentRepo{departments: make(map[string]*models.Department)}
	for _, d := range depts {
		repo.departments[d.ID] = d
	}
	return repo
}

func (m *mockDepartmentRepo) List(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, int, error) {
	var out []models.Department
	for _, d := range m.departments {
		out = append(out, *d)
	}
	if filter.Page > 1 {
		return nil, len(out), nil
	}
	return out, len(out), nil
}

func (m *mockDepartmentRepo) FindByID(ctx context.Context, id string) (*models.Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return d, nil
}

func (m *mockDepartmentRepo) FindByCode(ctx context.Context, code string) (*models.Department, error) {
	for _, d := range m.departments {
		if strings.EqualFold(d.Code, code) {
			return d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockDepartmentRepo) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	for _, d := range m.departments {
		if strings.EqualFold(d.Code, code) && d.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDepartmentRepo) Create(ctx context.Context, dept *models.Department) error {
	if dept.ID == "" {
		dept.ID = "dept-" + dept.Code
	}
	m.departments[dept.ID] = dept
	return nil
}

func (m *mockDepartmentRepo) Update(ctx context.Context, dept *models.Department) error {
	m.departments[dept.ID] = dept
	return nil
}

func (m *mockDepartmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.departments, id)
	return nil
}

func (m *mockDepartmentRepo) Stats(ctx context.Context) ([]models.DepartmentStats, error) {
	m.statsCalls++
	return m.stats, nil
}

type mockDeptUserRepo struct {
	users map[string]*models.User
}

func (m *mockDeptUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func newDepartmentService(repo *mockDepartmentRepo, users *mockDeptUserRepo) (*DepartmentService, *memoryCache) {
	if users == nil {
		users = &mockDeptUserRepo{users: make(map[string]*models.User)}
	}
	cache := newMemoryCache()
	return NewDepartmentService(repo, users, cache, nil, validator.New(), zap.NewNop(), time.Minute), cache
}

func TestDepartmentServiceCreate(t *testing.T) {
	repo := newMockDepartmentRepo()
	svc, _ := newDepartmentService(repo, nil)

	date := "2010-06-15"
	dept, err := svc.Create(context.Background(), DepartmentRequest{Name: "Civil Engineering", Code: "CE", EstablishedDate: &date})
	require.NoError(t, err)
	assert.Equal(t, "CE", dept.Code)
	require.NotNil(t, dept.EstablishedDate)
	assert.Equal(t, 2010, dept.EstablishedDate.Year())
	assert.True(t, dept.IsActive)
}

func TestDepartmentServiceCreateDuplicateCode(t *testing.T) {
	repo := newMockDepartmentRepo(&models.Department{ID: "d1", Name: "Civil", Code: "CE"})
	svc, _ := newDepartmentService(repo, nil)

	_, err := svc.Create(context.Background(), DepartmentRequest{Name: "Another", Code: "ce"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDepartmentServiceHODMustHoldRole(t *testing.T) {
	repo := newMockDepartmentRepo()
	users := &mockDeptUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Roles: []string{models.RoleFaculty}},
	}}
	svc, _ := newDepartmentService(repo, users)

	hod := "u1"
	_, err := svc.Create(context.Background(), DepartmentRequest{Name: "Civil", Code: "CE", HODID: &hod})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDepartmentServiceHODAccepted(t *testing.T) {
	repo := newMockDepartmentRepo()
	users := &mockDeptUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Roles: []string{models.RoleFaculty, models.RoleHOD}},
	}}
	svc, _ := newDepartmentService(repo, users)

	hod := "u1"
	dept, err := svc.Create(context.Background(), DepartmentRequest{Name: "Civil", Code: "CE", HODID: &hod})
	require.NoError(t, err)
	require.NotNil(t, dept.HODID)
	assert.Equal(t, "u1", *dept.HODID)
}

func TestDepartmentServiceStatsCached(t *testing.T) {
	repo := newMockDepartmentRepo()
	repo.stats = []models.DepartmentStats{{DepartmentID: "d1", Name: "Civil", Code: "CE", FacultyCount: 4, StudentCount: 120}}
	svc, _ := newDepartmentService(repo, nil)

	first, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.statsCalls)
}

func TestDepartmentServiceStatsInvalidatedOnWrite(t *testing.T) {
	repo := newMockDepartmentRepo()
	svc, cache := newDepartmentService(repo, nil)

	_, err := svc.Stats(context.Background())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), DepartmentRequest{Name: "Civil", Code: "CE"})
	require.NoError(t, err)
	assert.Empty(t, cache.entries)
}

func TestDepartmentServiceImportUpsertsByCode(t *testing.T) {
	repo := newMockDepartmentRepo(&models.Department{ID: "d1", Name: "Old Name", Code: "CE", IsActive: true})
	svc, _ := newDepartmentService(repo, nil)

	csv := strings.Join([]string{
		"name,code,established_date",
		"Civil Engineering,CE,15-06-2010",
		"Mechanical Engineering,ME,2005-08-01",
		"No Code Given,,",
	}, "\n")

	report, err := svc.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)

	updated, err := repo.FindByCode(context.Background(), "CE")
	require.NoError(t, err)
	assert.Equal(t, "Civil Engineering", updated.Name)
}
