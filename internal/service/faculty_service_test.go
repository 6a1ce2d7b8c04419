package service

import (
	"context"
	"database/sql"
	"fmt"
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

type mockFacultyRepo struct {
	byID   map[string]*models.Faculty
	byCode map[string]*models.Faculty
	nextID int
}

func newMockFacultyRepo() *mockFacultyRepo {
	return &mockFacultyRepo{byID: make(map[string]*models.Faculty), byCode: make(map[string]*models.Faculty)}
}

func (m *mockFacultyRepo) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error) {
	if filter.Page > 1 {
		return nil, len(m.byID), nil
	}
	var out []models.Faculty
	for _, f := range m.byID {
		out = append(out, *f)
	}
	return out, len(out), nil
}

func (m *mockFacultyRepo) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	f, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return f, nil
}

func (m *mockFacultyRepo) FindByStaffCode(ctx context.Context, staffCode string) (*models.Faculty, error) {
	f, ok := m.byCode[strings.ToUpper(staffCode)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return f, nil
}

func (m *mockFacultyRepo) Create(ctx context.Context, f *models.Faculty) error {
	if f.ID == "" {
		m.nextID++
		f.ID = fmt.Sprintf("f-%d", m.nextID)
	}
	m.byID[f.ID] = f
	m.byCode[strings.ToUpper(f.StaffCode)] = f
	return nil
}

func (m *mockFacultyRepo) Update(ctx context.Context, f *models.Faculty) error {
	m.byID[f.ID] = f
	m.byCode[strings.ToUpper(f.StaffCode)] = f
	return nil
}

func (m *mockFacultyRepo) Delete(ctx context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

func newFacultyService(repo *mockFacultyRepo, users *mockStudentUserRepo, depts *mockDeptLookup) *FacultyService {
	if users == nil {
		users = newMockStudentUserRepo()
	}
	if depts == nil {
		depts = &mockDeptLookup{byCode: map[string]*models.Department{}, byID: map[string]*models.Department{}}
	}
	return NewFacultyService(repo, users, depts, nil, validator.New(), zap.NewNop(), "gppalanpur.in")
}

func TestFacultyServiceCreateDuplicateStaffCode(t *testing.T) {
	repo := newMockFacultyRepo()
	repo.byCode["GP001"] = &models.Faculty{ID: "f1", StaffCode: "GP001"}
	svc := newFacultyService(repo, nil, nil)

	_, err := svc.Create(context.Background(), FacultyRequest{
		StaffCode:      "gp001",
		FullName:       "Someone Else",
		InstituteEmail: "someone@gppalanpur.in",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestFacultyServiceCreateUnknownDepartment(t *testing.T) {
	svc := newFacultyService(newMockFacultyRepo(), nil, nil)

	deptID := "missing-dept"
	_, err := svc.Create(context.Background(), FacultyRequest{
		StaffCode:      "GP002",
		FullName:       "New Lecturer",
		InstituteEmail: "lecturer@gppalanpur.in",
		DepartmentID:   &deptID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFacultyServiceCreateProvisionsAccount(t *testing.T) {
	repo := newMockFacultyRepo()
	users := newMockStudentUserRepo()
	svc := newFacultyService(repo, users, nil)

	f, err := svc.Create(context.Background(), FacultyRequest{
		StaffCode:      "GP003",
		FullName:       "Alpesh Patel",
		InstituteEmail: "gp003@gppalanpur.in",
	})
	require.NoError(t, err)
	require.NotNil(t, f.UserID)

	require.Len(t, users.created, 1)
	account := users.created[0]
	assert.Equal(t, *f.UserID, account.ID)
	assert.Equal(t, "gp003@gppalanpur.in", account.Email)
	assert.Equal(t, []string{models.RoleFaculty}, account.Roles)
	require.NotNil(t, account.SelectedRole)
	assert.Equal(t, models.RoleFaculty, *account.SelectedRole)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("123456")))
}

func TestFacultyServiceCreateReusesExistingAccount(t *testing.T) {
	repo := newMockFacultyRepo()
	users := newMockStudentUserRepo()
	users.usersByEmail["hod@gppalanpur.in"] = &models.User{ID: "u7", Email: "hod@gppalanpur.in", Roles: []string{models.RoleHOD}}
	svc := newFacultyService(repo, users, nil)

	f, err := svc.Create(context.Background(), FacultyRequest{
		StaffCode:      "GP004",
		FullName:       "Head Of Dept",
		InstituteEmail: "hod@gppalanpur.in",
	})
	require.NoError(t, err)
	require.NotNil(t, f.UserID)
	assert.Equal(t, "u7", *f.UserID)
	assert.Empty(t, users.created)
	assert.True(t, users.usersByEmail["hod@gppalanpur.in"].HasRole(models.RoleFaculty))
}

func TestFacultyServiceImportGeneratesEmail(t *testing.T) {
	repo := newMockFacultyRepo()
	depts := &mockDeptLookup{
		byCode: map[string]*models.Department{"EC": {ID: "d-ec", Code: "EC"}},
		byID:   map[string]*models.Department{},
	}
	svc := newFacultyService(repo, nil, depts)

	csv := "staff_code,full_name,department,specializations,gender\n" +
		"GP010,Alpesh Patel,EC,VLSI; Embedded Systems,M\n" +
		",Missing Code,EC,,\n"
	report, err := svc.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Warnings, 1)

	f := repo.byCode["GP010"]
	require.NotNil(t, f)
	assert.Equal(t, "gp010@gppalanpur.in", f.InstituteEmail)
	assert.Equal(t, []string{"VLSI", "Embedded Systems"}, f.Specializations)
	require.NotNil(t, f.DepartmentID)
	assert.Equal(t, "d-ec", *f.DepartmentID)
	require.NotNil(t, f.Gender)
	assert.Equal(t, "male", *f.Gender)
}

func TestFacultyServiceImportUpdatesExisting(t *testing.T) {
	repo := newMockFacultyRepo()
	userID := "u1"
	repo.byCode["GP010"] = &models.Faculty{ID: "f1", StaffCode: "GP010", FullName: "Old Name", UserID: &userID, IsHOD: true}
	repo.byID["f1"] = repo.byCode["GP010"]
	svc := newFacultyService(repo, nil, nil)

	csv := "staff_code,name,designation\nGP010,Alpesh B Patel,Lecturer\n"
	report, err := svc.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	updated := repo.byCode["GP010"]
	assert.Equal(t, "f1", updated.ID)
	assert.Equal(t, "Alpesh B Patel", updated.FullName)
	require.NotNil(t, updated.UserID)
	assert.Equal(t, "u1", *updated.UserID)
	assert.True(t, updated.IsHOD)
}

func TestFacultyServiceExportDataset(t *testing.T) {
	repo := newMockFacultyRepo()
	desig := "Lecturer"
	repo.byID["f1"] = &models.Faculty{ID: "f1", StaffCode: "GP010", FullName: "Alpesh Patel", InstituteEmail: "gp010@gppalanpur.in", Designation: &desig, Status: "active", Specializations: []string{"VLSI", "IoT"}}
	svc := newFacultyService(repo, nil, nil)

	ds, err := svc.ExportDataset(context.Background(), models.FacultyFilter{})
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "VLSI;IoT", ds.Rows[0]["specializations"])
	assert.Equal(t, "Lecturer", ds.Rows[0]["designation"])
}
