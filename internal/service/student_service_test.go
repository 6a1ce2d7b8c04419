package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gppalanpur/portal-api/internal/models"
)

type mockStudentRepo struct {
	students map[string]*models.Student
	links    map[string]string
}

func newMockStudentRepo(students ...*models.Student) *mockStudentRepo {
	repo := &mockStudentRepo{students: make(map[string]*models.Student), links: make(map[string]string)}
	for _, st := range students {
		repo.students[st.ID] = st
	}
	return repo
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, st := range m.students {
		out = append(out, *st)
	}
	if filter.Page > 1 {
		return nil, len(out), nil
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	st, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return st, nil
}

func (m *mockStudentRepo) FindByEnrollmentNo(ctx context.Context, enrollmentNo string) (*models.Student, error) {
	for _, st := range m.students {
		if st.EnrollmentNo == enrollmentNo {
			return st, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	for _, st := range m.students {
		if st.UserID != nil && *st.UserID == userID {
			return st, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ListByDepartment(ctx context.Context, departmentID string) ([]models.Student, error) {
	var out []models.Student
	for _, st := range m.students {
		if st.DepartmentID != nil && *st.DepartmentID == departmentID {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) ListUnlinked(ctx context.Context) ([]models.Student, error) {
	var out []models.Student
	for _, st := range m.students {
		if st.UserID == nil {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) MaxEnrollmentNoForPrefix(ctx context.Context, prefix string) (string, error) {
	max := ""
	for _, st := range m.students {
		if strings.HasPrefix(st.EnrollmentNo, prefix) && st.EnrollmentNo > max {
			max = st.EnrollmentNo
		}
	}
	return max, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, st *models.Student) error {
	if st.ID == "" {
		st.ID = "st-" + st.EnrollmentNo
	}
	m.students[st.ID] = st
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, st *models.Student) error {
	m.students[st.ID] = st
	return nil
}

func (m *mockStudentRepo) LinkUser(ctx context.Context, studentID, userID string) error {
	st, ok := m.students[studentID]
	if !ok {
		return sql.ErrNoRows
	}
	st.UserID = &userID
	m.links[studentID] = userID
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	delete(m.students, id)
	return nil
}

type mockStudentUserRepo struct {
	usersByEmail map[string]*models.User
	created      []*models.User
}

func newMockStudentUserRepo() *mockStudentUserRepo {
	return &mockStudentUserRepo{usersByEmail: make(map[string]*models.User)}
}

func (m *mockStudentUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := m.usersByEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockStudentUserRepo) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	var out []models.User
	for _, u := range m.usersByEmail {
		if u.HasRole(role) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockStudentUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "acct-" + user.Email
	}
	m.usersByEmail[user.Email] = user
	m.created = append(m.created, user)
	return nil
}

func (m *mockStudentUserRepo) AssignRole(ctx context.Context, userID, role string) error {
	for _, u := range m.usersByEmail {
		if u.ID == userID {
			if !u.HasRole(role) {
				u.Roles = append(u.Roles, role)
			}
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockDeptLookup struct {
	byCode map[string]*models.Department
	byID   map[string]*models.Department
}

func (m *mockDeptLookup) FindByCode(ctx context.Context, code string) (*models.Department, error) {
	d, ok := m.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return d, nil
}

func (m *mockDeptLookup) FindByID(ctx context.Context, id string) (*models.Department, error) {
	d, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return d, nil
}

func newStudentService(repo *mockStudentRepo, users *mockStudentUserRepo, depts *mockDeptLookup) *StudentService {
	if users == nil {
		users = newMockStudentUserRepo()
	}
	if depts == nil {
		depts = &mockDeptLookup{byCode: make(map[string]*models.Department), byID: make(map[string]*models.Department)}
	}
	return NewStudentService(repo, users, depts, nil, validator.New(), zap.NewNop(), "gppalanpur.in")
}

func TestStudentServiceCreateGeneratesEnrollment(t *testing.T) {
	year := time.Now().UTC().Format("2006")
	repo := newMockStudentRepo(&models.Student{ID: "s1", EnrollmentNo: year + "0007", FullName: "Existing"})
	svc := newStudentService(repo, nil, nil)

	student, err := svc.Create(context.Background(), StudentRequest{FullName: "New Student"})
	require.NoError(t, err)
	assert.Equal(t, year+"0008", student.EnrollmentNo)
	assert.Equal(t, fmt.Sprintf("%s0008@gppalanpur.in", year), student.InstituteEmail)
	assert.Equal(t, models.SemStatusNotAttempted, student.Sem1Status)
}

func TestStudentServiceCreateDuplicateEnrollment(t *testing.T) {
	repo := newMockStudentRepo(&models.Student{ID: "s1", EnrollmentNo: "20240001", FullName: "Existing"})
	svc := newStudentService(repo, nil, nil)

	_, err := svc.Create(context.Background(), StudentRequest{FullName: "Dup", EnrollmentNo: "20240001"})
	require.Error(t, err)
}

func TestStudentServiceSyncLinksAndCreatesAccounts(t *testing.T) {
	linkedID := "acct-20240001@gppalanpur.in"
	repo := newMockStudentRepo(
		&models.Student{ID: "s1", EnrollmentNo: "20240001", FullName: "Has Account", InstituteEmail: "20240001@gppalanpur.in"},
		&models.Student{ID: "s2", EnrollmentNo: "20240002", FullName: "Needs Account", InstituteEmail: "20240002@gppalanpur.in"},
	)
	users := newMockStudentUserRepo()
	users.usersByEmail["20240001@gppalanpur.in"] = &models.User{ID: linkedID, Email: "20240001@gppalanpur.in"}
	svc := newStudentService(repo, users, nil)

	report, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.AccountsLinked)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, linkedID, repo.links["s1"])

	require.Len(t, users.created, 1)
	account := users.created[0]
	assert.Equal(t, []string{models.RoleStudent}, account.Roles)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("20240002")))
}

func TestStudentServiceSyncCreatesRecordsForRoleUsers(t *testing.T) {
	year := time.Now().UTC().Format("2006")
	deptID := "d-civil"
	repo := newMockStudentRepo()
	users := newMockStudentUserRepo()
	users.usersByEmail["raj@example.com"] = &models.User{
		ID:           "u1",
		Name:         "Raj Kumar Patel",
		Email:        "raj@example.com",
		DepartmentID: &deptID,
		Roles:        []string{models.RoleStudent},
	}
	svc := newStudentService(repo, users, nil)

	report, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.RecordsCreated)
	assert.Empty(t, report.Errors)

	student, err := repo.FindByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, year+"0001", student.EnrollmentNo)
	assert.Equal(t, year+"0001@gppalanpur.in", student.InstituteEmail)
	assert.Equal(t, "Raj Kumar Patel", student.FullName)
	require.NotNil(t, student.FirstName)
	assert.Equal(t, "Raj", *student.FirstName)
	require.NotNil(t, student.MiddleName)
	assert.Equal(t, "Kumar", *student.MiddleName)
	require.NotNil(t, student.LastName)
	assert.Equal(t, "Patel", *student.LastName)
	require.NotNil(t, student.DepartmentID)
	assert.Equal(t, deptID, *student.DepartmentID)
	assert.Equal(t, models.StudentStatusActive, student.Status)

	// A second run sees the record and creates nothing new.
	report, err = svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.RecordsCreated)
}

func TestStudentServiceCreateProvisionsAccount(t *testing.T) {
	repo := newMockStudentRepo()
	users := newMockStudentUserRepo()
	svc := newStudentService(repo, users, nil)

	student, err := svc.Create(context.Background(), StudentRequest{FullName: "New Student"})
	require.NoError(t, err)
	require.NotNil(t, student.UserID)

	require.Len(t, users.created, 1)
	account := users.created[0]
	assert.Equal(t, *student.UserID, account.ID)
	assert.Equal(t, student.InstituteEmail, account.Email)
	assert.Equal(t, []string{models.RoleStudent}, account.Roles)
	require.NotNil(t, account.SelectedRole)
	assert.Equal(t, models.RoleStudent, *account.SelectedRole)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("123456")))
}

func TestStudentServiceCreateLinksExistingAccount(t *testing.T) {
	repo := newMockStudentRepo()
	users := newMockStudentUserRepo()
	users.usersByEmail["ex@gppalanpur.in"] = &models.User{ID: "u9", Email: "ex@gppalanpur.in", Roles: []string{models.RoleFaculty}}
	svc := newStudentService(repo, users, nil)

	student, err := svc.Create(context.Background(), StudentRequest{FullName: "Existing Account", InstituteEmail: "ex@gppalanpur.in"})
	require.NoError(t, err)
	require.NotNil(t, student.UserID)
	assert.Equal(t, "u9", *student.UserID)
	assert.Empty(t, users.created)
	assert.True(t, users.usersByEmail["ex@gppalanpur.in"].HasRole(models.RoleStudent))
}

func TestStudentServiceImportUniversityHeaders(t *testing.T) {
	repo := newMockStudentRepo()
	depts := &mockDeptLookup{
		byCode: map[string]*models.Department{"06": {ID: "d-civil", Code: "06", Name: "Civil Engineering"}},
		byID:   make(map[string]*models.Department),
	}
	svc := newStudentService(repo, nil, depts)

	csv := strings.Join([]string{
		"MAP_NUMBER,Name,BR_CODE,sem,Gender,SEM1,SEM2",
		"20240010,Patel Raj,06,3,M,24,0",
		",Missing Enrollment,06,1,,,",
	}, "\n")

	report, err := svc.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)

	student, err := repo.FindByEnrollmentNo(context.Background(), "20240010")
	require.NoError(t, err)
	assert.Equal(t, "Patel Raj", student.FullName)
	assert.Equal(t, "20240010@gppalanpur.in", student.InstituteEmail)
	require.NotNil(t, student.DepartmentID)
	assert.Equal(t, "d-civil", *student.DepartmentID)
	require.NotNil(t, student.Gender)
	assert.Equal(t, "male", *student.Gender)
	assert.Equal(t, models.SemStatusCleared, student.Sem1Status)
	assert.Equal(t, models.SemStatusPending, student.Sem2Status)
	assert.Equal(t, models.SemStatusNotAttempted, student.Sem3Status)
}

func TestStudentServiceImportUpdatesExisting(t *testing.T) {
	userID := "acct-1"
	repo := newMockStudentRepo(&models.Student{ID: "s1", EnrollmentNo: "20240010", FullName: "Old Name", UserID: &userID})
	svc := newStudentService(repo, nil, nil)

	csv := "enrollment_no,full_name\n20240010,New Name\n"
	report, err := svc.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	student, err := repo.FindByEnrollmentNo(context.Background(), "20240010")
	require.NoError(t, err)
	assert.Equal(t, "New Name", student.FullName)
	require.NotNil(t, student.UserID)
	assert.Equal(t, userID, *student.UserID)
}
