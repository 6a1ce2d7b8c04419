package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gppalanpur/portal-api/internal/models"
)

func TestDepartmentFindByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "code", "description", "hod_id", "established_date", "is_active", "created_at", "updated_at"}).
		AddRow("d1", "Computer Engineering", "CE", nil, nil, nil, true, now, now)
	mock.ExpectQuery("SELECT .+ FROM departments WHERE UPPER\\(code\\) = UPPER\\(\\$1\\) LIMIT 1").
		WithArgs("ce").
		WillReturnRows(rows)

	dept, err := repo.FindByCode(context.Background(), "ce")
	require.NoError(t, err)
	assert.Equal(t, "CE", dept.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentExistsByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(1)
	mock.ExpectQuery("SELECT 1 FROM departments WHERE UPPER\\(code\\) = UPPER\\(\\$1\\) LIMIT 1").
		WithArgs("CE").
		WillReturnRows(rows)

	exists, err := repo.ExistsByCode(context.Background(), "CE", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentStats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	rows := sqlmock.NewRows([]string{"department_id", "name", "code", "faculty_count", "student_count"}).
		AddRow("d1", "Computer Engineering", "CE", 12, 180).
		AddRow("d2", "Mechanical Engineering", "ME", 15, 240)
	mock.ExpectQuery("SELECT d.id AS department_id, d.name, d.code").WillReturnRows(rows)

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 180, stats[0].StudentCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectExec("INSERT INTO departments").WillReturnResult(sqlmock.NewResult(1, 1))

	dept := &models.Department{Name: "Civil Engineering", Code: "CV", IsActive: true}
	err := repo.Create(context.Background(), dept)
	require.NoError(t, err)
	assert.NotEmpty(t, dept.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentListDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "name", "code", "description", "hod_id", "established_date", "is_active", "created_at", "updated_at"}).
		AddRow("d1", "Computer Engineering", "CE", nil, nil, nil, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM departments WHERE 1=1 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(listRows)
	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM departments WHERE 1=1")).WillReturnRows(countRows)

	departments, total, err := repo.List(context.Background(), models.DepartmentFilter{})
	require.NoError(t, err)
	assert.Len(t, departments, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
