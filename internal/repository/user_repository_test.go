package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gppalanpur/portal-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "department_id", "selected_role", "created_at", "updated_at"}).
		AddRow("1", "Admin", "admin@gppalanpur.in", "hash", nil, models.RoleAdmin, now, now)
	mock.ExpectQuery("SELECT id, name, email, password_hash, department_id, selected_role, created_at, updated_at FROM users WHERE LOWER\\(email\\) = LOWER\\(\\$1\\) LIMIT 1").
		WithArgs("admin@gppalanpur.in").
		WillReturnRows(rows)

	roleRows := sqlmock.NewRows([]string{"role_name"}).AddRow(models.RoleAdmin)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT role_name FROM user_roles WHERE user_id = $1 ORDER BY role_name")).
		WithArgs("1").
		WillReturnRows(roleRows)

	user, err := repo.FindByEmail(context.Background(), "admin@gppalanpur.in")
	require.NoError(t, err)
	assert.Equal(t, "admin@gppalanpur.in", user.Email)
	assert.Equal(t, []string{models.RoleAdmin}, user.Roles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{ID: "1", UserID: "u1", Token: "token", ExpiresAt: time.Now(), CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "department_id", "selected_role", "created_at", "updated_at"}).
		AddRow("1", "A", "a@gppalanpur.in", "hash", nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT u.id, u.name, u.email, u.password_hash, u.department_id, u.selected_role, u.created_at, u.updated_at FROM users u WHERE 1=1 ORDER BY u.created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(listRows)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users u WHERE 1=1")).WillReturnRows(countRows)

	roleRows := sqlmock.NewRows([]string{"role_name"}).AddRow(models.RoleStudent)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT role_name FROM user_roles WHERE user_id = $1 ORDER BY role_name")).
		WithArgs("1").
		WillReturnRows(roleRows)

	users, total, err := repo.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRoles(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_roles WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2)")).
		WithArgs("u1", models.RoleFaculty).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2)")).
		WithArgs("u1", models.RoleHOD).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.ReplaceRoles(context.Background(), "u1", []string{models.RoleFaculty, models.RoleHOD})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
