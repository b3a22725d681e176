package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-incentive-api/internal/models"
)

func TestFindUserByEmailLowercases(t *testing.T) {
	store, mock, cleanup := newSQLStoreMock(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "name", "role", "secret_hash", "created_at"}).
		AddRow(1, "user@example.com", "User", string(models.RoleTeacher), "hash", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, role, secret_hash, created_at FROM user_accounts WHERE email = $1 LIMIT 1")).
		WithArgs("user@example.com").
		WillReturnRows(rows)

	user, err := store.FindUserByEmail(context.Background(), " User@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByEmailMissing(t *testing.T) {
	store, mock, cleanup := newSQLStoreMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM user_accounts").WillReturnError(sql.ErrNoRows)

	_, err := store.FindUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserAssignsID(t *testing.T) {
	store, mock, cleanup := newSQLStoreMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO user_accounts")).
		WithArgs("new@example.com", "New", string(models.RoleStudent), "hash", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	user := &models.User{Email: "NEW@example.com", Name: "New", Role: models.RoleStudent, SecretHash: "hash"}
	require.NoError(t, store.CreateUser(context.Background(), user))
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "new@example.com", user.Email)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersFiltersByRole(t *testing.T) {
	store, mock, cleanup := newSQLStoreMock(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "name", "role", "secret_hash", "created_at"}).
		AddRow(2, "a@example.com", "A", string(models.RoleStudent), "h", now).
		AddRow(3, "b@example.com", "B", string(models.RoleStudent), "h", now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_accounts WHERE role = $1 ORDER BY id ASC")).
		WithArgs(string(models.RoleStudent)).
		WillReturnRows(rows)

	users, err := store.ListUsers(context.Background(), models.RoleStudent)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
