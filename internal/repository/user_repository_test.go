package repository_test

import (
	"context"
	"testing"
	"time"

	"kanbanlive/internal/model"
	"kanbanlive/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	userID := uuid.New()
	user := &model.User{
		ID:    userID,
		Email: "test@example.com",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WithArgs(user.Email, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID.String()))
	mock.ExpectCommit()

	// Act
	err := userRepo.Create(context.Background(), user)

	// Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail_Found(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	userID := uuid.New()
	email := "test@example.com"

	mock.ExpectQuery(`SELECT .* FROM "users" WHERE email = .* LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "created_at"}).
			AddRow(userID.String(), email, "Test User", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))

	// Act
	user, err := userRepo.FindByEmail(context.Background(), email)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, email, user.Email)
	assert.Equal(t, "Test User", user.DisplayName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	mock.ExpectQuery(`SELECT .* FROM "users" WHERE email = .* LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "created_at"}))

	// Act
	user, err := userRepo.FindByEmail(context.Background(), "nonexistent@example.com")

	// Assert
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail_Error(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	mock.ExpectQuery(`SELECT .* FROM "users" WHERE email = .* LIMIT`).
		WillReturnError(assert.AnError)

	// Act
	user, err := userRepo.FindByEmail(context.Background(), "test@example.com")

	// Assert
	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}
