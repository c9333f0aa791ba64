package userrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"

	"github.com/GlebRadaev/wholesale/internal/domain"
)

var userCols = []string{"id", "login", "email", "name", "role", "password_hash", "created_at"}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	t.Cleanup(mockDB.Close)

	return repo, mockDB
}

func TestRepository_FindByLogin(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	query := regexp.QuoteMeta("SELECT id, login, email, name, role, password_hash, created_at FROM users WHERE login = $1")

	tests := []struct {
		name      string
		login     string
		mockSetup func()
		expectErr bool
		result    *domain.User
	}{
		{
			name:  "User found",
			login: "test_user",
			mockSetup: func() {
				rows := pgxmock.NewRows(userCols).
					AddRow(1, "test_user", "t@example.com", "Test", domain.RoleStaff, "hashed_password", now)
				mock.ExpectQuery(query).WithArgs("test_user").WillReturnRows(rows)
			},
			result: &domain.User{
				ID:           1,
				Login:        "test_user",
				Email:        "t@example.com",
				Name:         "Test",
				Role:         domain.RoleStaff,
				PasswordHash: "hashed_password",
				CreatedAt:    now,
			},
		},
		{
			name:  "User not found",
			login: "non_existing_user",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs("non_existing_user").WillReturnError(pgx.ErrNoRows)
			},
		},
		{
			name:  "Database error",
			login: "test_user",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs("test_user").WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.FindByLogin(context.Background(), tt.login)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.result, result)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_FindByID(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	rows := pgxmock.NewRows(userCols).
		AddRow(3, "buyer", "b@example.com", "Buyer", domain.RoleBuyer, "h", now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).WithArgs(3).WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), 3)
	assert.NoError(t, err)
	assert.Equal(t, "b@example.com", user.Email)
	assert.Equal(t, domain.RoleBuyer, user.Role)
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	query := regexp.QuoteMeta("INSERT INTO users (login, email, name, role, password_hash) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at")

	tests := []struct {
		name      string
		mockSetup func()
		wantErr   error
		expectErr bool
	}{
		{
			name: "Successful creation",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs("new_user", "n@example.com", "New", domain.RoleBuyer, "hashed").
					WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))
			},
		},
		{
			name: "Login taken",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs("new_user", "n@example.com", "New", domain.RoleBuyer, "hashed").
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			expectErr: true,
			wantErr:   domain.ErrConflict,
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs("new_user", "n@example.com", "New", domain.RoleBuyer, "hashed").
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			user := &domain.User{Login: "new_user", Email: "n@example.com", Name: "New", Role: domain.RoleBuyer, PasswordHash: "hashed"}
			result, err := repo.Create(context.Background(), user)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, result)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, 1, result.ID)
			assert.Equal(t, now, result.CreatedAt)
		})
	}
}
