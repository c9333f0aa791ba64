package customerrepo

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
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/wholesale/internal/domain"
)

var customerCols = []string{"id", "kind", "user_id", "external_id", "email", "status", "created_at", "updated_at"}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	t.Cleanup(mockDB.Close)

	return repo, mockDB
}

func TestRepository_FindByUserID(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	userID := 2
	query := regexp.QuoteMeta("FROM external_customers WHERE user_id = $1 AND kind = $2")

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
		result    *domain.ExternalCustomer
	}{
		{
			name: "Customer found",
			mockSetup: func() {
				rows := pgxmock.NewRows(customerCols).
					AddRow(1, domain.CustomerKindCustomer, &userID, "c-1", "b@example.com", "unverified", now, now)
				mock.ExpectQuery(query).WithArgs(2, domain.CustomerKindCustomer).WillReturnRows(rows)
			},
			result: &domain.ExternalCustomer{
				ID: 1, Kind: domain.CustomerKindCustomer, UserID: &userID, ExternalID: "c-1",
				Email: "b@example.com", Status: "unverified", CreatedAt: now, UpdatedAt: now,
			},
		},
		{
			name: "Customer missing",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs(2, domain.CustomerKindCustomer).WillReturnError(pgx.ErrNoRows)
			},
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs(2, domain.CustomerKindCustomer).WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.FindByUserID(context.Background(), 2)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.result, result)
		})
	}
}

func TestRepository_FindReceiver(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	rows := pgxmock.NewRows(customerCols).
		AddRow(5, domain.CustomerKindReceiver, nil, "r-1", "payments@wholesale.local", "verified", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM external_customers WHERE kind = $1")).
		WithArgs(domain.CustomerKindReceiver).
		WillReturnRows(rows)

	receiver, err := repo.FindReceiver(context.Background())
	require.NoError(t, err)
	assert.Nil(t, receiver.UserID)
	assert.Equal(t, "r-1", receiver.ExternalID)
}

func TestRepository_FindByExternalID(t *testing.T) {
	repo, mock := NewMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM external_customers WHERE external_id = $1")).
		WithArgs("c-x").
		WillReturnError(pgx.ErrNoRows)

	c, err := repo.FindByExternalID(context.Background(), "c-x")
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestRepository_Upsert(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	userID := 3
	query := regexp.QuoteMeta(`INSERT INTO external_customers (kind, user_id, external_id, email, status) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (external_id) DO UPDATE SET user_id = EXCLUDED.user_id`)

	tests := []struct {
		name      string
		mockSetup func()
		wantErr   error
		expectErr bool
	}{
		{
			name: "Stored",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(domain.CustomerKindCustomer, &userID, "c-1", "b@example.com", "unverified").
					WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(7, now, now))
			},
		},
		{
			name: "User already mirrors another identity",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(domain.CustomerKindCustomer, &userID, "c-1", "b@example.com", "unverified").
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			expectErr: true,
			wantErr:   domain.ErrConflict,
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(domain.CustomerKindCustomer, &userID, "c-1", "b@example.com", "unverified").
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			c := &domain.ExternalCustomer{Kind: domain.CustomerKindCustomer, UserID: &userID, ExternalID: "c-1", Email: "b@example.com", Status: "unverified"}
			err := repo.Upsert(context.Background(), c)
			if tt.expectErr {
				assert.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, 7, c.ID)
		})
	}
}
