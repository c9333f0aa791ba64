package invoicerepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/wholesale/internal/domain"
)

var invoiceCols = []string{"id", "user_id", "order_id", "invoice_number", "total_amount", "due_date", "status",
	"paid_at", "payment_method", "transfer_ref", "created_at", "updated_at"}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	t.Cleanup(mockDB.Close)

	return repo, mockDB
}

func invoiceRow(now time.Time, orderID *int, status domain.InvoiceStatus) *pgxmock.Rows {
	return pgxmock.NewRows(invoiceCols).AddRow(
		10, 2, orderID, "INV-12345674", "500.00", domain.DueDateFor(now), status,
		nil, domain.PaymentMethod(""), "", now, now,
	)
}

func TestRepository_Finders(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	orderID := 7

	tests := []struct {
		name  string
		query string
		arg   any
		call  func() (*domain.Invoice, error)
	}{
		{
			name:  "by id",
			query: "FROM invoices WHERE id = $1",
			arg:   10,
			call:  func() (*domain.Invoice, error) { return repo.FindByID(context.Background(), 10) },
		},
		{
			name:  "by id for update",
			query: "FROM invoices WHERE id = $1 FOR UPDATE",
			arg:   10,
			call:  func() (*domain.Invoice, error) { return repo.FindByIDForUpdate(context.Background(), 10) },
		},
		{
			name:  "by order",
			query: "FROM invoices WHERE order_id = $1",
			arg:   7,
			call:  func() (*domain.Invoice, error) { return repo.FindByOrderID(context.Background(), 7) },
		},
		{
			name:  "by number",
			query: "FROM invoices WHERE invoice_number = $1",
			arg:   "INV-12345674",
			call:  func() (*domain.Invoice, error) { return repo.FindByNumber(context.Background(), "INV-12345674") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).WithArgs(tt.arg).
				WillReturnRows(invoiceRow(now, &orderID, domain.InvoiceStatusDraft))
			inv, err := tt.call()
			require.NoError(t, err)
			require.NotNil(t, inv)
			assert.Equal(t, 10, inv.ID)
			assert.Equal(t, &orderID, inv.OrderID)
			assert.Equal(t, domain.InvoiceStatusDraft, inv.Status)
			assert.True(t, decimal.RequireFromString("500").Equal(inv.TotalAmount))
			assert.Equal(t, now.Add(15*24*time.Hour), inv.DueDate)
		})
	}

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM invoices WHERE order_id = $1")).WithArgs(8).WillReturnError(pgx.ErrNoRows)
		inv, err := repo.FindByOrderID(context.Background(), 8)
		assert.NoError(t, err)
		assert.Nil(t, inv)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM invoices WHERE order_id = $1")).WithArgs(8).WillReturnError(errors.New("database error"))
		inv, err := repo.FindByOrderID(context.Background(), 8)
		assert.Error(t, err)
		assert.Nil(t, inv)
	})
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	orderID := 7
	query := regexp.QuoteMeta("INSERT INTO invoices (user_id, order_id, invoice_number, total_amount, due_date, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id")
	total := decimal.RequireFromString("500.00")

	newInvoice := func() *domain.Invoice {
		return &domain.Invoice{
			UserID:      2,
			OrderID:     &orderID,
			Number:      "INV-12345674",
			TotalAmount: total,
			DueDate:     domain.DueDateFor(now),
			Status:      domain.InvoiceStatusDraft,
			CreatedAt:   now,
		}
	}

	tests := []struct {
		name      string
		mockSetup func()
		wantErr   error
		expectErr bool
	}{
		{
			name: "Created",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(2, &orderID, "INV-12345674", total, domain.DueDateFor(now), domain.InvoiceStatusDraft, now).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(10))
			},
		},
		{
			name: "Second invoice for the order",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "invoices_order_id_key"})
			},
			expectErr: true,
			wantErr:   domain.ErrConflict,
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			inv := newInvoice()
			err := repo.Create(context.Background(), inv)
			if tt.expectErr {
				assert.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, 10, inv.ID)
			assert.Equal(t, now, inv.UpdatedAt)
		})
	}
}

func TestRepository_TransitionStatus(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE invoices SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4")).
		WithArgs(domain.InvoiceStatusPending, now, 10, domain.InvoiceStatusDraft).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	changed, err := repo.TransitionStatus(context.Background(), 10, domain.InvoiceStatusDraft, domain.InvoiceStatusPending, now)
	assert.NoError(t, err)
	assert.True(t, changed)
}

func TestRepository_MarkPaid(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	inv := &domain.Invoice{ID: 10, PaidAt: &now, PaymentMethod: domain.PaymentMethodBankTransfer, TransferRef: "t-1", UpdatedAt: now}
	query := regexp.QuoteMeta("UPDATE invoices SET status = $1, paid_at = $2, payment_method = $3, transfer_ref = $4, updated_at = $5 WHERE id = $6")

	mock.ExpectExec(query).
		WithArgs(domain.InvoiceStatusPaid, &now, domain.PaymentMethodBankTransfer, "t-1", now, 10).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	assert.NoError(t, repo.MarkPaid(context.Background(), inv))

	mock.ExpectExec(query).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("database error"))
	assert.Error(t, repo.MarkPaid(context.Background(), inv))
}

func TestRepository_Reopen(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("SET status = $1, paid_at = NULL, payment_method = '', transfer_ref = '', updated_at = $2 WHERE id = $3 AND status = $4")).
		WithArgs(domain.InvoiceStatusPending, now, 10, domain.InvoiceStatusPaid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	changed, err := repo.Reopen(context.Background(), 10, now)
	assert.NoError(t, err)
	assert.False(t, changed)
}

func TestRepository_FindPastDue(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status IN ('DRAFT', 'PENDING') AND due_date < $1 ORDER BY due_date ASC LIMIT $2")).
		WithArgs(now, 50).
		WillReturnRows(invoiceRow(now.Add(-30*24*time.Hour), nil, domain.InvoiceStatusPending))

	invoices, err := repo.FindPastDue(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Nil(t, invoices[0].OrderID)
	assert.Equal(t, domain.InvoiceStatusPending, invoices[0].Status)
}
