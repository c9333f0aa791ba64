package transferservice

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/wholesale/internal/clients/bankgateway"
	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/effects"
	"github.com/GlebRadaev/wholesale/internal/notify"
	"github.com/GlebRadaev/wholesale/internal/pg"
)

var fixedNow = time.Date(2024, time.May, 2, 9, 0, 0, 0, time.UTC)

type mocks struct {
	invoices *MockInvoiceRepo
	payments *MockPaymentRepo
	orders   *MockOrderRepo
	funding  *MockFundingRepo
	users    *MockUserRepo
	audit    *MockAuditRepo
	tx       *pg.MockTXManager
	gateway  *MockGateway
	effects  *MockEffectRunner
}

func NewMock(t *testing.T, receiver string) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		invoices: NewMockInvoiceRepo(ctrl),
		payments: NewMockPaymentRepo(ctrl),
		orders:   NewMockOrderRepo(ctrl),
		funding:  NewMockFundingRepo(ctrl),
		users:    NewMockUserRepo(ctrl),
		audit:    NewMockAuditRepo(ctrl),
		tx:       pg.NewMockTXManager(ctrl),
		gateway:  NewMockGateway(ctrl),
		effects:  NewMockEffectRunner(ctrl),
	}
	m.tx.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		}).AnyTimes()

	service := New(Deps{
		Invoices:              m.invoices,
		Payments:              m.payments,
		Orders:                m.orders,
		Funding:               m.funding,
		Users:                 m.users,
		Audit:                 m.audit,
		TxManager:             m.tx,
		Gateway:               m.gateway,
		Effects:               m.effects,
		ReceiverFundingSource: "fs-platform",
	})
	service.receiver = receiver
	service.now = func() time.Time { return fixedNow }
	return service, m
}

var payer = domain.Actor{UserID: 7, Role: domain.RoleBuyer}

func openInvoice() *domain.Invoice {
	orderID := 42
	return &domain.Invoice{
		ID:          10,
		UserID:      7,
		OrderID:     &orderID,
		Number:      "INV-10000000000000000001",
		TotalAmount: decimal.RequireFromString("500.00"),
		Status:      domain.InvoiceStatusPending,
	}
}

func ownSource() *domain.FundingSource {
	return &domain.FundingSource{ID: 21, CustomerID: 5, ExternalID: "fs-buyer", Verified: true}
}

func validInput() PayInvoiceInput {
	return PayInvoiceInput{InvoiceID: 10, FundingSourceID: 21, Amount: decimal.RequireFromString("500")}
}

func TestPayInvoice_Success(t *testing.T) {
	service, m := NewMock(t, "fs-platform")
	input := validInput()

	m.gateway.EXPECT().Enabled().Return(true)
	m.invoices.EXPECT().FindByID(gomock.Any(), 10).Return(openInvoice(), nil)
	m.funding.EXPECT().FindOwned(gomock.Any(), 21, 7).Return(ownSource(), nil)
	m.gateway.EXPECT().CreateTransfer(gomock.Any(), bankgateway.TransferRequest{
		SourceID:       "fs-buyer",
		DestinationID:  "fs-platform",
		Amount:         input.Amount,
		IdempotencyKey: IdempotencyKey(10, 21, input.Amount),
	}).Return("tr-1", nil)

	m.invoices.EXPECT().FindByIDForUpdate(gomock.Any(), 10).Return(openInvoice(), nil)
	m.invoices.EXPECT().MarkPaid(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, inv *domain.Invoice) error {
			assert.Equal(t, domain.InvoiceStatusPaid, inv.Status)
			assert.Equal(t, domain.PaymentMethodBankTransfer, inv.PaymentMethod)
			assert.Equal(t, "tr-1", inv.TransferRef)
			require.NotNil(t, inv.PaidAt)
			assert.Equal(t, fixedNow, *inv.PaidAt)
			return nil
		})
	m.payments.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p *domain.Payment) error {
			assert.Equal(t, domain.PaymentStatusCompleted, p.Status)
			assert.Equal(t, "tr-1", p.TransferRef)
			p.ID = 3
			return nil
		})
	m.orders.EXPECT().TransitionStatus(gomock.Any(), 42, domain.OrderStatusApproved, domain.OrderStatusPaid, fixedNow).Return(true, nil)
	m.audit.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLogEntry) error {
			assert.Equal(t, domain.AuditInvoicePaid, entry.Action)
			var meta domain.InvoiceTransition
			require.NoError(t, json.Unmarshal(entry.Metadata, &meta))
			assert.Equal(t, 3, meta.PaymentID)
			assert.Equal(t, "500.00", meta.Amount)
			assert.Equal(t, domain.OrderStatusPaid, meta.OrderStatus)
			return nil
		})

	result, err := service.PayInvoice(context.Background(), payer, input)
	require.NoError(t, err)
	assert.Equal(t, &PayResult{TransferID: "tr-1", InvoiceNumber: "INV-10000000000000000001", PaymentID: 3}, result)
}

func TestPayInvoice_GatewayFailureLeavesLedgerUntouched(t *testing.T) {
	service, m := NewMock(t, "fs-platform")

	m.gateway.EXPECT().Enabled().Return(true)
	m.invoices.EXPECT().FindByID(gomock.Any(), 10).Return(openInvoice(), nil)
	m.funding.EXPECT().FindOwned(gomock.Any(), 21, 7).Return(ownSource(), nil)
	m.gateway.EXPECT().CreateTransfer(gomock.Any(), gomock.Any()).
		Return("", &bankgateway.APIError{StatusCode: 400, Code: "ValidationError", Message: "Insufficient funds"})
	m.users.EXPECT().FindByID(gomock.Any(), 7).Return(&domain.User{ID: 7, Email: "buyer@example.com", Name: "Acme"}, nil)
	m.effects.EXPECT().Run(gomock.Any(), gomock.Len(1)).DoAndReturn(
		func(_ context.Context, list []effects.Effect) []effects.Outcome {
			event, ok := list[0].Event.(notify.PaymentFailed)
			require.True(t, ok)
			assert.Equal(t, "buyer@example.com", event.To)
			return []effects.Outcome{{Effect: list[0]}}
		})
	m.audit.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLogEntry) error {
			assert.Equal(t, domain.AuditPaymentFailed, entry.Action)
			assert.Contains(t, string(entry.Metadata), "Insufficient funds")
			return nil
		})

	result, err := service.PayInvoice(context.Background(), payer, validInput())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrExternalService)
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.NotContains(t, err.Error(), "Insufficient funds")
}

func TestPayInvoice_NotificationFailureIsAudited(t *testing.T) {
	service, m := NewMock(t, "fs-platform")

	m.gateway.EXPECT().Enabled().Return(true)
	m.invoices.EXPECT().FindByID(gomock.Any(), 10).Return(openInvoice(), nil)
	m.funding.EXPECT().FindOwned(gomock.Any(), 21, 7).Return(ownSource(), nil)
	m.gateway.EXPECT().CreateTransfer(gomock.Any(), gomock.Any()).Return("", errors.New("connection reset"))
	m.users.EXPECT().FindByID(gomock.Any(), 7).Return(&domain.User{ID: 7, Email: "buyer@example.com"}, nil)
	m.effects.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, list []effects.Effect) []effects.Outcome {
			return []effects.Outcome{{Effect: list[0], Err: errors.New("mailer down")}}
		})

	var actions []domain.AuditAction
	m.audit.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLogEntry) error {
			actions = append(actions, entry.Action)
			return nil
		}).Times(2)

	_, err := service.PayInvoice(context.Background(), payer, validInput())
	assert.ErrorIs(t, err, domain.ErrExternalService)
	assert.Equal(t, []domain.AuditAction{domain.AuditPaymentFailed, domain.AuditPaymentNotificationFailed}, actions)
}

func TestPayInvoice_Rejected(t *testing.T) {
	tests := []struct {
		name        string
		receiver    string
		input       PayInvoiceInput
		prepareMock func(m *mocks)
		wantErr     error
	}{
		{
			name:     "non-positive amount",
			receiver: "fs-platform",
			input:    PayInvoiceInput{InvoiceID: 10, FundingSourceID: 21, Amount: decimal.Zero},
			wantErr:  domain.ErrValidation,
		},
		{
			name:     "receiver not configured",
			receiver: "",
			input:    validInput(),
			wantErr:  domain.ErrNotConfigured,
		},
		{
			name:     "gateway disabled",
			receiver: "fs-platform",
			input:    validInput(),
			prepareMock: func(m *mocks) {
				m.gateway.EXPECT().Enabled().Return(false)
			},
			wantErr: domain.ErrNotConfigured,
		},
		{
			name:     "invoice of another buyer",
			receiver: "fs-platform",
			input:    validInput(),
			prepareMock: func(m *mocks) {
				m.gateway.EXPECT().Enabled().Return(true)
				inv := openInvoice()
				inv.UserID = 8
				m.invoices.EXPECT().FindByID(gomock.Any(), 10).Return(inv, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:     "missing invoice",
			receiver: "fs-platform",
			input:    validInput(),
			prepareMock: func(m *mocks) {
				m.gateway.EXPECT().Enabled().Return(true)
				m.invoices.EXPECT().FindByID(gomock.Any(), 10).Return(nil, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:     "already paid",
			receiver: "fs-platform",
			input:    validInput(),
			prepareMock: func(m *mocks) {
				m.gateway.EXPECT().Enabled().Return(true)
				inv := openInvoice()
				inv.Status = domain.InvoiceStatusPaid
				m.invoices.EXPECT().FindByID(gomock.Any(), 10).Return(inv, nil)
			},
			wantErr: domain.ErrConflict,
		},
		{
			name:     "amount differs from total",
			receiver: "fs-platform",
			input:    PayInvoiceInput{InvoiceID: 10, FundingSourceID: 21, Amount: decimal.RequireFromString("250.00")},
			prepareMock: func(m *mocks) {
				m.gateway.EXPECT().Enabled().Return(true)
				m.invoices.EXPECT().FindByID(gomock.Any(), 10).Return(openInvoice(), nil)
			},
			wantErr: domain.ErrValidation,
		},
		{
			name:     "funding source not owned",
			receiver: "fs-platform",
			input:    validInput(),
			prepareMock: func(m *mocks) {
				m.gateway.EXPECT().Enabled().Return(true)
				m.invoices.EXPECT().FindByID(gomock.Any(), 10).Return(openInvoice(), nil)
				m.funding.EXPECT().FindOwned(gomock.Any(), 21, 7).Return(nil, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:     "removed funding source",
			receiver: "fs-platform",
			input:    validInput(),
			prepareMock: func(m *mocks) {
				m.gateway.EXPECT().Enabled().Return(true)
				m.invoices.EXPECT().FindByID(gomock.Any(), 10).Return(openInvoice(), nil)
				source := ownSource()
				source.Removed = true
				m.funding.EXPECT().FindOwned(gomock.Any(), 21, 7).Return(source, nil)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t, tt.receiver)
			if tt.prepareMock != nil {
				tt.prepareMock(m)
			}
			result, err := service.PayInvoice(context.Background(), payer, tt.input)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPayInvoice_RetryCollapsedByGateway(t *testing.T) {
	service, m := NewMock(t, "fs-platform")

	m.gateway.EXPECT().Enabled().Return(true)
	m.invoices.EXPECT().FindByID(gomock.Any(), 10).Return(openInvoice(), nil)
	m.funding.EXPECT().FindOwned(gomock.Any(), 21, 7).Return(ownSource(), nil)
	m.gateway.EXPECT().CreateTransfer(gomock.Any(), gomock.Any()).Return("tr-1", nil)

	paid := openInvoice()
	paid.Status = domain.InvoiceStatusPaid
	paid.TransferRef = "tr-1"
	m.invoices.EXPECT().FindByIDForUpdate(gomock.Any(), 10).Return(paid, nil)

	result, err := service.PayInvoice(context.Background(), payer, validInput())
	require.NoError(t, err)
	assert.Equal(t, "tr-1", result.TransferID)
}

func TestIdempotencyKey(t *testing.T) {
	a := IdempotencyKey(10, 21, decimal.RequireFromString("500"))
	b := IdempotencyKey(10, 21, decimal.RequireFromString("500.00"))
	c := IdempotencyKey(10, 22, decimal.RequireFromString("500.00"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36)
}

func TestPayInvoice_AcceptedTransferNotSettled(t *testing.T) {
	tests := []struct {
		name        string
		prepareMock func(m *mocks)
		wantErr     error
		wantAction  domain.AuditAction
	}{
		{
			name: "invoice paid concurrently by another transfer",
			prepareMock: func(m *mocks) {
				paid := openInvoice()
				paid.Status = domain.InvoiceStatusPaid
				paid.TransferRef = "tr-1"
				m.invoices.EXPECT().FindByIDForUpdate(gomock.Any(), 10).Return(paid, nil)
			},
			wantErr:    domain.ErrConflict,
			wantAction: domain.AuditDuplicateTransfer,
		},
		{
			name: "ledger write fails",
			prepareMock: func(m *mocks) {
				m.invoices.EXPECT().FindByIDForUpdate(gomock.Any(), 10).Return(openInvoice(), nil)
				m.invoices.EXPECT().MarkPaid(gomock.Any(), gomock.Any()).Return(errors.New("connection lost"))
			},
			wantErr:    errors.New("connection lost"),
			wantAction: domain.AuditTransferUnrecorded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t, "fs-platform")

			m.gateway.EXPECT().Enabled().Return(true)
			m.invoices.EXPECT().FindByID(gomock.Any(), 10).Return(openInvoice(), nil)
			m.funding.EXPECT().FindOwned(gomock.Any(), 21, 7).Return(ownSource(), nil)
			m.gateway.EXPECT().CreateTransfer(gomock.Any(), gomock.Any()).Return("tr-2", nil)
			tt.prepareMock(m)

			m.payments.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, p *domain.Payment) error {
					assert.Equal(t, domain.PaymentStatusRefundRequired, p.Status)
					assert.Equal(t, "tr-2", p.TransferRef)
					assert.Equal(t, 10, p.InvoiceID)
					assert.Nil(t, p.PaidAt)
					p.ID = 4
					return nil
				})
			m.audit.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, entry *domain.AuditLogEntry) error {
					assert.Equal(t, tt.wantAction, entry.Action)
					assert.Equal(t, domain.EntityInvoice, entry.EntityType)
					var meta domain.InvoiceTransition
					require.NoError(t, json.Unmarshal(entry.Metadata, &meta))
					assert.Equal(t, 4, meta.PaymentID)
					assert.Equal(t, "tr-2", meta.TransferRef)
					assert.Equal(t, "500.00", meta.Amount)
					return nil
				})

			result, err := service.PayInvoice(context.Background(), payer, validInput())
			assert.Nil(t, result)
			if errors.Is(tt.wantErr, domain.ErrConflict) {
				assert.ErrorIs(t, err, domain.ErrConflict)
				return
			}
			assert.EqualError(t, err, tt.wantErr.Error())
		})
	}
}
