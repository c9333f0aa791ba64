package orderservice

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

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/effects"
	"github.com/GlebRadaev/wholesale/internal/notify"
	"github.com/GlebRadaev/wholesale/internal/pg"
)

var fixedNow = time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

type mocks struct {
	orders   *MockOrderRepo
	invoices *MockInvoiceRepo
	payments *MockPaymentRepo
	users    *MockUserRepo
	audit    *MockAuditRepo
	tx       *pg.MockTXManager
	numbers  *MockNumberGenerator
	effects  *MockEffectRunner
}

func NewMock(t *testing.T) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		orders:   NewMockOrderRepo(ctrl),
		invoices: NewMockInvoiceRepo(ctrl),
		payments: NewMockPaymentRepo(ctrl),
		users:    NewMockUserRepo(ctrl),
		audit:    NewMockAuditRepo(ctrl),
		tx:       pg.NewMockTXManager(ctrl),
		numbers:  NewMockNumberGenerator(ctrl),
		effects:  NewMockEffectRunner(ctrl),
	}
	m.tx.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		}).AnyTimes()

	service := New(Deps{
		Orders:    m.orders,
		Invoices:  m.invoices,
		Payments:  m.payments,
		Users:     m.users,
		Audit:     m.audit,
		TxManager: m.tx,
		Numbers:   m.numbers,
		Effects:   m.effects,
	})
	service.now = func() time.Time { return fixedNow }
	return service, m
}

func strPtr(s string) *string { return &s }

var (
	staff = domain.Actor{UserID: 1, Role: domain.RoleStaff}
	buyer = domain.Actor{UserID: 7, Role: domain.RoleBuyer}
)

func pendingOrder() *domain.Order {
	return &domain.Order{
		ID:          42,
		UserID:      7,
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("500.00"),
	}
}

func customer() *domain.User {
	return &domain.User{ID: 7, Email: "buyer@example.com", Name: "Acme Stores", Role: domain.RoleBuyer}
}

// deliverAll answers Run as if every notice went out, optionally failing the
// ones named in failed.
func deliverAll(failed map[string]error) func(context.Context, []effects.Effect) []effects.Outcome {
	return func(_ context.Context, list []effects.Effect) []effects.Outcome {
		out := make([]effects.Outcome, 0, len(list))
		for _, e := range list {
			out = append(out, effects.Outcome{Effect: e, Err: failed[e.Name()]})
		}
		return out
	}
}

func TestUpdateOrder_Rejected(t *testing.T) {
	service, _ := NewMock(t)

	tests := []struct {
		name    string
		input   UpdateOrderInput
		actor   domain.Actor
		wantErr error
	}{
		{
			name:    "buyer cannot update",
			input:   UpdateOrderInput{Status: strPtr("APPROVED")},
			actor:   buyer,
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "empty update",
			actor:   staff,
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown status",
			input:   UpdateOrderInput{Status: strPtr("SHIPPED")},
			actor:   staff,
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.UpdateOrder(context.Background(), 42, tt.input, tt.actor)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateOrder_ApproveCreatesInvoice(t *testing.T) {
	service, m := NewMock(t)
	ctx := context.Background()

	m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 42).Return(pendingOrder(), nil)
	m.orders.EXPECT().FindItems(gomock.Any(), 42).Return(nil, nil)
	m.users.EXPECT().FindByID(gomock.Any(), 7).Return(customer(), nil)
	m.invoices.EXPECT().FindByOrderID(gomock.Any(), 42).Return(nil, nil)
	m.numbers.EXPECT().Next().Return("INV-10000000000000000001")
	m.invoices.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, inv *domain.Invoice) error {
			inv.ID = 10
			return nil
		})
	m.orders.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order *domain.Order) error {
			assert.Equal(t, domain.OrderStatusApproved, order.Status)
			require.NotNil(t, order.LastActorID)
			assert.Equal(t, 1, *order.LastActorID)
			assert.Equal(t, domain.RoleStaff, order.LastActorRole)
			return nil
		})

	var actions []domain.AuditAction
	m.audit.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLogEntry) error {
			actions = append(actions, entry.Action)
			return nil
		}).Times(3)
	m.effects.EXPECT().Run(gomock.Any(), gomock.Len(2)).DoAndReturn(deliverAll(nil))
	m.invoices.EXPECT().TransitionStatus(gomock.Any(), 10, domain.InvoiceStatusDraft, domain.InvoiceStatusPending, fixedNow).Return(true, nil)

	result, err := service.UpdateOrder(ctx, 42, UpdateOrderInput{Status: strPtr("approved")}, staff)
	require.NoError(t, err)

	assert.True(t, result.InvoiceCreated)
	assert.True(t, result.NotificationSent)
	assert.Equal(t, "INV-10000000000000000001", result.InvoiceNumber)
	assert.Equal(t, domain.OrderStatusApproved, result.Order.Status)
	assert.True(t, decimal.RequireFromString("500").Equal(result.Total))

	inv := result.Invoice
	require.NotNil(t, inv)
	assert.True(t, decimal.RequireFromString("500.00").Equal(inv.TotalAmount))
	assert.Equal(t, fixedNow.Add(15*24*time.Hour), inv.DueDate)
	assert.Equal(t, domain.InvoiceStatusPending, inv.Status)
	assert.True(t, inv.Status.Payable())
	assert.Equal(t, []domain.AuditAction{domain.AuditOrderApproved, domain.AuditOrderNotificationSent, domain.AuditInvoiceSent}, actions)
}

func TestUpdateOrder_SecondApprovalIsNoop(t *testing.T) {
	service, m := NewMock(t)

	order := pendingOrder()
	order.Status = domain.OrderStatusApproved
	orderID := order.ID
	existing := &domain.Invoice{ID: 10, OrderID: &orderID, Number: "INV-1", Status: domain.InvoiceStatusPending}

	m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 42).Return(order, nil)
	m.orders.EXPECT().FindItems(gomock.Any(), 42).Return(nil, nil)
	m.users.EXPECT().FindByID(gomock.Any(), 7).Return(customer(), nil)
	m.invoices.EXPECT().FindByOrderID(gomock.Any(), 42).Return(existing, nil)

	result, err := service.UpdateOrder(context.Background(), 42, UpdateOrderInput{Status: strPtr("APPROVED")}, staff)
	require.NoError(t, err)

	assert.False(t, result.InvoiceCreated)
	assert.False(t, result.NotificationSent)
	assert.Same(t, existing, result.Invoice)
}

func TestUpdateOrder_NotesOnly(t *testing.T) {
	service, m := NewMock(t)

	m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 42).Return(pendingOrder(), nil)
	m.orders.EXPECT().FindItems(gomock.Any(), 42).Return(nil, nil)
	m.users.EXPECT().FindByID(gomock.Any(), 7).Return(customer(), nil)
	m.invoices.EXPECT().FindByOrderID(gomock.Any(), 42).Return(nil, nil)
	m.orders.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	m.audit.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLogEntry) error {
			assert.Equal(t, domain.AuditOrderUpdated, entry.Action)
			assert.JSONEq(t, `{"previousStatus":"PENDING","newStatus":"PENDING","notesChanged":true,"invoiceCreated":false,"notificationPlanned":false}`, string(entry.Metadata))
			return nil
		})

	result, err := service.UpdateOrder(context.Background(), 42, UpdateOrderInput{Notes: strPtr("call before delivery")}, staff)
	require.NoError(t, err)
	assert.Equal(t, "call before delivery", result.Order.Notes)
	assert.False(t, result.InvoiceCreated)
}

func TestUpdateOrder_NotificationFailures(t *testing.T) {
	service, m := NewMock(t)

	m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 42).Return(pendingOrder(), nil)
	m.orders.EXPECT().FindItems(gomock.Any(), 42).Return(nil, nil)
	m.users.EXPECT().FindByID(gomock.Any(), 7).Return(customer(), nil)
	m.invoices.EXPECT().FindByOrderID(gomock.Any(), 42).Return(nil, nil)
	m.numbers.EXPECT().Next().Return("INV-2")
	m.invoices.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, inv *domain.Invoice) error {
			inv.ID = 11
			return nil
		})
	m.orders.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	mailerDown := errors.New("mailer unavailable")
	m.effects.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(deliverAll(map[string]error{
		notify.TemplateOrderStatusChanged: mailerDown,
		notify.TemplateInvoiceCreated:     mailerDown,
	}))

	var entries []*domain.AuditLogEntry
	m.audit.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLogEntry) error {
			entries = append(entries, entry)
			return nil
		}).Times(3)

	result, err := service.UpdateOrder(context.Background(), 42, UpdateOrderInput{Status: strPtr("APPROVED")}, staff)
	require.NoError(t, err)

	assert.False(t, result.NotificationSent)
	assert.Equal(t, domain.InvoiceStatusDraft, result.Invoice.Status)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.AuditOrderApproved, entries[0].Action)
	assert.Equal(t, domain.AuditOrderNotificationFailed, entries[1].Action)
	assert.Equal(t, domain.EntityOrder, entries[1].EntityType)
	assert.Equal(t, domain.AuditInvoiceDeliveryFailed, entries[2].Action)
	assert.Equal(t, 11, entries[2].EntityID)
	assert.Contains(t, string(entries[2].Metadata), "mailer unavailable")
}

func TestUpdateOrder_StatusChangeWithoutInvoice(t *testing.T) {
	service, m := NewMock(t)

	m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 42).Return(pendingOrder(), nil)
	m.orders.EXPECT().FindItems(gomock.Any(), 42).Return(nil, nil)
	m.users.EXPECT().FindByID(gomock.Any(), 7).Return(customer(), nil)
	m.invoices.EXPECT().FindByOrderID(gomock.Any(), 42).Return(nil, nil)
	m.orders.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	var entries []*domain.AuditLogEntry
	m.audit.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLogEntry) error {
			entries = append(entries, entry)
			return nil
		}).Times(2)
	m.effects.EXPECT().Run(gomock.Any(), gomock.Len(1)).DoAndReturn(deliverAll(nil))

	result, err := service.UpdateOrder(context.Background(), 42, UpdateOrderInput{Status: strPtr("REJECTED")}, staff)
	require.NoError(t, err)
	assert.True(t, result.NotificationSent)
	assert.Nil(t, result.Invoice)

	require.Len(t, entries, 2)
	assert.Equal(t, domain.AuditOrderStatusChanged, entries[0].Action)
	assert.Equal(t, domain.AuditOrderNotificationSent, entries[1].Action)
	assert.Equal(t, domain.EntityOrder, entries[1].EntityType)
	assert.Equal(t, 42, entries[1].EntityID)
	var outcome domain.DeliveryOutcome
	require.NoError(t, json.Unmarshal(entries[1].Metadata, &outcome))
	assert.True(t, outcome.Delivered)
	assert.Equal(t, notify.TemplateOrderStatusChanged, outcome.Notification)
}

func TestUpdateOrder_Errors(t *testing.T) {
	dbErr := errors.New("db error")

	tests := []struct {
		name        string
		status      string
		prepareMock func(m *mocks)
		wantErr     error
	}{
		{
			name:   "order not found",
			status: "REJECTED",
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 42).Return(nil, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:   "lock failure",
			status: "REJECTED",
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 42).Return(nil, dbErr)
			},
			wantErr: dbErr,
		},
		{
			name:   "zero total cannot be invoiced",
			status: "APPROVED",
			prepareMock: func(m *mocks) {
				order := pendingOrder()
				order.TotalAmount = decimal.Zero
				m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 42).Return(order, nil)
				m.orders.EXPECT().FindItems(gomock.Any(), 42).Return(nil, nil)
				m.users.EXPECT().FindByID(gomock.Any(), 7).Return(customer(), nil)
				m.invoices.EXPECT().FindByOrderID(gomock.Any(), 42).Return(nil, nil)
			},
			wantErr: domain.ErrValidation,
		},
		{
			name:   "audit failure rolls back",
			status: "REJECTED",
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 42).Return(pendingOrder(), nil)
				m.orders.EXPECT().FindItems(gomock.Any(), 42).Return(nil, nil)
				m.users.EXPECT().FindByID(gomock.Any(), 7).Return(customer(), nil)
				m.invoices.EXPECT().FindByOrderID(gomock.Any(), 42).Return(nil, nil)
				m.orders.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
				m.audit.EXPECT().Create(gomock.Any(), gomock.Any()).Return(dbErr)
			},
			wantErr: dbErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			result, err := service.UpdateOrder(context.Background(), 42, UpdateOrderInput{Status: strPtr(tt.status)}, staff)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
		})
	}
}

func TestGetOrder(t *testing.T) {
	orderID := 42
	invoice := &domain.Invoice{ID: 10, OrderID: &orderID, Number: "INV-1", Status: domain.InvoiceStatusPaid}
	payments := []domain.Payment{{ID: 3, InvoiceID: 10, Amount: decimal.RequireFromString("500.00")}}

	tests := []struct {
		name        string
		actor       domain.Actor
		prepareMock func(m *mocks)
		wantErr     error
	}{
		{
			name:  "owner sees details",
			actor: buyer,
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByID(gomock.Any(), 42).Return(pendingOrder(), nil)
				m.orders.EXPECT().FindItems(gomock.Any(), 42).Return(nil, nil)
				m.users.EXPECT().FindByID(gomock.Any(), 7).Return(customer(), nil)
				m.invoices.EXPECT().FindByOrderID(gomock.Any(), 42).Return(invoice, nil)
				m.payments.EXPECT().FindByInvoiceID(gomock.Any(), 10).Return(payments, nil)
			},
		},
		{
			name:  "staff sees any order",
			actor: staff,
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByID(gomock.Any(), 42).Return(pendingOrder(), nil)
				m.orders.EXPECT().FindItems(gomock.Any(), 42).Return(nil, nil)
				m.users.EXPECT().FindByID(gomock.Any(), 7).Return(customer(), nil)
				m.invoices.EXPECT().FindByOrderID(gomock.Any(), 42).Return(invoice, nil)
				m.payments.EXPECT().FindByInvoiceID(gomock.Any(), 10).Return(payments, nil)
			},
		},
		{
			name:  "other buyer gets not found",
			actor: domain.Actor{UserID: 8, Role: domain.RoleBuyer},
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByID(gomock.Any(), 42).Return(pendingOrder(), nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:  "missing order",
			actor: staff,
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByID(gomock.Any(), 42).Return(nil, nil)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			details, err := service.GetOrder(context.Background(), 42, tt.actor)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, invoice, details.Invoice)
			assert.Equal(t, payments, details.Payments)
			assert.True(t, decimal.RequireFromString("500").Equal(details.Total))
		})
	}
}

func TestListOrders(t *testing.T) {
	unpriced := domain.Order{ID: 43, UserID: 7, Status: domain.OrderStatusPending}
	items := []domain.OrderItem{
		{OrderID: 43, Quantity: 2, UnitPrice: decimal.RequireFromString("100")},
		{OrderID: 43, Quantity: 1, LineTotal: decimal.RequireFromString("12.50")},
	}

	tests := []struct {
		name        string
		prepareMock func(m *mocks)
		wantTotals  map[int]string
		wantErr     bool
	}{
		{
			name: "stored totals need no items",
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByUserID(gomock.Any(), 7).Return([]domain.Order{*pendingOrder()}, nil)
			},
			wantTotals: map[int]string{42: "500.00"},
		},
		{
			name: "missing total resolved from items",
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByUserID(gomock.Any(), 7).Return([]domain.Order{*pendingOrder(), unpriced}, nil)
				m.orders.EXPECT().FindItemsByOrderIDs(gomock.Any(), []int{43}).Return(items, nil)
			},
			wantTotals: map[int]string{42: "500.00", 43: "212.50"},
		},
		{
			name: "orders error",
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByUserID(gomock.Any(), 7).Return(nil, errors.New("db error"))
			},
			wantErr: true,
		},
		{
			name: "items error",
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByUserID(gomock.Any(), 7).Return([]domain.Order{unpriced}, nil)
				m.orders.EXPECT().FindItemsByOrderIDs(gomock.Any(), []int{43}).Return(nil, errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			summaries, err := service.ListOrders(context.Background(), buyer)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			got := make(map[int]string, len(summaries))
			for _, summary := range summaries {
				got[summary.Order.ID] = summary.Total.StringFixed(2)
			}
			assert.Equal(t, tt.wantTotals, got)
		})
	}
}
