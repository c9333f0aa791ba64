package domain

import (
	"fmt"
	"strings"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusApproved  OrderStatus = "APPROVED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusFulfilled OrderStatus = "FULFILLED"
)

// ParseOrderStatus accepts any letter case and rejects unknown values.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case OrderStatusPending, OrderStatusApproved, OrderStatusPaid, OrderStatusRejected, OrderStatusFulfilled:
		return status, nil
	}
	return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, s)
}

type InvoiceStatus string

const (
	// InvoiceStatusDraft invoice created, notice not delivered yet.
	InvoiceStatusDraft InvoiceStatus = "DRAFT"
	// InvoiceStatusPending invoice notice delivered, awaiting payment.
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

// Payable reports whether money can still be collected against the invoice.
func (s InvoiceStatus) Payable() bool {
	return s == InvoiceStatusDraft || s == InvoiceStatusPending || s == InvoiceStatusOverdue
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"

	// PaymentStatusRefundRequired marks money the gateway moved that no
	// invoice was settled with.
	PaymentStatusRefundRequired PaymentStatus = "REFUND_REQUIRED"
)

type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodManual       PaymentMethod = "MANUAL"
)

type CustomerKind string

const (
	CustomerKindCustomer CustomerKind = "CUSTOMER"
	CustomerKindReceiver CustomerKind = "RECEIVER"
)

type Role string

const (
	RoleBuyer Role = "BUYER"
	RoleStaff Role = "STAFF"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Privileged() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Actor is the authenticated caller performing an operation.
type Actor struct {
	UserID int
	Role   Role
}

// CanView reports whether the actor may read a resource owned by ownerID.
func (a Actor) CanView(ownerID int) bool {
	return a.Role.Privileged() || a.UserID == ownerID
}
