package domain

import (
	"encoding/json"
	"time"
)

type AuditAction string

const (
	AuditOrderApproved             AuditAction = "ORDER_APPROVED"
	AuditOrderStatusChanged        AuditAction = "ORDER_STATUS_CHANGED"
	AuditOrderUpdated              AuditAction = "ORDER_UPDATED"
	AuditOrderNotificationSent     AuditAction = "ORDER_NOTIFICATION_SENT"
	AuditOrderNotificationFailed   AuditAction = "ORDER_NOTIFICATION_FAILED"
	AuditInvoiceSent               AuditAction = "INVOICE_SENT"
	AuditInvoiceDeliveryFailed     AuditAction = "INVOICE_DELIVERY_FAILED"
	AuditInvoicePaid               AuditAction = "INVOICE_PAID"
	AuditInvoiceOverdue            AuditAction = "INVOICE_OVERDUE"
	AuditPaymentFailed             AuditAction = "PAYMENT_FAILED"
	AuditPaymentReversed           AuditAction = "PAYMENT_REVERSED"
	AuditCustomerReconciled        AuditAction = "CUSTOMER_RECONCILED"
	AuditFundingSourceLinked       AuditAction = "FUNDING_SOURCE_LINKED"
	AuditFundingSourceRemoved      AuditAction = "FUNDING_SOURCE_REMOVED"
	AuditReceiverProvisioned       AuditAction = "RECEIVER_PROVISIONED"
	AuditPaymentNotificationFailed AuditAction = "PAYMENT_NOTIFICATION_FAILED"
	AuditDuplicateTransfer         AuditAction = "DUPLICATE_TRANSFER"
	AuditTransferUnrecorded        AuditAction = "TRANSFER_UNRECORDED"
)

type EntityType string

const (
	EntityOrder            EntityType = "ORDER"
	EntityInvoice          EntityType = "INVOICE"
	EntityPayment          EntityType = "PAYMENT"
	EntityExternalCustomer EntityType = "EXTERNAL_CUSTOMER"
	EntityFundingSource    EntityType = "FUNDING_SOURCE"
)

// ParseEntityType accepts the stored upper-case names only.
func ParseEntityType(s string) (EntityType, bool) {
	switch t := EntityType(s); t {
	case EntityOrder, EntityInvoice, EntityPayment, EntityExternalCustomer, EntityFundingSource:
		return t, true
	}
	return "", false
}

// OrderTransition is the metadata of an order audit entry.
type OrderTransition struct {
	PreviousStatus      OrderStatus `json:"previousStatus"`
	NewStatus           OrderStatus `json:"newStatus"`
	NotesChanged        bool        `json:"notesChanged"`
	InvoiceCreated      bool        `json:"invoiceCreated"`
	InvoiceNumber       string      `json:"invoiceNumber,omitempty"`
	NotificationPlanned bool        `json:"notificationPlanned"`
}

// DeliveryOutcome records the result of a best-effort notification.
type DeliveryOutcome struct {
	Notification string `json:"notification"`
	Recipient    string `json:"recipient,omitempty"`
	Delivered    bool   `json:"delivered"`
	Error        string `json:"error,omitempty"`
}

// InvoiceTransition is the metadata of an invoice audit entry.
type InvoiceTransition struct {
	InvoiceNumber  string        `json:"invoiceNumber"`
	PreviousStatus InvoiceStatus `json:"previousStatus"`
	NewStatus      InvoiceStatus `json:"newStatus"`
	PaymentID      int           `json:"paymentId,omitempty"`
	TransferRef    string        `json:"transferRef,omitempty"`
	Amount         string        `json:"amount,omitempty"`
	OrderStatus    OrderStatus   `json:"orderStatus,omitempty"`
	Reason         string        `json:"reason,omitempty"`
}

// FundingEvent is the metadata of customer and funding source audit entries.
type FundingEvent struct {
	ExternalID  string `json:"externalId"`
	AccountRef  string `json:"accountRef,omitempty"`
	Reconciled  bool   `json:"reconciled"`
	PreviousUID *int   `json:"previousUserId,omitempty"`
}

// NewAuditEntry builds an entry for actor with metadata marshalled to JSON.
// A nil actor marks a system action.
func NewAuditEntry(actor *Actor, action AuditAction, entityType EntityType, entityID int, metadata any) *AuditLogEntry {
	entry := &AuditLogEntry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   json.RawMessage(`{}`),
		CreatedAt:  time.Now(),
	}
	if actor != nil {
		id := actor.UserID
		entry.ActorID = &id
		entry.ActorRole = actor.Role
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = raw
		}
	}
	return entry
}
