package notify

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/wholesale/internal/domain"
)

const (
	TemplateInvoiceCreated     = "INVOICE_CREATED"
	TemplateOrderStatusChanged = "ORDER_STATUS_CHANGED"
	TemplatePaymentFailed      = "PAYMENT_FAILED"
)

// Event is a notice for one recipient. The mailer renders it with the
// template named by Template.
type Event interface {
	Template() string
	Recipient() string
}

type InvoiceCreated struct {
	To            string          `json:"-"`
	CustomerName  string          `json:"customerName"`
	OrderID       int             `json:"orderId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Total         decimal.Decimal `json:"total"`
	DueDate       time.Time       `json:"dueDate"`
}

func (e InvoiceCreated) Template() string  { return TemplateInvoiceCreated }
func (e InvoiceCreated) Recipient() string { return e.To }

type OrderStatusChanged struct {
	To             string             `json:"-"`
	CustomerName   string             `json:"customerName"`
	OrderID        int                `json:"orderId"`
	PreviousStatus domain.OrderStatus `json:"previousStatus"`
	NewStatus      domain.OrderStatus `json:"newStatus"`
	Notes          string             `json:"notes,omitempty"`
}

func (e OrderStatusChanged) Template() string  { return TemplateOrderStatusChanged }
func (e OrderStatusChanged) Recipient() string { return e.To }

type PaymentFailed struct {
	To            string          `json:"-"`
	CustomerName  string          `json:"customerName"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason"`
}

func (e PaymentFailed) Template() string  { return TemplatePaymentFailed }
func (e PaymentFailed) Recipient() string { return e.To }
