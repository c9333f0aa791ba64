package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/wholesale/internal/domain"
)

const timeLayout = time.RFC3339

type OrderDTO struct {
	ID        int    `json:"id" example:"42"`
	UserID    int    `json:"userId" example:"7"`
	Status    string `json:"status" example:"APPROVED"`
	Total     string `json:"total" example:"500.00"`
	Notes     string `json:"notes,omitempty" example:"deliver to dock 3"`
	CreatedAt string `json:"createdAt" example:"2024-03-09T16:09:57Z"`
	UpdatedAt string `json:"updatedAt" example:"2024-03-09T16:09:57Z"`
}

type OrderItemDTO struct {
	ProductRef string `json:"productRef" example:"SKU-1001"`
	Quantity   int    `json:"quantity" example:"10"`
	UnitPrice  string `json:"unitPrice" example:"50.00"`
	LineTotal  string `json:"lineTotal" example:"500.00"`
}

type OrderDetailsDTO struct {
	Order    OrderDTO       `json:"order"`
	Items    []OrderItemDTO `json:"items"`
	Invoice  *InvoiceDTO    `json:"invoice,omitempty"`
	Payments []PaymentDTO   `json:"payments"`
}

// UpdateOrderRequestDTO omitted fields are left unchanged.
type UpdateOrderRequestDTO struct {
	Status *string `json:"status,omitempty" example:"APPROVED"`
	Notes  *string `json:"notes,omitempty" example:"deliver to dock 3"`
}

type UpdateOrderResponseDTO struct {
	Order            OrderDTO `json:"order"`
	NotificationSent bool     `json:"notificationSent"`
	InvoiceCreated   bool     `json:"invoiceCreated"`
	InvoiceNumber    string   `json:"invoiceNumber,omitempty" example:"INV-17283645120000000016"`
}

// NewOrder renders order with total, which callers resolve from the items
// when the stored total is missing.
func NewOrder(order *domain.Order, total string) OrderDTO {
	return OrderDTO{
		ID:        order.ID,
		UserID:    order.UserID,
		Status:    string(order.Status),
		Total:     total,
		Notes:     order.Notes,
		CreatedAt: order.CreatedAt.Format(timeLayout),
		UpdatedAt: order.UpdatedAt.Format(timeLayout),
	}
}

func NewOrderItems(items []domain.OrderItem) []OrderItemDTO {
	out := make([]OrderItemDTO, 0, len(items))
	for _, item := range items {
		line := item.LineTotal
		if line.IsZero() {
			line = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		}
		out = append(out, OrderItemDTO{
			ProductRef: item.ProductRef,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.StringFixed(2),
			LineTotal:  line.StringFixed(2),
		})
	}
	return out
}
