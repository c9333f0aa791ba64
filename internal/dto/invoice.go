package dto

import "github.com/GlebRadaev/wholesale/internal/domain"

type InvoiceDTO struct {
	ID            int    `json:"id" example:"11"`
	Number        string `json:"invoiceNumber" example:"INV-17283645120000000016"`
	OrderID       *int   `json:"orderId,omitempty" example:"42"`
	Total         string `json:"total" example:"500.00"`
	Status        string `json:"status" example:"PENDING"`
	DueDate       string `json:"dueDate" example:"2024-03-24T16:09:57Z"`
	PaidAt        string `json:"paidAt,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty" example:"BANK_TRANSFER"`
	TransferRef   string `json:"transferRef,omitempty"`
}

type PaymentDTO struct {
	ID          int    `json:"id"`
	Amount      string `json:"amount" example:"500.00"`
	Method      string `json:"method" example:"BANK_TRANSFER"`
	Status      string `json:"status" example:"COMPLETED"`
	TransferRef string `json:"transferRef,omitempty"`
	PaidAt      string `json:"paidAt,omitempty"`
	SettledAt   string `json:"settledAt,omitempty"`
}

func NewInvoice(invoice *domain.Invoice) *InvoiceDTO {
	if invoice == nil {
		return nil
	}
	out := &InvoiceDTO{
		ID:            invoice.ID,
		Number:        invoice.Number,
		OrderID:       invoice.OrderID,
		Total:         invoice.TotalAmount.StringFixed(2),
		Status:        string(invoice.Status),
		DueDate:       invoice.DueDate.Format(timeLayout),
		PaymentMethod: string(invoice.PaymentMethod),
		TransferRef:   invoice.TransferRef,
	}
	if invoice.PaidAt != nil {
		out.PaidAt = invoice.PaidAt.Format(timeLayout)
	}
	return out
}

func NewPayments(payments []domain.Payment) []PaymentDTO {
	out := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		item := PaymentDTO{
			ID:          p.ID,
			Amount:      p.Amount.StringFixed(2),
			Method:      string(p.Method),
			Status:      string(p.Status),
			TransferRef: p.TransferRef,
		}
		if p.PaidAt != nil {
			item.PaidAt = p.PaidAt.Format(timeLayout)
		}
		if p.SettledAt != nil {
			item.SettledAt = p.SettledAt.Format(timeLayout)
		}
		out = append(out, item)
	}
	return out
}
