package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceGracePeriod is the time between invoice creation and its due date.
const InvoiceGracePeriod = 15 * 24 * time.Hour

// Amount returns the stored line total, or unit price times quantity when the
// row carries no stored total.
func (i OrderItem) Amount() decimal.Decimal {
	if !i.LineTotal.IsZero() {
		return i.LineTotal
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ResolveOrderTotal is the single source for an order's amount: the total
// stored at creation wins; without it the line totals are summed.
func ResolveOrderTotal(order *Order, items []OrderItem) decimal.Decimal {
	if order != nil && !order.TotalAmount.IsZero() {
		return order.TotalAmount
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount())
	}
	return total
}

// DueDateFor returns the due date of an invoice created at createdAt.
func DueDateFor(createdAt time.Time) time.Time {
	return createdAt.Add(InvoiceGracePeriod)
}
