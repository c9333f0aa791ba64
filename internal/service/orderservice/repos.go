package orderservice

//go:generate mockgen -source=repos.go -destination=mock_repos.go -package=orderservice

import (
	"context"
	"time"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/effects"
)

type OrderRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, id int) (*domain.Order, error)
	FindByUserID(ctx context.Context, userID int) ([]domain.Order, error)
	FindItems(ctx context.Context, orderID int) ([]domain.OrderItem, error)
	FindItemsByOrderIDs(ctx context.Context, orderIDs []int) ([]domain.OrderItem, error)
	Update(ctx context.Context, order *domain.Order) error
}

type InvoiceRepo interface {
	FindByOrderID(ctx context.Context, orderID int) (*domain.Invoice, error)
	Create(ctx context.Context, inv *domain.Invoice) error
	TransitionStatus(ctx context.Context, id int, from, to domain.InvoiceStatus, at time.Time) (bool, error)
}

type PaymentRepo interface {
	FindByInvoiceID(ctx context.Context, invoiceID int) ([]domain.Payment, error)
}

type UserRepo interface {
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type AuditRepo interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
}

type NumberGenerator interface {
	Next() string
}

type EffectRunner interface {
	Run(ctx context.Context, list []effects.Effect) []effects.Outcome
}
