package settlement

//go:generate mockgen -source=repos.go -destination=mock_repos.go -package=settlement

import (
	"context"
	"time"

	"github.com/GlebRadaev/wholesale/internal/clients/bankgateway"
	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/effects"
)

type PaymentRepo interface {
	FindUnsettled(ctx context.Context, limit uint32) ([]domain.Payment, error)
	MarkSettled(ctx context.Context, id int, at time.Time) error
	MarkFailed(ctx context.Context, id int, at time.Time) (bool, error)
}

type InvoiceRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Invoice, error)
	Reopen(ctx context.Context, id int, at time.Time) (bool, error)
}

type OrderRepo interface {
	TransitionStatus(ctx context.Context, id int, from, to domain.OrderStatus, at time.Time) (bool, error)
}

type UserRepo interface {
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type AuditRepo interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
}

type Gateway interface {
	Enabled() bool
	GetTransfer(ctx context.Context, id string) (*bankgateway.Transfer, error)
}

type EffectRunner interface {
	Run(ctx context.Context, list []effects.Effect) []effects.Outcome
}
