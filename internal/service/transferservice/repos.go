package transferservice

//go:generate mockgen -source=repos.go -destination=mock_repos.go -package=transferservice

import (
	"context"
	"time"

	"github.com/GlebRadaev/wholesale/internal/clients/bankgateway"
	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/effects"
)

type InvoiceRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Invoice, error)
	FindByIDForUpdate(ctx context.Context, id int) (*domain.Invoice, error)
	MarkPaid(ctx context.Context, inv *domain.Invoice) error
}

type PaymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) error
}

type OrderRepo interface {
	TransitionStatus(ctx context.Context, id int, from, to domain.OrderStatus, at time.Time) (bool, error)
}

type FundingRepo interface {
	FindOwned(ctx context.Context, id, userID int) (*domain.FundingSource, error)
}

type UserRepo interface {
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type AuditRepo interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
}

type Gateway interface {
	Enabled() bool
	CreateTransfer(ctx context.Context, req bankgateway.TransferRequest) (string, error)
}

type EffectRunner interface {
	Run(ctx context.Context, list []effects.Effect) []effects.Outcome
}
