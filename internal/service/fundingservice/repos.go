package fundingservice

//go:generate mockgen -source=repos.go -destination=mock_repos.go -package=fundingservice

import (
	"context"
	"time"

	"github.com/GlebRadaev/wholesale/internal/clients/bankgateway"
	"github.com/GlebRadaev/wholesale/internal/clients/linking"
	"github.com/GlebRadaev/wholesale/internal/domain"
)

type CustomerRepo interface {
	FindByUserID(ctx context.Context, userID int) (*domain.ExternalCustomer, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.ExternalCustomer, error)
	FindReceiver(ctx context.Context) (*domain.ExternalCustomer, error)
	Upsert(ctx context.Context, c *domain.ExternalCustomer) error
}

type FundingRepo interface {
	FindActive(ctx context.Context, customerID int, accountRef string) (*domain.FundingSource, error)
	FindOwned(ctx context.Context, id, userID int) (*domain.FundingSource, error)
	ListByUser(ctx context.Context, userID int) ([]domain.FundingSource, error)
	Upsert(ctx context.Context, f *domain.FundingSource) (bool, error)
	MarkRemoved(ctx context.Context, id int, at time.Time) (bool, error)
}

type UserRepo interface {
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type AuditRepo interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
}

type Gateway interface {
	Enabled() bool
	CreateCustomer(ctx context.Context, req bankgateway.CreateCustomerRequest) (string, error)
	GetCustomer(ctx context.Context, id string) (*bankgateway.Customer, error)
	CreateFundingSource(ctx context.Context, customerID string, req bankgateway.CreateFundingSourceRequest) (string, error)
}

type Linker interface {
	Enabled() bool
	ExchangePublicToken(ctx context.Context, publicToken string) (*linking.ExchangeResult, error)
	GetAccounts(ctx context.Context, accessToken string) ([]linking.Account, error)
	CreateProcessorToken(ctx context.Context, accessToken, accountID string) (string, error)
}
