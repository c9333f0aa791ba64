package fundingservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GlebRadaev/wholesale/internal/clients/bankgateway"
	"github.com/GlebRadaev/wholesale/internal/clients/linking"
	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/pg"
)

const defaultConcurrency = 4

const (
	WarnGatewayDisabled    = "bank gateway is not configured; accounts were linked without funding sources"
	WarnReceiverFailed     = "platform receiver account could not be provisioned"
	WarnCustomerFailed     = "payment customer could not be provisioned; no funding sources were created"
	WarnNoEligibleAccounts = "no checking or savings accounts were found"
)

type Options struct {
	ReceiverName  string
	ReceiverEmail string
	// Concurrency bounds the accounts provisioned at once.
	Concurrency int
}

type Deps struct {
	Customers CustomerRepo
	Funding   FundingRepo
	Users     UserRepo
	Audit     AuditRepo
	TxManager pg.TXManager
	Gateway   Gateway
	Linker    Linker
}

// Service provisions the gateway identities and funding sources that let a
// buyer pay by bank transfer.
type Service struct {
	customers CustomerRepo
	funding   FundingRepo
	users     UserRepo
	audit     AuditRepo
	txManager pg.TXManager
	gateway   Gateway
	linker    Linker
	opts      Options
	now       func() time.Time
}

func New(deps Deps, opts Options) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Service{
		customers: deps.Customers,
		funding:   deps.Funding,
		users:     deps.Users,
		audit:     deps.Audit,
		txManager: deps.TxManager,
		gateway:   deps.Gateway,
		linker:    deps.Linker,
		opts:      opts,
		now:       time.Now,
	}
}

type LinkResult struct {
	AccountsLinked        int
	FundingSourcesCreated int
	Accounts              []linking.Account
	FundingSources        []domain.FundingSource
	Warnings              []string
}

// LinkBankAccount exchanges a linking-network public token and turns every
// eligible account into a verified funding source. Only the token exchange
// and account listing are fatal; every later failure degrades to a warning.
// Calling it again for the same accounts creates nothing new.
func (s *Service) LinkBankAccount(ctx context.Context, actor domain.Actor, publicToken string) (*LinkResult, error) {
	if strings.TrimSpace(publicToken) == "" {
		return nil, fmt.Errorf("%w: public token is required", domain.ErrValidation)
	}
	if !s.linker.Enabled() {
		return nil, fmt.Errorf("%w: %w", domain.ErrNotConfigured, linking.ErrDisabled)
	}

	result := &LinkResult{}
	gatewayEnabled := s.gateway.Enabled()
	if !gatewayEnabled {
		result.Warnings = append(result.Warnings, WarnGatewayDisabled)
	} else if _, err := s.ensureReceiver(ctx); err != nil {
		zap.L().Warn("can't provision receiver", zap.Error(err))
		result.Warnings = append(result.Warnings, WarnReceiverFailed)
	}

	exchange, err := s.linker.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		zap.L().Error("can't exchange public token", zap.Int("userID", actor.UserID), zap.Error(err))
		return nil, fmt.Errorf("%w: exchange public token: %w", domain.ErrExternalService, err)
	}
	accounts, err := s.linker.GetAccounts(ctx, exchange.AccessToken)
	if err != nil {
		zap.L().Error("can't list linked accounts", zap.Int("userID", actor.UserID), zap.Error(err))
		return nil, fmt.Errorf("%w: list accounts: %w", domain.ErrExternalService, err)
	}

	for _, account := range accounts {
		if account.Eligible() {
			result.Accounts = append(result.Accounts, account)
		}
	}
	result.AccountsLinked = len(result.Accounts)
	if result.AccountsLinked == 0 {
		result.Warnings = append(result.Warnings, WarnNoEligibleAccounts)
		return result, nil
	}
	if !gatewayEnabled {
		return result, nil
	}

	customer, err := s.ensureCustomer(ctx, actor)
	if err != nil {
		zap.L().Warn("can't provision payment customer", zap.Int("userID", actor.UserID), zap.Error(err))
		result.Warnings = append(result.Warnings, WarnCustomerFailed)
		return result, nil
	}

	s.provisionSources(ctx, actor, customer, exchange.AccessToken, result)
	return result, nil
}

// provisionSources creates funding sources for the eligible accounts, a
// bounded number at a time.
func (s *Service) provisionSources(ctx context.Context, actor domain.Actor, customer *domain.ExternalCustomer, accessToken string, result *LinkResult) {
	var (
		mu      sync.Mutex
		sources = make([]*domain.FundingSource, len(result.Accounts))
		g       errgroup.Group
	)
	g.SetLimit(s.opts.Concurrency)

	for i, account := range result.Accounts {
		g.Go(func() error {
			source, created, err := s.provisionSource(ctx, actor, customer, accessToken, account)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zap.L().Warn("can't provision funding source",
					zap.String("accountRef", account.ID),
					zap.Error(err),
				)
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("account %s could not be linked for payments", account.DisplayName()))
				return nil
			}
			sources[i] = source
			if created {
				result.FundingSourcesCreated++
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, source := range sources {
		if source != nil {
			result.FundingSources = append(result.FundingSources, *source)
		}
	}
}

func (s *Service) provisionSource(ctx context.Context, actor domain.Actor, customer *domain.ExternalCustomer, accessToken string, account linking.Account) (*domain.FundingSource, bool, error) {
	existing, err := s.funding.FindActive(ctx, customer.ID, account.ID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	processorToken, err := s.linker.CreateProcessorToken(ctx, accessToken, account.ID)
	if err != nil {
		return nil, false, fmt.Errorf("processor token: %w", err)
	}

	externalID, err := s.gateway.CreateFundingSource(ctx, customer.ExternalID, bankgateway.CreateFundingSourceRequest{
		ProcessorToken: processorToken,
		Name:           account.DisplayName(),
	})
	reconciled := false
	if err != nil {
		id, ok := duplicateID(err)
		if !ok {
			return nil, false, fmt.Errorf("create funding source: %w", err)
		}
		externalID, reconciled = id, true
	}

	source := &domain.FundingSource{
		CustomerID: customer.ID,
		AccountRef: account.ID,
		ExternalID: externalID,
		Name:       account.DisplayName(),
		Mask:       account.Mask,
		Verified:   true,
	}
	var inserted bool
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		created, err := s.funding.Upsert(ctx, source)
		if err != nil {
			return err
		}
		inserted = created
		entry := domain.NewAuditEntry(&actor, domain.AuditFundingSourceLinked, domain.EntityFundingSource, source.ID, domain.FundingEvent{
			ExternalID: externalID,
			AccountRef: account.ID,
			Reconciled: reconciled,
		})
		return s.audit.Create(ctx, entry)
	})
	if err != nil {
		return nil, false, err
	}
	return source, inserted, nil
}

// ensureReceiver returns the platform's receiving identity, creating it in the
// gateway on first use.
func (s *Service) ensureReceiver(ctx context.Context) (*domain.ExternalCustomer, error) {
	receiver, err := s.customers.FindReceiver(ctx)
	if err != nil || receiver != nil {
		return receiver, err
	}

	externalID, err := s.gateway.CreateCustomer(ctx, bankgateway.CreateCustomerRequest{
		FirstName:    "Platform",
		LastName:     "Receiver",
		Email:        s.opts.ReceiverEmail,
		Type:         bankgateway.CustomerTypeReceiveOnly,
		BusinessName: s.opts.ReceiverName,
	})
	reconciled := false
	if err != nil {
		id, ok := duplicateID(err)
		if !ok {
			return nil, fmt.Errorf("create receiver: %w", err)
		}
		externalID, reconciled = id, true
	}

	receiver = &domain.ExternalCustomer{
		Kind:       domain.CustomerKindReceiver,
		ExternalID: externalID,
		Email:      s.opts.ReceiverEmail,
		Status:     bankgateway.CustomerTypeReceiveOnly,
	}
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		if err := s.customers.Upsert(ctx, receiver); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(nil, domain.AuditReceiverProvisioned, domain.EntityExternalCustomer, receiver.ID, domain.FundingEvent{
			ExternalID: externalID,
			Reconciled: reconciled,
		})
		return s.audit.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return receiver, nil
}

// ensureCustomer returns the user's gateway identity. When the gateway already
// knows the user's email the existing identity is adopted and re-pointed at
// this user.
func (s *Service) ensureCustomer(ctx context.Context, actor domain.Actor) (*domain.ExternalCustomer, error) {
	customer, err := s.customers.FindByUserID(ctx, actor.UserID)
	if err != nil || customer != nil {
		return customer, err
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, actor.UserID)
	}

	first, last := splitName(user.Name, user.Login)
	status := bankgateway.CustomerTypeUnverified
	externalID, err := s.gateway.CreateCustomer(ctx, bankgateway.CreateCustomerRequest{
		FirstName:    first,
		LastName:     last,
		Email:        user.Email,
		Type:         bankgateway.CustomerTypeUnverified,
		BusinessName: user.Name,
	})
	reconciled := false
	if err != nil {
		id, ok := duplicateID(err)
		if !ok {
			return nil, fmt.Errorf("create customer: %w", err)
		}
		remote, err := s.gateway.GetCustomer(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get existing customer %s: %w", id, err)
		}
		externalID, reconciled = remote.ID, true
		if remote.Status != "" {
			status = remote.Status
		}
	}

	userID := actor.UserID
	customer = &domain.ExternalCustomer{
		Kind:       domain.CustomerKindCustomer,
		UserID:     &userID,
		ExternalID: externalID,
		Email:      user.Email,
		Status:     status,
	}
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		var previous *int
		if reconciled {
			prior, err := s.customers.FindByExternalID(ctx, externalID)
			if err != nil {
				return err
			}
			if prior != nil && prior.UserID != nil && *prior.UserID != userID {
				previous = prior.UserID
			}
		}
		if err := s.customers.Upsert(ctx, customer); err != nil {
			return err
		}
		if !reconciled {
			return nil
		}
		zap.L().Info("adopted existing gateway customer",
			zap.Int("userID", userID),
			zap.String("externalID", externalID),
		)
		entry := domain.NewAuditEntry(&actor, domain.AuditCustomerReconciled, domain.EntityExternalCustomer, customer.ID, domain.FundingEvent{
			ExternalID:  externalID,
			Reconciled:  true,
			PreviousUID: previous,
		})
		return s.audit.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *Service) ListFundingSources(ctx context.Context, actor domain.Actor) ([]domain.FundingSource, error) {
	sources, err := s.funding.ListByUser(ctx, actor.UserID)
	if err != nil {
		zap.L().Error("failed to get funding sources", zap.Error(err))
		return nil, err
	}
	return sources, nil
}

// RemoveFundingSource soft-deletes one of the actor's funding sources.
func (s *Service) RemoveFundingSource(ctx context.Context, actor domain.Actor, id int) error {
	return s.txManager.Begin(ctx, func(ctx context.Context) error {
		source, err := s.funding.FindOwned(ctx, id, actor.UserID)
		if err != nil {
			return err
		}
		if source == nil || source.Removed {
			return fmt.Errorf("%w: funding source %d", domain.ErrNotFound, id)
		}
		removed, err := s.funding.MarkRemoved(ctx, id, s.now())
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: funding source %d", domain.ErrNotFound, id)
		}
		entry := domain.NewAuditEntry(&actor, domain.AuditFundingSourceRemoved, domain.EntityFundingSource, id, domain.FundingEvent{
			ExternalID: source.ExternalID,
			AccountRef: source.AccountRef,
		})
		return s.audit.Create(ctx, entry)
	})
}

// duplicateID extracts the id of the resource a duplicate error points at.
func duplicateID(err error) (string, bool) {
	var apiErr *bankgateway.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsDuplicate() {
		return "", false
	}
	return apiErr.ExistingResourceID()
}

func splitName(name, fallback string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return fallback, fallback
	case 1:
		return fields[0], fields[0]
	}
	return fields[0], strings.Join(fields[1:], " ")
}
