package service

import (
	"fmt"

	"github.com/GlebRadaev/wholesale/internal/clients/bankgateway"
	"github.com/GlebRadaev/wholesale/internal/clients/linking"
	"github.com/GlebRadaev/wholesale/internal/config"
	"github.com/GlebRadaev/wholesale/internal/effects"
	"github.com/GlebRadaev/wholesale/internal/handlers/audit"
	"github.com/GlebRadaev/wholesale/internal/handlers/auth"
	"github.com/GlebRadaev/wholesale/internal/handlers/invoices"
	"github.com/GlebRadaev/wholesale/internal/handlers/orders"
	"github.com/GlebRadaev/wholesale/internal/handlers/payments"
	"github.com/GlebRadaev/wholesale/internal/notify"
	"github.com/GlebRadaev/wholesale/internal/repo"
	"github.com/GlebRadaev/wholesale/internal/service/auditservice"
	"github.com/GlebRadaev/wholesale/internal/service/authservice"
	"github.com/GlebRadaev/wholesale/internal/service/fundingservice"
	"github.com/GlebRadaev/wholesale/internal/service/invoiceservice"
	"github.com/GlebRadaev/wholesale/internal/service/orderservice"
	"github.com/GlebRadaev/wholesale/internal/service/transferservice"
	"github.com/GlebRadaev/wholesale/internal/settlement"
	pkgauth "github.com/GlebRadaev/wholesale/pkg/auth"
	"github.com/GlebRadaev/wholesale/pkg/clients"
	"github.com/GlebRadaev/wholesale/pkg/numbering"
)

type Services struct {
	AuthService     auth.Service
	OrderService    orders.Service
	InvoiceService  invoices.Service
	FundingService  payments.FundingService
	TransferService payments.TransferService
	AuditService    audit.Service
	JWTService      pkgauth.JWTServiceInterface

	Reconciler *settlement.Reconciler
}

// New wires the services over repos. Each external client gets its own HTTP
// client so timeouts follow its configuration.
func New(cfg *config.Config, repo *repo.Repositories) (*Services, error) {
	numbers, err := numbering.New(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("can't build invoice numbering: %w", err)
	}

	gateway := bankgateway.New(cfg.Gateway, clients.NewHTTPClient(cfg.Gateway.Timeout))
	linker := linking.New(cfg.Linking, clients.NewHTTPClient(cfg.Linking.Timeout))
	runner := effects.NewRunner(
		notify.New(cfg.Mailer, clients.NewHTTPClient(cfg.Mailer.Timeout)),
		cfg.Mailer.Timeout,
	)
	jwtService := pkgauth.NewJWTService(cfg.JWTSecret)

	return &Services{
		AuthService: authservice.New(repo.UserRepo, pkgauth.NewHashService(cfg.BcryptCost), jwtService),
		OrderService: orderservice.New(orderservice.Deps{
			Orders:    repo.OrderRepo,
			Invoices:  repo.InvoiceRepo,
			Payments:  repo.PaymentRepo,
			Users:     repo.UserRepo,
			Audit:     repo.AuditRepo,
			TxManager: repo.TxManager,
			Numbers:   numbers,
			Effects:   runner,
		}),
		InvoiceService: invoiceservice.New(repo.InvoiceRepo, repo.AuditRepo, repo.TxManager),
		FundingService: fundingservice.New(fundingservice.Deps{
			Customers: repo.CustomerRepo,
			Funding:   repo.FundingRepo,
			Users:     repo.UserRepo,
			Audit:     repo.AuditRepo,
			TxManager: repo.TxManager,
			Gateway:   gateway,
			Linker:    linker,
		}, fundingservice.Options{
			ReceiverName:  cfg.Gateway.ReceiverName,
			ReceiverEmail: cfg.Gateway.ReceiverEmail,
		}),
		TransferService: transferservice.New(transferservice.Deps{
			Invoices:              repo.InvoiceRepo,
			Payments:              repo.PaymentRepo,
			Orders:                repo.OrderRepo,
			Funding:               repo.FundingRepo,
			Users:                 repo.UserRepo,
			Audit:                 repo.AuditRepo,
			TxManager:             repo.TxManager,
			Gateway:               gateway,
			Effects:               runner,
			ReceiverFundingSource: cfg.Gateway.ReceiverFundingSource,
		}),
		AuditService: auditservice.New(repo.AuditRepo),
		JWTService:   jwtService,
		Reconciler: settlement.New(cfg.Settlement, settlement.Deps{
			Payments:  repo.PaymentRepo,
			Invoices:  repo.InvoiceRepo,
			Orders:    repo.OrderRepo,
			Users:     repo.UserRepo,
			Audit:     repo.AuditRepo,
			TxManager: repo.TxManager,
			Gateway:   gateway,
			Effects:   runner,
		}),
	}, nil
}
