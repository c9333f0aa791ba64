package repo

import (
	"github.com/GlebRadaev/wholesale/internal/pg"
	auditrepo "github.com/GlebRadaev/wholesale/internal/repo/audit-repo"
	customerrepo "github.com/GlebRadaev/wholesale/internal/repo/customer-repo"
	fundingrepo "github.com/GlebRadaev/wholesale/internal/repo/funding-repo"
	invoicerepo "github.com/GlebRadaev/wholesale/internal/repo/invoice-repo"
	orderrepo "github.com/GlebRadaev/wholesale/internal/repo/order-repo"
	paymentrepo "github.com/GlebRadaev/wholesale/internal/repo/payment-repo"
	userrepo "github.com/GlebRadaev/wholesale/internal/repo/user-repo"
)

type Repositories struct {
	UserRepo     *userrepo.Repository
	OrderRepo    *orderrepo.Repository
	InvoiceRepo  *invoicerepo.Repository
	PaymentRepo  *paymentrepo.Repository
	CustomerRepo *customerrepo.Repository
	FundingRepo  *fundingrepo.Repository
	AuditRepo    *auditrepo.Repository
	TxManager    pg.TXManager
}

func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	return &Repositories{
		UserRepo:     userrepo.New(conn),
		OrderRepo:    orderrepo.New(conn),
		InvoiceRepo:  invoicerepo.New(conn),
		PaymentRepo:  paymentrepo.New(conn),
		CustomerRepo: customerrepo.New(conn),
		FundingRepo:  fundingrepo.New(conn),
		AuditRepo:    auditrepo.New(conn),
		TxManager:    txManager,
	}
}
