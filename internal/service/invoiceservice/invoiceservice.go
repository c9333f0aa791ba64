package invoiceservice

//go:generate mockgen -source=invoiceservice.go -destination=mock_invoiceservice.go -package=invoiceservice

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/pg"
	"github.com/GlebRadaev/wholesale/pkg/validate"
)

const defaultSweepLimit = 500

type InvoiceRepo interface {
	FindByNumber(ctx context.Context, number string) (*domain.Invoice, error)
	FindPastDue(ctx context.Context, now time.Time, limit uint32) ([]domain.Invoice, error)
	TransitionStatus(ctx context.Context, id int, from, to domain.InvoiceStatus, at time.Time) (bool, error)
}

type AuditRepo interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
}

type Service struct {
	invoices  InvoiceRepo
	audit     AuditRepo
	txManager pg.TXManager
	now       func() time.Time
}

func New(invoices InvoiceRepo, audit AuditRepo, txManager pg.TXManager) *Service {
	return &Service{
		invoices:  invoices,
		audit:     audit,
		txManager: txManager,
		now:       time.Now,
	}
}

// GetByNumber returns an invoice the actor may see.
func (s *Service) GetByNumber(ctx context.Context, number string, actor domain.Actor) (*domain.Invoice, error) {
	if !validate.IsInvoiceNumber(number) {
		return nil, fmt.Errorf("%w: invalid invoice number %q", domain.ErrValidation, number)
	}
	invoice, err := s.invoices.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if invoice == nil || !actor.CanView(invoice.UserID) {
		return nil, fmt.Errorf("%w: invoice %s", domain.ErrNotFound, number)
	}
	return invoice, nil
}

// MarkOverdue moves unpaid invoices past their due date to OVERDUE and
// returns how many were moved. Invoices paid meanwhile are skipped.
func (s *Service) MarkOverdue(ctx context.Context, limit uint32) (int, error) {
	if limit == 0 {
		limit = defaultSweepLimit
	}
	now := s.now()
	invoices, err := s.invoices.FindPastDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, invoice := range invoices {
		err := s.txManager.Begin(ctx, func(ctx context.Context) error {
			ok, err := s.invoices.TransitionStatus(ctx, invoice.ID, invoice.Status, domain.InvoiceStatusOverdue, now)
			if err != nil || !ok {
				return err
			}
			entry := domain.NewAuditEntry(nil, domain.AuditInvoiceOverdue, domain.EntityInvoice, invoice.ID, domain.InvoiceTransition{
				InvoiceNumber:  invoice.Number,
				PreviousStatus: invoice.Status,
				NewStatus:      domain.InvoiceStatusOverdue,
			})
			entry.CreatedAt = now
			if err := s.audit.Create(ctx, entry); err != nil {
				return err
			}
			moved++
			return nil
		})
		if err != nil {
			zap.L().Error("can't mark invoice overdue", zap.Int("invoiceID", invoice.ID), zap.Error(err))
			return moved, err
		}
	}
	return moved, nil
}
