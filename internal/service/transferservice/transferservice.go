package transferservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/wholesale/internal/clients/bankgateway"
	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/effects"
	"github.com/GlebRadaev/wholesale/internal/notify"
	"github.com/GlebRadaev/wholesale/internal/pg"
)

// idempotencySpace namespaces transfer idempotency keys.
var idempotencySpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:wholesale:transfers"))

var ErrPaymentFailed = errors.New("payment failed, try again")

type Deps struct {
	Invoices  InvoiceRepo
	Payments  PaymentRepo
	Orders    OrderRepo
	Funding   FundingRepo
	Users     UserRepo
	Audit     AuditRepo
	TxManager pg.TXManager
	Gateway   Gateway
	Effects   EffectRunner
	// ReceiverFundingSource is where every transfer is sent.
	ReceiverFundingSource string
}

type Service struct {
	invoices  InvoiceRepo
	payments  PaymentRepo
	orders    OrderRepo
	funding   FundingRepo
	users     UserRepo
	audit     AuditRepo
	txManager pg.TXManager
	gateway   Gateway
	effects   EffectRunner
	receiver  string
	now       func() time.Time
}

func New(deps Deps) *Service {
	return &Service{
		invoices:  deps.Invoices,
		payments:  deps.Payments,
		orders:    deps.Orders,
		funding:   deps.Funding,
		users:     deps.Users,
		audit:     deps.Audit,
		txManager: deps.TxManager,
		gateway:   deps.Gateway,
		effects:   deps.Effects,
		receiver:  deps.ReceiverFundingSource,
		now:       time.Now,
	}
}

type PayInvoiceInput struct {
	InvoiceID       int
	FundingSourceID int
	Amount          decimal.Decimal
}

type PayResult struct {
	TransferID    string
	InvoiceNumber string
	PaymentID     int
}

// IdempotencyKey derives the gateway idempotency key of a payment attempt.
// Retrying the same invoice, source and amount yields the same key.
func IdempotencyKey(invoiceID, fundingSourceID int, amount decimal.Decimal) string {
	name := fmt.Sprintf("%d:%d:%s", invoiceID, fundingSourceID, amount.StringFixed(2))
	return uuid.NewSHA1(idempotencySpace, []byte(name)).String()
}

// PayInvoice moves the invoice total from the payer's funding source to the
// platform. The invoice is only marked paid after the gateway accepted the
// transfer; a rejected transfer leaves the ledger untouched apart from an
// audit entry.
func (s *Service) PayInvoice(ctx context.Context, payer domain.Actor, input PayInvoiceInput) (*PayResult, error) {
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if s.receiver == "" || !s.gateway.Enabled() {
		return nil, fmt.Errorf("%w: bank transfers are not configured", domain.ErrNotConfigured)
	}

	invoice, err := s.invoices.FindByID(ctx, input.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil || invoice.UserID != payer.UserID {
		return nil, fmt.Errorf("%w: invoice %d", domain.ErrNotFound, input.InvoiceID)
	}
	if !invoice.Status.Payable() {
		return nil, fmt.Errorf("%w: invoice %s is %s", domain.ErrConflict, invoice.Number, invoice.Status)
	}
	if !input.Amount.Equal(invoice.TotalAmount) {
		return nil, fmt.Errorf("%w: amount %s does not match invoice total %s",
			domain.ErrValidation, input.Amount.StringFixed(2), invoice.TotalAmount.StringFixed(2))
	}

	source, err := s.funding.FindOwned(ctx, input.FundingSourceID, payer.UserID)
	if err != nil {
		return nil, err
	}
	if source == nil || !source.Usable() {
		return nil, fmt.Errorf("%w: funding source %d", domain.ErrNotFound, input.FundingSourceID)
	}

	transferID, err := s.gateway.CreateTransfer(ctx, bankgateway.TransferRequest{
		SourceID:       source.ExternalID,
		DestinationID:  s.receiver,
		Amount:         input.Amount,
		IdempotencyKey: IdempotencyKey(invoice.ID, source.ID, input.Amount),
	})
	if err != nil {
		s.transferFailed(context.WithoutCancel(ctx), payer, invoice, input.Amount, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrExternalService, ErrPaymentFailed)
	}

	result := &PayResult{TransferID: transferID, InvoiceNumber: invoice.Number}
	// the transfer exists from here on; record it even if the caller gave up
	err = s.txManager.Begin(context.WithoutCancel(ctx), func(ctx context.Context) error {
		paymentID, err := s.recordPayment(ctx, payer, invoice.ID, input.Amount, transferID)
		result.PaymentID = paymentID
		return err
	})
	if err != nil {
		s.transferUnsettled(context.WithoutCancel(ctx), payer, invoice, input.Amount, transferID, err)
		return nil, err
	}

	zap.L().Info("invoice paid",
		zap.String("invoiceNumber", invoice.Number),
		zap.String("transferID", transferID),
	)
	return result, nil
}

func (s *Service) recordPayment(ctx context.Context, payer domain.Actor, invoiceID int, amount decimal.Decimal, transferID string) (int, error) {
	invoice, err := s.invoices.FindByIDForUpdate(ctx, invoiceID)
	if err != nil {
		return 0, err
	}
	if invoice == nil {
		return 0, fmt.Errorf("%w: invoice %d", domain.ErrNotFound, invoiceID)
	}
	if invoice.Status == domain.InvoiceStatusPaid {
		if invoice.TransferRef == transferID {
			// a retried request the gateway collapsed onto the same transfer
			return 0, nil
		}
		return 0, fmt.Errorf("%w: invoice %s was paid by transfer %s", domain.ErrConflict, invoice.Number, invoice.TransferRef)
	}

	now := s.now()
	previous := invoice.Status
	invoice.Status = domain.InvoiceStatusPaid
	invoice.PaidAt = &now
	invoice.PaymentMethod = domain.PaymentMethodBankTransfer
	invoice.TransferRef = transferID
	invoice.UpdatedAt = now
	if err := s.invoices.MarkPaid(ctx, invoice); err != nil {
		return 0, err
	}

	payment := &domain.Payment{
		InvoiceID:   invoice.ID,
		Amount:      amount,
		Method:      domain.PaymentMethodBankTransfer,
		Status:      domain.PaymentStatusCompleted,
		TransferRef: transferID,
		PaidAt:      &now,
		CreatedAt:   now,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return 0, err
	}

	var orderStatus domain.OrderStatus
	if invoice.OrderID != nil {
		moved, err := s.orders.TransitionStatus(ctx, *invoice.OrderID, domain.OrderStatusApproved, domain.OrderStatusPaid, now)
		if err != nil {
			return 0, err
		}
		if moved {
			orderStatus = domain.OrderStatusPaid
		}
	}

	entry := domain.NewAuditEntry(&payer, domain.AuditInvoicePaid, domain.EntityInvoice, invoice.ID, domain.InvoiceTransition{
		InvoiceNumber:  invoice.Number,
		PreviousStatus: previous,
		NewStatus:      domain.InvoiceStatusPaid,
		PaymentID:      payment.ID,
		TransferRef:    transferID,
		Amount:         amount.StringFixed(2),
		OrderStatus:    orderStatus,
	})
	entry.CreatedAt = now
	if err := s.audit.Create(ctx, entry); err != nil {
		return 0, err
	}
	return payment.ID, nil
}

// transferUnsettled keeps a durable record of a transfer the gateway
// accepted but no invoice was settled with, so it can be refunded. A
// conflict means another payment won the invoice first.
func (s *Service) transferUnsettled(ctx context.Context, payer domain.Actor, invoice *domain.Invoice, amount decimal.Decimal, transferID string, cause error) {
	action := domain.AuditTransferUnrecorded
	if errors.Is(cause, domain.ErrConflict) {
		action = domain.AuditDuplicateTransfer
	}
	zap.L().Error("transfer accepted but invoice not settled",
		zap.Int("invoiceID", invoice.ID),
		zap.String("transferID", transferID),
		zap.String("action", string(action)),
		zap.Error(cause),
	)

	now := s.now()
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		payment := &domain.Payment{
			InvoiceID:   invoice.ID,
			Amount:      amount,
			Method:      domain.PaymentMethodBankTransfer,
			Status:      domain.PaymentStatusRefundRequired,
			TransferRef: transferID,
			CreatedAt:   now,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return err
		}

		entry := domain.NewAuditEntry(&payer, action, domain.EntityInvoice, invoice.ID, domain.InvoiceTransition{
			InvoiceNumber:  invoice.Number,
			PreviousStatus: invoice.Status,
			NewStatus:      invoice.Status,
			PaymentID:      payment.ID,
			TransferRef:    transferID,
			Amount:         amount.StringFixed(2),
			Reason:         cause.Error(),
		})
		entry.CreatedAt = now
		return s.audit.Create(ctx, entry)
	})
	if err != nil {
		zap.L().Error("transfer accepted but not recorded",
			zap.Int("invoiceID", invoice.ID),
			zap.String("transferID", transferID),
			zap.Error(err),
		)
	}
}

// transferFailed audits a rejected transfer and tells the payer.
func (s *Service) transferFailed(ctx context.Context, payer domain.Actor, invoice *domain.Invoice, amount decimal.Decimal, cause error) {
	zap.L().Error("transfer rejected",
		zap.Int("invoiceID", invoice.ID),
		zap.String("amount", amount.StringFixed(2)),
		zap.Error(cause),
	)

	entry := domain.NewAuditEntry(&payer, domain.AuditPaymentFailed, domain.EntityInvoice, invoice.ID, domain.InvoiceTransition{
		InvoiceNumber:  invoice.Number,
		PreviousStatus: invoice.Status,
		NewStatus:      invoice.Status,
		Amount:         amount.StringFixed(2),
		Reason:         cause.Error(),
	})
	if err := s.audit.Create(ctx, entry); err != nil {
		zap.L().Error("can't audit failed payment", zap.Int("invoiceID", invoice.ID), zap.Error(err))
	}

	user, err := s.users.FindByID(ctx, invoice.UserID)
	if err != nil || user == nil || user.Email == "" {
		return
	}
	outcomes := s.effects.Run(ctx, []effects.Effect{{
		EntityType: domain.EntityInvoice,
		EntityID:   invoice.ID,
		Event: notify.PaymentFailed{
			To:            user.Email,
			CustomerName:  user.Name,
			InvoiceNumber: invoice.Number,
			Amount:        amount,
			Reason:        "the bank transfer could not be initiated",
		},
	}})
	for _, outcome := range outcomes {
		if outcome.Delivered() {
			continue
		}
		failed := domain.NewAuditEntry(&payer, domain.AuditPaymentNotificationFailed, domain.EntityInvoice, invoice.ID, outcome.Describe())
		if err := s.audit.Create(ctx, failed); err != nil {
			zap.L().Error("can't audit notification failure", zap.Int("invoiceID", invoice.ID), zap.Error(err))
		}
	}
}
