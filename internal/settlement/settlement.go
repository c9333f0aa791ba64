// Package settlement polls the bank gateway for the final state of accepted
// transfers. Invoices are marked paid as soon as a transfer is accepted; this
// reconciler stamps payments as settled, or reverses them when the bank later
// rejects the transfer.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/wholesale/internal/clients/bankgateway"
	"github.com/GlebRadaev/wholesale/internal/config"
	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/effects"
	"github.com/GlebRadaev/wholesale/internal/metrics"
	"github.com/GlebRadaev/wholesale/internal/notify"
	"github.com/GlebRadaev/wholesale/internal/pg"
)

const (
	StatePending  = "pending"
	StateSettled  = "settled"
	StateReversed = "reversed"
	StateError    = "error"
)

type Deps struct {
	Payments  PaymentRepo
	Invoices  InvoiceRepo
	Orders    OrderRepo
	Users     UserRepo
	Audit     AuditRepo
	TxManager pg.TXManager
	Gateway   Gateway
	Effects   EffectRunner
}

type Reconciler struct {
	payments   PaymentRepo
	invoices   InvoiceRepo
	orders     OrderRepo
	users      UserRepo
	audit      AuditRepo
	txManager  pg.TXManager
	gateway    Gateway
	effects    EffectRunner
	workerPool WorkerPoolI
	limit      uint32
	interval   time.Duration
	inFlight   sync.Map
	loop       sync.WaitGroup
	now        func() time.Time
}

func New(cfg config.SettlementConfig, deps Deps) *Reconciler {
	return &Reconciler{
		payments:   deps.Payments,
		invoices:   deps.Invoices,
		orders:     deps.Orders,
		users:      deps.Users,
		audit:      deps.Audit,
		txManager:  deps.TxManager,
		gateway:    deps.Gateway,
		effects:    deps.Effects,
		workerPool: NewWorkerPool(cfg.Workers),
		limit:      cfg.BatchSize,
		interval:   cfg.Interval,
		now:        time.Now,
	}
}

// Start polls every interval until ctx is done. It does nothing when the
// interval is zero or the gateway is not configured.
func (r *Reconciler) Start(ctx context.Context) {
	if r.interval <= 0 || !r.gateway.Enabled() {
		zap.L().Info("settlement reconciler disabled")
		return
	}
	zap.L().Info("settlement reconciler started", zap.Duration("interval", r.interval))
	r.loop.Add(1)
	go func() {
		defer r.loop.Done()
		r.run(ctx)
	}()
}

func (r *Reconciler) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("settlement reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zap.L().Error("settlement pass failed", zap.Error(err))
			}
		}
	}
}

// Close waits for the polling loop to exit and releases the worker pool. The
// context given to Start must be cancelled first.
func (r *Reconciler) Close() {
	r.loop.Wait()
	r.workerPool.Close()
}

// RunOnce checks one batch of unsettled payments and waits for the checks to
// finish. It returns the number of payments submitted.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	payments, err := r.payments.FindUnsettled(ctx, r.limit)
	if err != nil {
		return 0, fmt.Errorf("can't fetch unsettled payments: %w", err)
	}

	var wg sync.WaitGroup
	submitted := 0
	for _, payment := range payments {
		if _, loaded := r.inFlight.LoadOrStore(payment.ID, struct{}{}); loaded {
			continue
		}
		wg.Add(1)
		err := r.workerPool.AddTask(ctx, func() error {
			defer wg.Done()
			defer r.inFlight.Delete(payment.ID)
			return r.check(ctx, payment)
		})
		if err != nil {
			wg.Done()
			r.inFlight.Delete(payment.ID)
			wg.Wait()
			return submitted, err
		}
		submitted++
	}
	wg.Wait()
	return submitted, nil
}

func (r *Reconciler) check(ctx context.Context, payment domain.Payment) error {
	transfer, err := r.gateway.GetTransfer(ctx, payment.TransferRef)
	if err != nil {
		metrics.ObserveSettlement(StateError)
		return fmt.Errorf("can't get transfer %s of payment %d: %w", payment.TransferRef, payment.ID, err)
	}

	switch transfer.Status {
	case bankgateway.TransferProcessed:
		if err := r.payments.MarkSettled(ctx, payment.ID, r.now()); err != nil {
			return err
		}
		metrics.ObserveSettlement(StateSettled)
		zap.L().Info("payment settled", zap.Int("paymentID", payment.ID), zap.String("transferID", transfer.ID))
	case bankgateway.TransferFailed, bankgateway.TransferCancelled:
		if err := r.reverse(ctx, payment, transfer.Status); err != nil {
			return err
		}
		metrics.ObserveSettlement(StateReversed)
	default:
		metrics.ObserveSettlement(StatePending)
	}
	return nil
}

// reverse fails the payment and reopens its invoice in one transaction, then
// tells the buyer.
func (r *Reconciler) reverse(ctx context.Context, payment domain.Payment, transferStatus string) error {
	now := r.now()
	var invoice *domain.Invoice

	err := r.txManager.Begin(ctx, func(ctx context.Context) error {
		failed, err := r.payments.MarkFailed(ctx, payment.ID, now)
		if err != nil || !failed {
			return err
		}
		if invoice, err = r.invoices.FindByID(ctx, payment.InvoiceID); err != nil {
			return err
		}
		if invoice == nil {
			return fmt.Errorf("%w: invoice %d of payment %d", domain.ErrNotFound, payment.InvoiceID, payment.ID)
		}
		if _, err := r.invoices.Reopen(ctx, invoice.ID, now); err != nil {
			return err
		}

		var orderStatus domain.OrderStatus
		if invoice.OrderID != nil {
			reverted, err := r.orders.TransitionStatus(ctx, *invoice.OrderID, domain.OrderStatusPaid, domain.OrderStatusApproved, now)
			if err != nil {
				return err
			}
			if reverted {
				orderStatus = domain.OrderStatusApproved
			}
		}

		entry := domain.NewAuditEntry(nil, domain.AuditPaymentReversed, domain.EntityInvoice, invoice.ID, domain.InvoiceTransition{
			InvoiceNumber:  invoice.Number,
			PreviousStatus: invoice.Status,
			NewStatus:      domain.InvoiceStatusPending,
			PaymentID:      payment.ID,
			TransferRef:    payment.TransferRef,
			Amount:         payment.Amount.StringFixed(2),
			OrderStatus:    orderStatus,
			Reason:         "transfer " + transferStatus,
		})
		entry.CreatedAt = now
		return r.audit.Create(ctx, entry)
	})
	if err != nil {
		return fmt.Errorf("can't reverse payment %d: %w", payment.ID, err)
	}
	if invoice == nil {
		// another pass already reversed it
		return nil
	}

	zap.L().Warn("payment reversed",
		zap.Int("paymentID", payment.ID),
		zap.String("invoiceNumber", invoice.Number),
		zap.String("transferStatus", transferStatus),
	)
	r.notify(ctx, payment, invoice, transferStatus)
	return nil
}

func (r *Reconciler) notify(ctx context.Context, payment domain.Payment, invoice *domain.Invoice, transferStatus string) {
	user, err := r.users.FindByID(ctx, invoice.UserID)
	if err != nil || user == nil || user.Email == "" {
		return
	}
	outcomes := r.effects.Run(ctx, []effects.Effect{{
		EntityType: domain.EntityInvoice,
		EntityID:   invoice.ID,
		Event: notify.PaymentFailed{
			To:            user.Email,
			CustomerName:  user.Name,
			InvoiceNumber: invoice.Number,
			Amount:        payment.Amount,
			Reason:        "the bank reported the transfer as " + transferStatus,
		},
	}})
	for _, outcome := range outcomes {
		if outcome.Delivered() {
			continue
		}
		entry := domain.NewAuditEntry(nil, domain.AuditPaymentNotificationFailed, domain.EntityInvoice, invoice.ID, outcome.Describe())
		if err := r.audit.Create(context.WithoutCancel(ctx), entry); err != nil {
			zap.L().Error("can't audit notification failure", zap.Int("invoiceID", invoice.ID), zap.Error(err))
		}
	}
}
