package orderservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/effects"
	"github.com/GlebRadaev/wholesale/internal/notify"
	"github.com/GlebRadaev/wholesale/internal/pg"
)

var ErrNothingToUpdate = errors.New("status or notes must be provided")

type Deps struct {
	Orders    OrderRepo
	Invoices  InvoiceRepo
	Payments  PaymentRepo
	Users     UserRepo
	Audit     AuditRepo
	TxManager pg.TXManager
	Numbers   NumberGenerator
	Effects   EffectRunner
}

// Service owns order state transitions and the one-time invoice that an
// order's first approval produces.
type Service struct {
	orders    OrderRepo
	invoices  InvoiceRepo
	payments  PaymentRepo
	users     UserRepo
	audit     AuditRepo
	txManager pg.TXManager
	numbers   NumberGenerator
	effects   EffectRunner
	now       func() time.Time
}

func New(deps Deps) *Service {
	return &Service{
		orders:    deps.Orders,
		invoices:  deps.Invoices,
		payments:  deps.Payments,
		users:     deps.Users,
		audit:     deps.Audit,
		txManager: deps.TxManager,
		numbers:   deps.Numbers,
		effects:   deps.Effects,
		now:       time.Now,
	}
}

type UpdateOrderInput struct {
	Status *string
	Notes  *string
}

type UpdateResult struct {
	Order            *domain.Order
	Total            decimal.Decimal
	Invoice          *domain.Invoice
	NotificationSent bool
	InvoiceCreated   bool
	InvoiceNumber    string
}

// OrderDetails is an order with everything hanging off it.
type OrderDetails struct {
	Order    *domain.Order
	Total    decimal.Decimal
	Items    []domain.OrderItem
	User     *domain.User
	Invoice  *domain.Invoice
	Payments []domain.Payment
}

// UpdateOrder applies a status and/or notes change made by a privileged actor.
//
// The order row is locked for the whole transaction, and invoice existence is
// re-read under that lock, so concurrent approvals of one order produce one
// invoice. Notifications run after commit; their failures are audited and
// never fail the update.
func (s *Service) UpdateOrder(ctx context.Context, orderID int, input UpdateOrderInput, actor domain.Actor) (*UpdateResult, error) {
	if !actor.Role.Privileged() {
		return nil, fmt.Errorf("%w: role %q cannot update orders", domain.ErrForbidden, actor.Role)
	}
	if input.Status == nil && input.Notes == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, ErrNothingToUpdate)
	}

	var requested *domain.OrderStatus
	if input.Status != nil {
		status, err := domain.ParseOrderStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		requested = &status
	}

	result := &UpdateResult{}
	var planned []effects.Effect

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: order %d", domain.ErrNotFound, orderID)
		}
		items, err := s.orders.FindItems(ctx, order.ID)
		if err != nil {
			return err
		}
		user, err := s.users.FindByID(ctx, order.UserID)
		if err != nil {
			return err
		}
		invoice, err := s.invoices.FindByOrderID(ctx, order.ID)
		if err != nil {
			return err
		}

		result.Order = order
		result.Total = domain.ResolveOrderTotal(order, items)
		result.Invoice = invoice

		previous := order.Status
		statusChanged := requested != nil && *requested != order.Status
		notesChanged := input.Notes != nil && *input.Notes != order.Notes
		if !statusChanged && !notesChanged {
			return nil
		}

		now := s.now()
		if statusChanged && *requested == domain.OrderStatusApproved && invoice == nil {
			invoice, err = s.createInvoice(ctx, order, items, now)
			if err != nil {
				return err
			}
			result.Invoice = invoice
			result.InvoiceCreated = true
			result.InvoiceNumber = invoice.Number
		}

		if statusChanged {
			order.Status = *requested
		}
		if notesChanged {
			order.Notes = *input.Notes
		}
		actorID := actor.UserID
		order.LastActorID = &actorID
		order.LastActorRole = actor.Role
		order.UpdatedAt = now
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}

		planned = planEffects(order, previous, statusChanged, user, invoice, result.InvoiceCreated)

		action := domain.AuditOrderUpdated
		switch {
		case statusChanged && order.Status == domain.OrderStatusApproved:
			action = domain.AuditOrderApproved
		case statusChanged:
			action = domain.AuditOrderStatusChanged
		}
		entry := domain.NewAuditEntry(&actor, action, domain.EntityOrder, order.ID, domain.OrderTransition{
			PreviousStatus:      previous,
			NewStatus:           order.Status,
			NotesChanged:        notesChanged,
			InvoiceCreated:      result.InvoiceCreated,
			InvoiceNumber:       result.InvoiceNumber,
			NotificationPlanned: len(planned) > 0,
		})
		entry.CreatedAt = now
		return s.audit.Create(ctx, entry)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			zap.L().Error("can't update order", zap.Int("orderID", orderID), zap.Error(err))
		}
		return nil, err
	}

	if result.InvoiceCreated {
		zap.L().Info("invoice created",
			zap.Int("orderID", result.Order.ID),
			zap.String("invoiceNumber", result.InvoiceNumber),
		)
	}

	if len(planned) > 0 {
		outcomes := s.effects.Run(ctx, planned)
		s.recordOutcomes(context.WithoutCancel(ctx), actor, result, outcomes)
	}
	return result, nil
}

func (s *Service) createInvoice(ctx context.Context, order *domain.Order, items []domain.OrderItem, now time.Time) (*domain.Invoice, error) {
	total := domain.ResolveOrderTotal(order, items)
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: order %d has no billable amount", domain.ErrValidation, order.ID)
	}
	orderID := order.ID
	invoice := &domain.Invoice{
		UserID:      order.UserID,
		OrderID:     &orderID,
		Number:      s.numbers.Next(),
		TotalAmount: total,
		DueDate:     domain.DueDateFor(now),
		Status:      domain.InvoiceStatusDraft,
		CreatedAt:   now,
	}
	if err := s.invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func planEffects(order *domain.Order, previous domain.OrderStatus, statusChanged bool, user *domain.User, invoice *domain.Invoice, invoiceCreated bool) []effects.Effect {
	if user == nil || user.Email == "" {
		return nil
	}
	var planned []effects.Effect
	if statusChanged {
		planned = append(planned, effects.Effect{
			EntityType: domain.EntityOrder,
			EntityID:   order.ID,
			Event: notify.OrderStatusChanged{
				To:             user.Email,
				CustomerName:   user.Name,
				OrderID:        order.ID,
				PreviousStatus: previous,
				NewStatus:      order.Status,
				Notes:          order.Notes,
			},
		})
	}
	if invoiceCreated {
		planned = append(planned, effects.Effect{
			EntityType: domain.EntityInvoice,
			EntityID:   invoice.ID,
			Event: notify.InvoiceCreated{
				To:            user.Email,
				CustomerName:  user.Name,
				OrderID:       order.ID,
				InvoiceNumber: invoice.Number,
				Total:         invoice.TotalAmount,
				DueDate:       invoice.DueDate,
			},
		})
	}
	return planned
}

// recordOutcomes audits every notice outcome and promotes a delivered
// invoice from DRAFT to PENDING.
func (s *Service) recordOutcomes(ctx context.Context, actor domain.Actor, result *UpdateResult, outcomes []effects.Outcome) {
	for _, outcome := range outcomes {
		switch outcome.Effect.Event.(type) {
		case notify.OrderStatusChanged:
			result.NotificationSent = outcome.Delivered()
			action := domain.AuditOrderNotificationFailed
			if outcome.Delivered() {
				action = domain.AuditOrderNotificationSent
			}
			s.writeAudit(ctx, domain.NewAuditEntry(&actor, action, domain.EntityOrder, outcome.Effect.EntityID, outcome.Describe()))
		case notify.InvoiceCreated:
			if outcome.Delivered() {
				s.markInvoiceSent(ctx, actor, result.Invoice, outcome)
				continue
			}
			entry := domain.NewAuditEntry(&actor, domain.AuditInvoiceDeliveryFailed, domain.EntityInvoice, outcome.Effect.EntityID, outcome.Describe())
			s.writeAudit(ctx, entry)
		}
	}
}

func (s *Service) markInvoiceSent(ctx context.Context, actor domain.Actor, invoice *domain.Invoice, outcome effects.Outcome) {
	now := s.now()
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		changed, err := s.invoices.TransitionStatus(ctx, invoice.ID, domain.InvoiceStatusDraft, domain.InvoiceStatusPending, now)
		if err != nil || !changed {
			return err
		}
		entry := domain.NewAuditEntry(&actor, domain.AuditInvoiceSent, domain.EntityInvoice, invoice.ID, outcome.Describe())
		if err := s.audit.Create(ctx, entry); err != nil {
			return err
		}
		invoice.Status = domain.InvoiceStatusPending
		invoice.UpdatedAt = now
		return nil
	})
	if err != nil {
		zap.L().Error("can't mark invoice sent", zap.Int("invoiceID", invoice.ID), zap.Error(err))
	}
}

func (s *Service) writeAudit(ctx context.Context, entry *domain.AuditLogEntry) {
	if err := s.audit.Create(ctx, entry); err != nil {
		zap.L().Error("can't record notification outcome",
			zap.String("action", string(entry.Action)),
			zap.Int("entityID", entry.EntityID),
			zap.Error(err),
		)
	}
}

// GetOrder returns the order with its items, owner, invoice and payments.
// Orders the actor may not see are reported as missing.
func (s *Service) GetOrder(ctx context.Context, orderID int, actor domain.Actor) (*OrderDetails, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || !actor.CanView(order.UserID) {
		return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, orderID)
	}

	details := &OrderDetails{Order: order}
	if details.Items, err = s.orders.FindItems(ctx, order.ID); err != nil {
		return nil, err
	}
	if details.User, err = s.users.FindByID(ctx, order.UserID); err != nil {
		return nil, err
	}
	if details.Invoice, err = s.invoices.FindByOrderID(ctx, order.ID); err != nil {
		return nil, err
	}
	if details.Invoice != nil {
		if details.Payments, err = s.payments.FindByInvoiceID(ctx, details.Invoice.ID); err != nil {
			return nil, err
		}
	}
	details.Total = domain.ResolveOrderTotal(order, details.Items)
	return details, nil
}

// OrderSummary is a listed order with its resolved total.
type OrderSummary struct {
	Order domain.Order
	Total decimal.Decimal
}

// ListOrders returns the actor's orders. Items are loaded, in one query, only
// for orders without a stored total.
func (s *Service) ListOrders(ctx context.Context, actor domain.Actor) ([]OrderSummary, error) {
	orders, err := s.orders.FindByUserID(ctx, actor.UserID)
	if err != nil {
		zap.L().Error("failed to get orders", zap.Error(err))
		return nil, err
	}

	var missing []int
	for _, order := range orders {
		if order.TotalAmount.IsZero() {
			missing = append(missing, order.ID)
		}
	}
	itemsByOrder := make(map[int][]domain.OrderItem, len(missing))
	if len(missing) > 0 {
		items, err := s.orders.FindItemsByOrderIDs(ctx, missing)
		if err != nil {
			zap.L().Error("failed to get order items", zap.Error(err))
			return nil, err
		}
		for _, item := range items {
			itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
		}
	}

	summaries := make([]OrderSummary, 0, len(orders))
	for i := range orders {
		summaries = append(summaries, OrderSummary{
			Order: orders[i],
			Total: domain.ResolveOrderTotal(&orders[i], itemsByOrder[orders[i].ID]),
		})
	}
	return summaries, nil
}
