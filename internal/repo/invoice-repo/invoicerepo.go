package invoicerepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/pg"
)

const invoiceColumns = `id, user_id, order_id, invoice_number, total_amount, due_date, status,
        paid_at, payment_method, transfer_ref, created_at, updated_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanInvoice(row pgx.Row, inv *domain.Invoice) error {
	return row.Scan(&inv.ID, &inv.UserID, &inv.OrderID, &inv.Number, &inv.TotalAmount, &inv.DueDate,
		&inv.Status, &inv.PaidAt, &inv.PaymentMethod, &inv.TransferRef, &inv.CreatedAt, &inv.UpdatedAt)
}

func (r *Repository) findOne(ctx context.Context, where string, arg any) (*domain.Invoice, error) {
	query := "SELECT " + invoiceColumns + " FROM invoices WHERE " + where
	var inv domain.Invoice
	err := scanInvoice(r.db.QueryRow(ctx, query, arg), &inv)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find invoice", zap.Error(err))
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.Invoice, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindByIDForUpdate locks the invoice row until the surrounding transaction ends.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id int) (*domain.Invoice, error) {
	return r.findOne(ctx, "id = $1 FOR UPDATE", id)
}

func (r *Repository) FindByOrderID(ctx context.Context, orderID int) (*domain.Invoice, error) {
	return r.findOne(ctx, "order_id = $1", orderID)
}

func (r *Repository) FindByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	return r.findOne(ctx, "invoice_number = $1", number)
}

// Create inserts the invoice. A second invoice for the same order or a
// reused number is reported as domain.ErrConflict.
func (r *Repository) Create(ctx context.Context, inv *domain.Invoice) error {
	query := `
        INSERT INTO invoices (user_id, order_id, invoice_number, total_amount, due_date, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
        RETURNING id
    `
	err := r.db.QueryRow(ctx, query, inv.UserID, inv.OrderID, inv.Number, inv.TotalAmount, inv.DueDate, inv.Status, inv.CreatedAt).
		Scan(&inv.ID)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return fmt.Errorf("%w: invoice already exists for order or number %s", domain.ErrConflict, inv.Number)
		}
		zap.L().Error("can't save invoice", zap.Error(err))
		return err
	}
	inv.UpdatedAt = inv.CreatedAt
	return nil
}

// TransitionStatus moves the invoice to status "to" only while it is in
// status "from" and reports whether a row changed.
func (r *Repository) TransitionStatus(ctx context.Context, id int, from, to domain.InvoiceStatus, at time.Time) (bool, error) {
	query := `
        UPDATE invoices
        SET status = $1, updated_at = $2
        WHERE id = $3 AND status = $4
    `
	tag, err := r.db.Exec(ctx, query, to, at, id, from)
	if err != nil {
		zap.L().Error("failed to transition invoice", zap.Int("invoiceID", id), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) MarkPaid(ctx context.Context, inv *domain.Invoice) error {
	query := `
        UPDATE invoices
        SET status = $1, paid_at = $2, payment_method = $3, transfer_ref = $4, updated_at = $5
        WHERE id = $6
    `
	_, err := r.db.Exec(ctx, query, domain.InvoiceStatusPaid, inv.PaidAt, inv.PaymentMethod, inv.TransferRef, inv.UpdatedAt, inv.ID)
	if err != nil {
		zap.L().Error("failed to mark invoice paid", zap.Int("invoiceID", inv.ID), zap.Error(err))
		return err
	}
	return nil
}

// Reopen returns a paid invoice to PENDING and clears its payment fields.
func (r *Repository) Reopen(ctx context.Context, id int, at time.Time) (bool, error) {
	query := `
        UPDATE invoices
        SET status = $1, paid_at = NULL, payment_method = '', transfer_ref = '', updated_at = $2
        WHERE id = $3 AND status = $4
    `
	tag, err := r.db.Exec(ctx, query, domain.InvoiceStatusPending, at, id, domain.InvoiceStatusPaid)
	if err != nil {
		zap.L().Error("failed to reopen invoice", zap.Int("invoiceID", id), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindPastDue returns unpaid invoices whose due date is before now.
func (r *Repository) FindPastDue(ctx context.Context, now time.Time, limit uint32) ([]domain.Invoice, error) {
	query := `
        SELECT ` + invoiceColumns + `
        FROM invoices
        WHERE status IN ('DRAFT', 'PENDING') AND due_date < $1
        ORDER BY due_date ASC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, now, int(limit))
	if err != nil {
		zap.L().Error("can't get past due invoices", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := scanInvoice(rows, &inv); err != nil {
			zap.L().Error("can't scan invoice row", zap.Error(err))
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
