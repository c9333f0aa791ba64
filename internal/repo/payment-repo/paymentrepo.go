package paymentrepo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/pg"
)

const paymentColumns = "id, invoice_id, amount, method, status, transfer_ref, paid_at, settled_at, created_at"

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanPayments(rows pgx.Rows) ([]domain.Payment, error) {
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Status, &p.TransferRef, &p.PaidAt, &p.SettledAt, &p.CreatedAt)
		if err != nil {
			zap.L().Error("can't scan payment row", zap.Error(err))
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Create appends a payment record. Payments are never updated except by
// settlement.
func (r *Repository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
        INSERT INTO payments (invoice_id, amount, method, status, transfer_ref, paid_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	err := r.db.QueryRow(ctx, query, p.InvoiceID, p.Amount, p.Method, p.Status, p.TransferRef, p.PaidAt, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		zap.L().Error("can't save payment", zap.Int("invoiceID", p.InvoiceID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByInvoiceID(ctx context.Context, invoiceID int) ([]domain.Payment, error) {
	query := `
        SELECT ` + paymentColumns + `
        FROM payments
        WHERE invoice_id = $1
        ORDER BY created_at ASC
    `
	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		zap.L().Error("can't get payments", zap.Error(err))
		return nil, err
	}
	return scanPayments(rows)
}

// FindUnsettled returns completed bank transfers whose settlement has not
// been confirmed yet, oldest first.
func (r *Repository) FindUnsettled(ctx context.Context, limit uint32) ([]domain.Payment, error) {
	query := `
        SELECT ` + paymentColumns + `
        FROM payments
        WHERE status = 'COMPLETED' AND settled_at IS NULL AND transfer_ref <> ''
        ORDER BY created_at ASC
        LIMIT $1
    `
	rows, err := r.db.Query(ctx, query, int(limit))
	if err != nil {
		zap.L().Error("can't get unsettled payments", zap.Error(err))
		return nil, err
	}
	return scanPayments(rows)
}

func (r *Repository) MarkSettled(ctx context.Context, id int, at time.Time) error {
	query := `
        UPDATE payments
        SET settled_at = $1
        WHERE id = $2 AND settled_at IS NULL
    `
	if _, err := r.db.Exec(ctx, query, at, id); err != nil {
		zap.L().Error("failed to mark payment settled", zap.Int("paymentID", id), zap.Error(err))
		return err
	}
	return nil
}

// MarkFailed flips a completed payment to FAILED and stamps when the failure
// was observed. It reports whether the payment was still COMPLETED.
func (r *Repository) MarkFailed(ctx context.Context, id int, at time.Time) (bool, error) {
	query := `
        UPDATE payments
        SET status = $1, settled_at = $2
        WHERE id = $3 AND status = $4
    `
	tag, err := r.db.Exec(ctx, query, domain.PaymentStatusFailed, at, id, domain.PaymentStatusCompleted)
	if err != nil {
		zap.L().Error("failed to mark payment failed", zap.Int("paymentID", id), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
