package fundingrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/pg"
)

const sourceColumns = `f.id, f.customer_id, f.account_ref, f.external_id, f.name, f.mask,
        f.verified, f.removed, f.created_at, f.updated_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanSource(row pgx.Row, f *domain.FundingSource) error {
	return row.Scan(&f.ID, &f.CustomerID, &f.AccountRef, &f.ExternalID, &f.Name, &f.Mask,
		&f.Verified, &f.Removed, &f.CreatedAt, &f.UpdatedAt)
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*domain.FundingSource, error) {
	var f domain.FundingSource
	err := scanSource(r.db.QueryRow(ctx, query, args...), &f)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find funding source", zap.Error(err))
		return nil, err
	}
	return &f, nil
}

// FindActive returns the non-removed source of a customer for a linked account.
func (r *Repository) FindActive(ctx context.Context, customerID int, accountRef string) (*domain.FundingSource, error) {
	query := `
        SELECT ` + sourceColumns + `
        FROM funding_sources f
        WHERE f.customer_id = $1 AND f.account_ref = $2 AND NOT f.removed
    `
	return r.findOne(ctx, query, customerID, accountRef)
}

// FindOwned returns the source only when it belongs to userID.
func (r *Repository) FindOwned(ctx context.Context, id, userID int) (*domain.FundingSource, error) {
	query := `
        SELECT ` + sourceColumns + `
        FROM funding_sources f
        JOIN external_customers c ON c.id = f.customer_id
        WHERE f.id = $1 AND c.user_id = $2
    `
	return r.findOne(ctx, query, id, userID)
}

func (r *Repository) ListByUser(ctx context.Context, userID int) ([]domain.FundingSource, error) {
	query := `
        SELECT ` + sourceColumns + `
        FROM funding_sources f
        JOIN external_customers c ON c.id = f.customer_id
        WHERE c.user_id = $1 AND NOT f.removed
        ORDER BY f.created_at ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		zap.L().Error("can't get funding sources", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var sources []domain.FundingSource
	for rows.Next() {
		var f domain.FundingSource
		if err := scanSource(rows, &f); err != nil {
			zap.L().Error("can't scan funding source row", zap.Error(err))
			return nil, err
		}
		sources = append(sources, f)
	}
	return sources, rows.Err()
}

// Upsert stores the source keyed on (customer, account) and reports whether
// a new row was inserted. A removed row is revived.
func (r *Repository) Upsert(ctx context.Context, f *domain.FundingSource) (bool, error) {
	query := `
        INSERT INTO funding_sources (customer_id, account_ref, external_id, name, mask, verified)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (customer_id, account_ref) DO UPDATE
        SET external_id = EXCLUDED.external_id, name = EXCLUDED.name, mask = EXCLUDED.mask,
            verified = EXCLUDED.verified, removed = FALSE, updated_at = now()
        RETURNING id, created_at, updated_at, (xmax = 0)
    `
	var inserted bool
	err := r.db.QueryRow(ctx, query, f.CustomerID, f.AccountRef, f.ExternalID, f.Name, f.Mask, f.Verified).
		Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt, &inserted)
	if err != nil {
		zap.L().Error("can't upsert funding source", zap.String("accountRef", f.AccountRef), zap.Error(err))
		return false, err
	}
	f.Removed = false
	return inserted, nil
}

// MarkRemoved soft-deletes the source and reports whether it was active.
func (r *Repository) MarkRemoved(ctx context.Context, id int, at time.Time) (bool, error) {
	query := `
        UPDATE funding_sources
        SET removed = TRUE, updated_at = $1
        WHERE id = $2 AND NOT removed
    `
	tag, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		zap.L().Error("failed to remove funding source", zap.Int("fundingSourceID", id), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
