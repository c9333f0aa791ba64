package customerrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/pg"
)

const customerColumns = "id, kind, user_id, external_id, email, status, created_at, updated_at"

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) findOne(ctx context.Context, where string, args ...any) (*domain.ExternalCustomer, error) {
	var c domain.ExternalCustomer
	err := r.db.QueryRow(ctx, "SELECT "+customerColumns+" FROM external_customers WHERE "+where, args...).
		Scan(&c.ID, &c.Kind, &c.UserID, &c.ExternalID, &c.Email, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find external customer", zap.Error(err))
		return nil, err
	}
	return &c, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID int) (*domain.ExternalCustomer, error) {
	return r.findOne(ctx, "user_id = $1 AND kind = $2", userID, domain.CustomerKindCustomer)
}

func (r *Repository) FindByExternalID(ctx context.Context, externalID string) (*domain.ExternalCustomer, error) {
	return r.findOne(ctx, "external_id = $1", externalID)
}

// FindReceiver returns the platform identity transfers are sent to.
func (r *Repository) FindReceiver(ctx context.Context) (*domain.ExternalCustomer, error) {
	return r.findOne(ctx, "kind = $1", domain.CustomerKindReceiver)
}

// Upsert stores the customer keyed on its external id. An existing row is
// re-pointed at c.UserID.
func (r *Repository) Upsert(ctx context.Context, c *domain.ExternalCustomer) error {
	query := `
        INSERT INTO external_customers (kind, user_id, external_id, email, status)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (external_id) DO UPDATE
        SET user_id = EXCLUDED.user_id, email = EXCLUDED.email, status = EXCLUDED.status, updated_at = now()
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query, c.Kind, c.UserID, c.ExternalID, c.Email, c.Status).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return fmt.Errorf("%w: external customer %s", domain.ErrConflict, c.ExternalID)
		}
		zap.L().Error("can't upsert external customer", zap.String("externalID", c.ExternalID), zap.Error(err))
		return err
	}
	return nil
}
