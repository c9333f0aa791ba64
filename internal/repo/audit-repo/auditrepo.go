package auditrepo

import (
	"context"

	"go.uber.org/zap"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/pg"
)

// Repository appends to and reads the audit log. Rows are never updated; the
// table rejects UPDATE and DELETE.
type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	query := `
        INSERT INTO audit_log (actor_id, actor_role, action, entity_type, entity_id, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	err := r.db.QueryRow(ctx, query, entry.ActorID, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Metadata, entry.CreatedAt).
		Scan(&entry.ID)
	if err != nil {
		zap.L().Error("can't write audit entry",
			zap.String("action", string(entry.Action)),
			zap.String("entityType", string(entry.EntityType)),
			zap.Int("entityID", entry.EntityID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *Repository) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID int) ([]domain.AuditLogEntry, error) {
	query := `
        SELECT id, actor_id, actor_role, action, entity_type, entity_id, metadata, created_at
        FROM audit_log
        WHERE entity_type = $1 AND entity_id = $2
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.db.Query(ctx, query, entityType, entityID)
	if err != nil {
		zap.L().Error("can't get audit entries", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditLogEntry
	for rows.Next() {
		var e domain.AuditLogEntry
		err := rows.Scan(&e.ID, &e.ActorID, &e.ActorRole, &e.Action, &e.EntityType, &e.EntityID, &e.Metadata, &e.CreatedAt)
		if err != nil {
			zap.L().Error("can't scan audit row", zap.Error(err))
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
