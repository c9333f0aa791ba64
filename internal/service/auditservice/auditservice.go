package auditservice

//go:generate mockgen -source=auditservice.go -destination=mock_auditservice.go -package=auditservice

import (
	"context"
	"fmt"

	"github.com/GlebRadaev/wholesale/internal/domain"
)

type Repo interface {
	ListByEntity(ctx context.Context, entityType domain.EntityType, entityID int) ([]domain.AuditLogEntry, error)
}

type Service struct {
	repo Repo
}

func New(repo Repo) *Service {
	return &Service{repo: repo}
}

// ListByEntity returns the audit trail of one entity, oldest first. Only
// staff may read it.
func (s *Service) ListByEntity(ctx context.Context, actor domain.Actor, entityType string, entityID int) ([]domain.AuditLogEntry, error) {
	if !actor.Role.Privileged() {
		return nil, fmt.Errorf("%w: audit log is staff only", domain.ErrForbidden)
	}
	kind, ok := domain.ParseEntityType(entityType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity type %q", domain.ErrValidation, entityType)
	}
	return s.repo.ListByEntity(ctx, kind, entityID)
}
