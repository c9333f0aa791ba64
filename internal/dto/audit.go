package dto

import (
	"encoding/json"

	"github.com/GlebRadaev/wholesale/internal/domain"
)

type AuditEntryDTO struct {
	ID         int64           `json:"id"`
	ActorID    *int            `json:"actorId"`
	ActorRole  string          `json:"actorRole,omitempty" example:"STAFF"`
	Action     string          `json:"action" example:"ORDER_APPROVED"`
	EntityType string          `json:"entityType" example:"ORDER"`
	EntityID   int             `json:"entityId" example:"42"`
	Metadata   json.RawMessage `json:"metadata" swaggertype:"object"`
	CreatedAt  string          `json:"createdAt"`
}

func NewAuditEntries(entries []domain.AuditLogEntry) []AuditEntryDTO {
	out := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryDTO{
			ID:         e.ID,
			ActorID:    e.ActorID,
			ActorRole:  string(e.ActorRole),
			Action:     string(e.Action),
			EntityType: string(e.EntityType),
			EntityID:   e.EntityID,
			Metadata:   e.Metadata,
			CreatedAt:  e.CreatedAt.Format(timeLayout),
		})
	}
	return out
}
