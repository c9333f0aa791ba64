package audit

//go:generate mockgen -source=audit.go -destination=mock_audit.go -package=audit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/dto"
	"github.com/GlebRadaev/wholesale/internal/handlers/httperr"
	"github.com/GlebRadaev/wholesale/pkg/auth"
	"github.com/GlebRadaev/wholesale/pkg/utils"
)

type Service interface {
	ListByEntity(ctx context.Context, actor domain.Actor, entityType string, entityID int) ([]domain.AuditLogEntry, error)
}

type AuditHandler struct {
	auditService Service
}

func New(auditService Service) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// GetEntries godoc
//
//	@Summary		Audit trail of an entity
//	@Description	Staff and admins only. Entries are returned oldest first.
//	@Tags			Audit
//	@Produce		json
//	@Security		BearerAuth
//	@Param			entityType	path		string	true	"ORDER, INVOICE, PAYMENT, EXTERNAL_CUSTOMER or FUNDING_SOURCE"
//	@Param			entityId	path		int		true	"Entity ID"
//	@Success		200			{array}		dto.AuditEntryDTO
//	@Failure		400			{object}	utils.Response	"Invalid entity id"
//	@Failure		401			{object}	utils.Response	"User not authorized"
//	@Failure		403			{object}	utils.Response	"Role may not read the audit log"
//	@Failure		422			{object}	utils.Response	"Unknown entity type"
//	@Router			/api/audit/{entityType}/{entityId} [get]
func (h *AuditHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequireActor(w, r)
	if !ok {
		return
	}

	entityID, err := strconv.Atoi(chi.URLParam(r, "entityId"))
	if err != nil || entityID <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid entity id")
		return
	}

	entries, err := h.auditService.ListByEntity(r.Context(), actor, chi.URLParam(r, "entityType"), entityID)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewAuditEntries(entries))
}
