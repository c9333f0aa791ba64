package invoices

//go:generate mockgen -source=invoices.go -destination=mock_invoices.go -package=invoices

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/dto"
	"github.com/GlebRadaev/wholesale/internal/handlers/httperr"
	"github.com/GlebRadaev/wholesale/pkg/auth"
	"github.com/GlebRadaev/wholesale/pkg/utils"
	"github.com/GlebRadaev/wholesale/pkg/validate"
)

type Service interface {
	GetByNumber(ctx context.Context, number string, actor domain.Actor) (*domain.Invoice, error)
}

type InvoiceHandler struct {
	invoiceService Service
}

func New(invoiceService Service) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// GetInvoice godoc
//
//	@Summary		Get invoice by number
//	@Description	Buyers see invoices of their own orders only.
//	@Tags			Invoices
//	@Produce		json
//	@Security		BearerAuth
//	@Param			number	path		string	true	"Invoice number"
//	@Success		200		{object}	dto.InvoiceDTO
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		404		{object}	utils.Response	"Invoice not found"
//	@Failure		422		{object}	utils.Response	"Invalid invoice number"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/invoices/{number} [get]
func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequireActor(w, r)
	if !ok {
		return
	}

	number := chi.URLParam(r, "number")
	if !validate.IsInvoiceNumber(number) {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid invoice number")
		return
	}

	invoice, err := h.invoiceService.GetByNumber(r.Context(), number, actor)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewInvoice(invoice))
}
