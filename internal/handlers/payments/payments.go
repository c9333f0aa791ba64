package payments

//go:generate mockgen -source=payments.go -destination=mock_payments.go -package=payments

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/dto"
	"github.com/GlebRadaev/wholesale/internal/handlers/httperr"
	"github.com/GlebRadaev/wholesale/internal/service/fundingservice"
	"github.com/GlebRadaev/wholesale/internal/service/transferservice"
	"github.com/GlebRadaev/wholesale/pkg/auth"
	"github.com/GlebRadaev/wholesale/pkg/utils"
)

type FundingService interface {
	LinkBankAccount(ctx context.Context, actor domain.Actor, publicToken string) (*fundingservice.LinkResult, error)
	ListFundingSources(ctx context.Context, actor domain.Actor) ([]domain.FundingSource, error)
	RemoveFundingSource(ctx context.Context, actor domain.Actor, id int) error
}

type TransferService interface {
	PayInvoice(ctx context.Context, payer domain.Actor, input transferservice.PayInvoiceInput) (*transferservice.PayResult, error)
}

type PaymentHandler struct {
	fundingService  FundingService
	transferService TransferService
}

func New(fundingService FundingService, transferService TransferService) *PaymentHandler {
	return &PaymentHandler{
		fundingService:  fundingService,
		transferService: transferService,
	}
}

// ExchangeToken godoc
//
//	@Summary		Link bank accounts
//	@Description	Exchange a public token from the account-linking widget and create funding sources for eligible accounts. Partial success is reported through warnings.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		dto.ExchangeTokenRequestDTO	true	"Public token"
//	@Success		200		{object}	dto.ExchangeTokenResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		502		{object}	utils.Response	"Account-linking network failure"
//	@Failure		503		{object}	utils.Response	"Account linking is not configured"
//	@Router			/api/payments/link/exchange-token [post]
func (h *PaymentHandler) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequireActor(w, r)
	if !ok {
		return
	}

	var req dto.ExchangeTokenRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PublicToken == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "publicToken is required")
		return
	}

	result, err := h.fundingService.LinkBankAccount(r.Context(), actor, req.PublicToken)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.ExchangeTokenResponseDTO{
		Success:               true,
		AccountsLinked:        result.AccountsLinked,
		FundingSourcesCreated: result.FundingSourcesCreated,
		Accounts:              dto.NewLinkedAccounts(result.Accounts),
		FundingSources:        dto.NewFundingSources(result.FundingSources),
		Warnings:              warnings,
	})
}

// GetFundingSources godoc
//
//	@Summary		List funding sources
//	@Tags			Payments
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		dto.FundingSourceDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/payments/funding-sources [get]
func (h *PaymentHandler) GetFundingSources(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequireActor(w, r)
	if !ok {
		return
	}

	sources, err := h.fundingService.ListFundingSources(r.Context(), actor)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewFundingSources(sources))
}

// RemoveFundingSource godoc
//
//	@Summary		Remove a funding source
//	@Description	The source stays in the ledger for history but can no longer pay.
//	@Tags			Payments
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Funding source ID"
//	@Success		200	{object}	utils.Response
//	@Failure		400	{object}	utils.Response	"Invalid funding source id"
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		404	{object}	utils.Response	"Funding source not found"
//	@Router			/api/payments/funding-sources/{id} [delete]
func (h *PaymentHandler) RemoveFundingSource(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequireActor(w, r)
	if !ok {
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid funding source id")
		return
	}

	if err := h.fundingService.RemoveFundingSource(r.Context(), actor, id); err != nil {
		httperr.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "Funding source removed"})
}

// Transfer godoc
//
//	@Summary		Pay an invoice
//	@Description	Initiate an ACH transfer for the full invoice amount from a verified funding source.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		dto.TransferRequestDTO	true	"Transfer request"
//	@Success		200		{object}	dto.TransferResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		404		{object}	utils.Response	"Invoice or funding source not found"
//	@Failure		409		{object}	utils.Response	"Invoice is not payable"
//	@Failure		422		{object}	utils.Response	"Amount does not match the invoice"
//	@Failure		502		{object}	utils.Response	"Payment failed, try again"
//	@Failure		503		{object}	utils.Response	"Payments are not configured"
//	@Router			/api/payments/transfer [post]
func (h *PaymentHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequireActor(w, r)
	if !ok {
		return
	}

	var req dto.TransferRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.InvoiceID <= 0 || req.FundingSourceID <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "invoiceId and fundingSourceId are required")
		return
	}

	result, err := h.transferService.PayInvoice(r.Context(), actor, transferservice.PayInvoiceInput{
		InvoiceID:       req.InvoiceID,
		FundingSourceID: req.FundingSourceID,
		Amount:          req.Amount,
	})
	if err != nil {
		httperr.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.TransferResponseDTO{
		Success:    true,
		TransferID: result.TransferID,
	})
}
