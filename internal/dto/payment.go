package dto

import (
	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/wholesale/internal/clients/linking"
	"github.com/GlebRadaev/wholesale/internal/domain"
)

type ExchangeTokenRequestDTO struct {
	PublicToken string `json:"publicToken" example:"public-sandbox-5c4b1a"`
}

type LinkedAccountDTO struct {
	ID      string `json:"id" example:"vzeNDwK7KQIm4yEog683uElbp9GRLEFXGK98D"`
	Name    string `json:"name" example:"Plaid Checking"`
	Mask    string `json:"mask" example:"0000"`
	Type    string `json:"type" example:"depository"`
	Subtype string `json:"subtype" example:"checking"`
}

type FundingSourceDTO struct {
	ID         int    `json:"id" example:"3"`
	ExternalID string `json:"externalId" example:"fc84223a-609f-42c9-866e-2c98f17ab4fb"`
	Name       string `json:"name" example:"Plaid Checking"`
	Mask       string `json:"mask" example:"0000"`
	Verified   bool   `json:"verified"`
	CreatedAt  string `json:"createdAt"`
}

type ExchangeTokenResponseDTO struct {
	Success               bool               `json:"success"`
	AccountsLinked        int                `json:"accountsLinked"`
	FundingSourcesCreated int                `json:"fundingSourcesCreated"`
	Accounts              []LinkedAccountDTO `json:"accounts"`
	FundingSources        []FundingSourceDTO `json:"fundingSources"`
	Warnings              []string           `json:"warnings"`
}

// TransferRequestDTO accepts the amount as a JSON number or string.
type TransferRequestDTO struct {
	InvoiceID       int             `json:"invoiceId" example:"11"`
	FundingSourceID int             `json:"fundingSourceId" example:"3"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"string" example:"500.00"`
}

type TransferResponseDTO struct {
	Success    bool   `json:"success"`
	TransferID string `json:"transferId" example:"15c6bcce-46f7-e811-8112-e8dd3bececa8"`
}

func NewLinkedAccounts(accounts []linking.Account) []LinkedAccountDTO {
	out := make([]LinkedAccountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, LinkedAccountDTO{
			ID:      a.ID,
			Name:    a.Name,
			Mask:    a.Mask,
			Type:    a.Type,
			Subtype: a.Subtype,
		})
	}
	return out
}

func NewFundingSources(sources []domain.FundingSource) []FundingSourceDTO {
	out := make([]FundingSourceDTO, 0, len(sources))
	for _, s := range sources {
		out = append(out, FundingSourceDTO{
			ID:         s.ID,
			ExternalID: s.ExternalID,
			Name:       s.Name,
			Mask:       s.Mask,
			Verified:   s.Verified,
			CreatedAt:  s.CreatedAt.Format(timeLayout),
		})
	}
	return out
}
