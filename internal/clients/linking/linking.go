package linking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/GlebRadaev/wholesale/internal/config"
	"github.com/GlebRadaev/wholesale/internal/metrics"
	"github.com/GlebRadaev/wholesale/pkg/clients"
)

const service = "linking"

var ErrDisabled = errors.New("linking network credentials are not configured")

type credentials struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

type exchangeRequest struct {
	credentials
	PublicToken string `json:"public_token"`
}

type ExchangeResult struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

type accountsRequest struct {
	credentials
	AccessToken string `json:"access_token"`
}

type accountsResponse struct {
	Accounts []Account `json:"accounts"`
}

type Account struct {
	ID           string `json:"account_id"`
	Name         string `json:"name"`
	OfficialName string `json:"official_name"`
	Mask         string `json:"mask"`
	Type         string `json:"type"`
	Subtype      string `json:"subtype"`
}

// Eligible reports whether the account can back an ACH funding source.
func (a Account) Eligible() bool {
	if a.Type != "" && a.Type != "depository" {
		return false
	}
	return a.Subtype == "checking" || a.Subtype == "savings"
}

// DisplayName prefers the short account name over the official one.
func (a Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if a.OfficialName != "" {
		return a.OfficialName
	}
	return a.Subtype + " " + a.Mask
}

type processorTokenRequest struct {
	credentials
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
	Processor   string `json:"processor"`
}

type processorTokenResponse struct {
	ProcessorToken string `json:"processor_token"`
}

// APIError is a non-2xx response of the linking network.
type APIError struct {
	StatusCode     int    `json:"-"`
	Type           string `json:"error_type"`
	Code           string `json:"error_code"`
	Message        string `json:"error_message"`
	DisplayMessage string `json:"display_message"`
	RequestID      string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("linking network responded %d %s/%s: %s", e.StatusCode, e.Type, e.Code, e.Message)
}

// Client talks to the bank-account-linking network. Credentials travel in
// every request body, so there is no token to cache.
type Client struct {
	baseURL   string
	creds     credentials
	processor string
	client    clients.HTTPClientI
}

func New(cfg config.LinkingConfig, client clients.HTTPClientI) *Client {
	return &Client{
		baseURL:   cfg.URL(),
		creds:     credentials{ClientID: cfg.ClientID, Secret: cfg.Secret},
		processor: cfg.Processor,
		client:    client,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.creds.ClientID != "" && c.creds.Secret != ""
}

// ExchangePublicToken trades the short-lived token issued to the browser for
// an item access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error) {
	var result ExchangeResult
	req := exchangeRequest{credentials: c.creds, PublicToken: publicToken}
	if err := c.post(ctx, "exchange_public_token", "/item/public_token/exchange", req, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, errors.New("linking network returned an empty access token")
	}
	return &result, nil
}

func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	var result accountsResponse
	req := accountsRequest{credentials: c.creds, AccessToken: accessToken}
	if err := c.post(ctx, "get_accounts", "/accounts/get", req, &result); err != nil {
		return nil, err
	}
	return result.Accounts, nil
}

// CreateProcessorToken binds one account to the bank gateway.
func (c *Client) CreateProcessorToken(ctx context.Context, accessToken, accountID string) (string, error) {
	var result processorTokenResponse
	req := processorTokenRequest{
		credentials: c.creds,
		AccessToken: accessToken,
		AccountID:   accountID,
		Processor:   c.processor,
	}
	if err := c.post(ctx, "create_processor_token", "/processor/token/create", req, &result); err != nil {
		return "", err
	}
	if result.ProcessorToken == "" {
		return "", errors.New("linking network returned an empty processor token")
	}
	return result.ProcessorToken, nil
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveExternal(service, op, start, err) }()

	if !c.Enabled() {
		return ErrDisabled
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("can't encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	status, respBody, _, err := c.client.Send(req)
	if err != nil {
		return fmt.Errorf("linking %s: %w", op, err)
	}
	if status < 200 || status > 299 {
		apiErr := &APIError{StatusCode: status}
		if jsonErr := json.Unmarshal(respBody, apiErr); jsonErr != nil || apiErr.Code == "" {
			apiErr.Type = "API_ERROR"
			apiErr.Code = http.StatusText(status)
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("can't decode %s response: %w", op, err)
	}
	return nil
}
