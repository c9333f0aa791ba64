package bankgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/GlebRadaev/wholesale/internal/config"
	"github.com/GlebRadaev/wholesale/internal/metrics"
	"github.com/GlebRadaev/wholesale/pkg/clients"
)

const (
	service   = "bank_gateway"
	mediaType = "application/vnd.dwolla.v1.hal+json"
	tokenSkew = time.Minute
)

var ErrDisabled = errors.New("bank gateway credentials are not configured")

// Client talks to the payment-initiation network. A single client caches one
// bearer token per process; concurrent callers share one token request.
type Client struct {
	baseURL string
	key     string
	secret  string
	client  clients.HTTPClientI

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	group     singleflight.Group
	now       func() time.Time
}

func New(cfg config.GatewayConfig, client clients.HTTPClientI) *Client {
	return &Client{
		baseURL: cfg.URL(),
		key:     cfg.Key,
		secret:  cfg.Secret,
		client:  client,
		now:     time.Now,
	}
}

// Enabled reports whether credentials are configured. Nil clients are disabled.
func (c *Client) Enabled() bool {
	return c != nil && c.key != "" && c.secret != ""
}

// CreateCustomer returns the id of the created customer.
func (c *Client) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (string, error) {
	resp, err := c.call(ctx, "create_customer", http.MethodPost, "/customers", req, nil)
	if err != nil {
		return "", err
	}
	return resp.locationID()
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	resp, err := c.call(ctx, "get_customer", http.MethodGet, "/customers/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var customer Customer
	if err := json.Unmarshal(resp.body, &customer); err != nil {
		return nil, fmt.Errorf("can't decode customer: %w", err)
	}
	return &customer, nil
}

// CreateFundingSource attaches a bank account to a customer and returns the
// funding source id.
func (c *Client) CreateFundingSource(ctx context.Context, customerID string, req CreateFundingSourceRequest) (string, error) {
	path := "/customers/" + url.PathEscape(customerID) + "/funding-sources"
	resp, err := c.call(ctx, "create_funding_source", http.MethodPost, path, req, nil)
	if err != nil {
		return "", err
	}
	return resp.locationID()
}

// CreateTransfer initiates an ACH transfer and returns the transfer id. The
// gateway collapses requests carrying the same idempotency key.
func (c *Client) CreateTransfer(ctx context.Context, req TransferRequest) (string, error) {
	if !req.Amount.IsPositive() {
		return "", fmt.Errorf("transfer amount must be positive, got %s", req.Amount)
	}

	var body transferBody
	body.Links.Source.Href = c.resourceURL("funding-sources", req.SourceID)
	body.Links.Destination.Href = c.resourceURL("funding-sources", req.DestinationID)
	body.Amount = amount{Currency: "USD", Value: req.Amount.StringFixed(2)}

	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["Idempotency-Key"] = req.IdempotencyKey
	}

	resp, err := c.call(ctx, "create_transfer", http.MethodPost, "/transfers", body, headers)
	if err != nil {
		return "", err
	}
	return resp.locationID()
}

func (c *Client) GetTransfer(ctx context.Context, id string) (*Transfer, error) {
	resp, err := c.call(ctx, "get_transfer", http.MethodGet, "/transfers/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var transfer Transfer
	if err := json.Unmarshal(resp.body, &transfer); err != nil {
		return nil, fmt.Errorf("can't decode transfer: %w", err)
	}
	if transfer.ID == "" {
		transfer.ID = id
	}
	return &transfer, nil
}

// resourceURL accepts either a bare id or a full resource URL.
func (c *Client) resourceURL(kind, id string) string {
	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return id
	}
	return c.baseURL + "/" + kind + "/" + url.PathEscape(id)
}

type response struct {
	status  int
	body    []byte
	headers http.Header
}

func (r *response) locationID() (string, error) {
	id := resourceID(r.headers.Get("Location"))
	if id == "" {
		return "", errors.New("bank gateway response has no Location header")
	}
	return id, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, body any, headers map[string]string) (resp *response, err error) {
	start := time.Now()
	defer func() { metrics.ObserveExternal(service, op, start, err) }()

	if !c.Enabled() {
		return nil, ErrDisabled
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("can't encode %s request: %w", op, err)
		}
	}

	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}

		resp, err = c.send(ctx, method, path, payload, token, headers)
		if err != nil {
			return nil, fmt.Errorf("bank gateway %s: %w", op, err)
		}
		if resp.status == http.StatusUnauthorized && attempt == 0 {
			zap.L().Warn("bank gateway rejected token, refreshing", zap.String("operation", op))
			c.invalidate(token)
			continue
		}
		break
	}

	if resp.status < 200 || resp.status > 299 {
		return nil, decodeError(resp)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string, headers map[string]string) (*response, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", mediaType)
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", mediaType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	status, respBody, respHeaders, err := c.client.Send(req)
	if err != nil {
		return nil, err
	}
	return &response{status: status, body: respBody, headers: respHeaders}, nil
}

func decodeError(resp *response) error {
	apiErr := &APIError{StatusCode: resp.status}
	if err := json.Unmarshal(resp.body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.status)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(resp.body))
		}
	}
	return apiErr
}

func (c *Client) cachedToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, true
	}
	return "", false
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		// a flight that finished just before this one may have stored a token
		if token, ok := c.cachedToken(); ok {
			return token, nil
		}
		return c.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.token = ""
	}
}

func (c *Client) fetchToken(ctx context.Context) (token string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveExternal(service, "token", start, err) }()

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, _, err := c.client.Send(req)
	if err != nil {
		return "", fmt.Errorf("bank gateway token: %w", err)
	}
	if status != http.StatusOK {
		return "", decodeError(&response{status: status, body: body})
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("can't decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("bank gateway returned an empty token")
	}

	c.mu.Lock()
	c.token = tr.AccessToken
	c.expiresAt = c.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenSkew)
	c.mu.Unlock()

	return tr.AccessToken, nil
}
