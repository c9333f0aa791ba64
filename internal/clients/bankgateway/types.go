package bankgateway

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Customer types accepted by the gateway.
const (
	CustomerTypeReceiveOnly = "receive-only"
	CustomerTypeUnverified  = "unverified"
)

// Transfer states reported by the gateway.
const (
	TransferPending   = "pending"
	TransferProcessed = "processed"
	TransferFailed    = "failed"
	TransferCancelled = "cancelled"
)

const (
	codeDuplicate         = "Duplicate"
	codeDuplicateResource = "DuplicateResource"
)

type link struct {
	Href string `json:"href"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type CreateCustomerRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Type         string `json:"type,omitempty"`
	BusinessName string `json:"businessName,omitempty"`
}

type Customer struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Type      string `json:"type"`
	Status    string `json:"status"`
}

type CreateFundingSourceRequest struct {
	// ProcessorToken binds a linked bank account to the gateway.
	ProcessorToken string `json:"plaidToken"`
	Name           string `json:"name"`
}

type TransferRequest struct {
	SourceID       string
	DestinationID  string
	Amount         decimal.Decimal
	IdempotencyKey string
}

type amount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type transferBody struct {
	Links struct {
		Source      link `json:"source"`
		Destination link `json:"destination"`
	} `json:"_links"`
	Amount amount `json:"amount"`
}

type Transfer struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount amount `json:"amount"`
}

// Settled reports whether the transfer reached a final state.
func (t *Transfer) Settled() bool {
	return t.Status == TransferProcessed || t.Status == TransferFailed || t.Status == TransferCancelled
}

type embeddedError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path"`
	Links   struct {
		About link `json:"about"`
	} `json:"_links"`
}

// APIError is a non-2xx gateway response.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Links      struct {
		About link `json:"about"`
	} `json:"_links"`
	Embedded struct {
		Errors []embeddedError `json:"errors"`
	} `json:"_embedded"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("bank gateway responded %d %s: %s", e.StatusCode, e.Code, e.Message)
	for _, nested := range e.Embedded.Errors {
		msg += fmt.Sprintf("; %s %s", nested.Code, nested.Message)
	}
	return msg
}

// IsDuplicate reports whether the gateway rejected a create because the
// resource already exists.
func (e *APIError) IsDuplicate() bool {
	if e.Code == codeDuplicateResource {
		return true
	}
	for _, nested := range e.Embedded.Errors {
		if nested.Code == codeDuplicate {
			return true
		}
	}
	return false
}

var idInMessage = regexp.MustCompile(`id=([0-9A-Za-z-]+)`)

// ExistingResourceID extracts the id of the resource a duplicate error points
// at. The about link wins over ids mentioned in the message text.
func (e *APIError) ExistingResourceID() (string, bool) {
	if !e.IsDuplicate() {
		return "", false
	}
	if id := resourceID(e.Links.About.Href); id != "" {
		return id, true
	}
	for _, nested := range e.Embedded.Errors {
		if nested.Code != codeDuplicate {
			continue
		}
		if id := resourceID(nested.Links.About.Href); id != "" {
			return id, true
		}
		if m := idInMessage.FindStringSubmatch(nested.Message); m != nil {
			return m[1], true
		}
	}
	if m := idInMessage.FindStringSubmatch(e.Message); m != nil {
		return m[1], true
	}
	return "", false
}

// resourceID returns the last path segment of a resource URL.
func resourceID(href string) string {
	href = strings.TrimRight(href, "/")
	if href == "" {
		return ""
	}
	return href[strings.LastIndex(href, "/")+1:]
}
