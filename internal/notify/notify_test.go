package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/wholesale/internal/config"
	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/pkg/clients"
)

func TestNew(t *testing.T) {
	assert.IsType(t, LogDispatcher{}, New(config.MailerConfig{}, clients.NewHTTPClient(0)))
	assert.IsType(t, &HTTPDispatcher{}, New(config.MailerConfig{URL: "http://mailer"}, clients.NewHTTPClient(0)))
}

func TestHTTPDispatcher_Send(t *testing.T) {
	var got struct {
		To       string          `json:"to"`
		Template string          `json:"template"`
		Data     json.RawMessage `json:"data"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer mail-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := New(config.MailerConfig{URL: srv.URL, Token: "mail-token"}, clients.NewHTTPClient(time.Second))
	err := d.Send(context.Background(), InvoiceCreated{
		To:            "buyer@example.com",
		OrderID:       7,
		InvoiceNumber: "INV-1",
		Total:         decimal.RequireFromString("500.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, "buyer@example.com", got.To)
	assert.Equal(t, TemplateInvoiceCreated, got.Template)
	assert.Contains(t, string(got.Data), `"invoiceNumber":"INV-1"`)
	assert.NotContains(t, string(got.Data), "buyer@example.com")
}

func TestHTTPDispatcher_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	d := New(config.MailerConfig{URL: srv.URL}, clients.NewHTTPClient(time.Second))

	tests := []struct {
		name  string
		event Event
	}{
		{
			name:  "relay unavailable",
			event: OrderStatusChanged{To: "a@b.c", OrderID: 1, NewStatus: domain.OrderStatusRejected},
		},
		{
			name:  "missing recipient",
			event: PaymentFailed{InvoiceNumber: "INV-1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, d.Send(context.Background(), tt.event))
		})
	}
}

func TestLogDispatcher_Send(t *testing.T) {
	assert.NoError(t, LogDispatcher{}.Send(context.Background(), PaymentFailed{To: "a@b.c"}))
	assert.ErrorIs(t, LogDispatcher{}.Send(context.Background(), PaymentFailed{}), ErrNoRecipient)
}
