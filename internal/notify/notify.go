package notify

//go:generate mockgen -source=notify.go -destination=mock_notify.go -package=notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/wholesale/internal/config"
	"github.com/GlebRadaev/wholesale/internal/metrics"
	"github.com/GlebRadaev/wholesale/pkg/clients"
)

var ErrNoRecipient = errors.New("notification has no recipient")

type Dispatcher interface {
	Send(ctx context.Context, event Event) error
}

// New returns a dispatcher posting to the configured mail relay, or one that
// only logs when no relay is configured.
func New(cfg config.MailerConfig, client clients.HTTPClientI) Dispatcher {
	if cfg.URL == "" {
		zap.L().Warn("mailer URL is not configured, notifications will only be logged")
		return LogDispatcher{}
	}
	return &HTTPDispatcher{url: cfg.URL, token: cfg.Token, client: client}
}

type message struct {
	To       string `json:"to"`
	Template string `json:"template"`
	Data     Event  `json:"data"`
}

// HTTPDispatcher hands rendered-template requests to a mail relay.
type HTTPDispatcher struct {
	url    string
	token  string
	client clients.HTTPClientI
}

func (d *HTTPDispatcher) Send(ctx context.Context, event Event) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveExternal("mailer", event.Template(), start, err) }()

	if event.Recipient() == "" {
		return ErrNoRecipient
	}

	payload, err := json.Marshal(message{To: event.Recipient(), Template: event.Template(), Data: event})
	if err != nil {
		return fmt.Errorf("can't encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	status, body, _, err := d.client.Send(req)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("mailer responded %d: %s", status, body)
	}
	return nil
}

type LogDispatcher struct{}

func (LogDispatcher) Send(_ context.Context, event Event) error {
	if event.Recipient() == "" {
		return ErrNoRecipient
	}
	zap.L().Info("notification",
		zap.String("template", event.Template()),
		zap.String("to", event.Recipient()),
		zap.Any("data", event),
	)
	return nil
}
