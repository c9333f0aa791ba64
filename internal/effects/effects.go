// Package effects runs the side effects a committed transaction asked for.
// State changes are durable before any effect is attempted; an effect failure
// is reported to the caller and never undoes them.
package effects

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/metrics"
	"github.com/GlebRadaev/wholesale/internal/notify"
)

const defaultTimeout = 15 * time.Second

// Effect is a notification owed for a state change of one entity.
type Effect struct {
	EntityType domain.EntityType
	EntityID   int
	Event      notify.Event
}

func (e Effect) Name() string {
	return e.Event.Template()
}

type Outcome struct {
	Effect Effect
	Err    error
}

func (o Outcome) Delivered() bool {
	return o.Err == nil
}

// Describe converts the outcome into audit metadata.
func (o Outcome) Describe() domain.DeliveryOutcome {
	d := domain.DeliveryOutcome{
		Notification: o.Effect.Name(),
		Recipient:    o.Effect.Event.Recipient(),
		Delivered:    o.Delivered(),
	}
	if o.Err != nil {
		d.Error = o.Err.Error()
	}
	return d
}

type Runner struct {
	dispatcher notify.Dispatcher
	timeout    time.Duration
}

func NewRunner(dispatcher notify.Dispatcher, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Runner{dispatcher: dispatcher, timeout: timeout}
}

// Run attempts every effect in order and returns one outcome per effect. The
// caller's cancellation does not abort delivery; the runner's own timeout does.
func (r *Runner) Run(ctx context.Context, list []Effect) []Outcome {
	if len(list) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	outcomes := make([]Outcome, 0, len(list))
	for _, effect := range list {
		err := r.dispatcher.Send(ctx, effect.Event)
		metrics.ObserveEffect(effect.Name(), err)
		if err != nil {
			zap.L().Warn("effect failed",
				zap.String("effect", effect.Name()),
				zap.String("entityType", string(effect.EntityType)),
				zap.Int("entityID", effect.EntityID),
				zap.Error(err),
			)
		}
		outcomes = append(outcomes, Outcome{Effect: effect, Err: err})
	}
	return outcomes
}
