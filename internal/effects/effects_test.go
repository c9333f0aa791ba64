package effects

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/notify"
)

func TestRunner_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	dispatcher := notify.NewMockDispatcher(ctrl)
	runner := NewRunner(dispatcher, time.Second)

	statusEvent := notify.OrderStatusChanged{To: "a@b.c", OrderID: 1, NewStatus: domain.OrderStatusApproved}
	invoiceEvent := notify.InvoiceCreated{To: "a@b.c", OrderID: 1, InvoiceNumber: "INV-1"}

	gomock.InOrder(
		dispatcher.EXPECT().Send(gomock.Any(), statusEvent).Return(errors.New("smtp down")),
		dispatcher.EXPECT().Send(gomock.Any(), invoiceEvent).Return(nil),
	)

	outcomes := runner.Run(context.Background(), []Effect{
		{EntityType: domain.EntityOrder, EntityID: 1, Event: statusEvent},
		{EntityType: domain.EntityInvoice, EntityID: 9, Event: invoiceEvent},
	})

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Delivered())
	assert.Equal(t, domain.DeliveryOutcome{
		Notification: notify.TemplateOrderStatusChanged,
		Recipient:    "a@b.c",
		Delivered:    false,
		Error:        "smtp down",
	}, outcomes[0].Describe())
	assert.True(t, outcomes[1].Delivered())
	assert.Equal(t, 9, outcomes[1].Effect.EntityID)
}

func TestRunner_IgnoresCallerCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	dispatcher := notify.NewMockDispatcher(ctrl)
	runner := NewRunner(dispatcher, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dispatcher.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ notify.Event) error {
		return ctx.Err()
	})

	outcomes := runner.Run(ctx, []Effect{{Event: notify.PaymentFailed{To: "a@b.c"}}})
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Delivered())
}

func TestRunner_Empty(t *testing.T) {
	runner := NewRunner(notify.LogDispatcher{}, 0)
	assert.Nil(t, runner.Run(context.Background(), nil))
}
