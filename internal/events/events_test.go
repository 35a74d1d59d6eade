package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	d := New(zap.NewNop())

	var seen []string
	d.Subscribe("webhook.handled", func(ctx context.Context, evt Event) {
		seen = append(seen, "first")
	})
	d.Subscribe("webhook.handled", func(ctx context.Context, evt Event) {
		seen = append(seen, "second")
	})

	d.Publish(context.Background(), WebhookHandled{Type: "subscription.created"})

	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	d := New(zap.NewNop())

	var delivered bool
	d.Subscribe("webhook.received", func(ctx context.Context, evt Event) {
		panic("boom")
	})
	d.Subscribe("webhook.received", func(ctx context.Context, evt Event) {
		delivered = true
	})

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), WebhookReceived{Type: "order.created"})
	})
	assert.True(t, delivered, "handlers after a panic must still run")
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	d := New(zap.NewNop())

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), WebhookHandled{Type: "checkout.updated"})
		d.Publish(context.Background(), nil)
	})
}

func TestSubscribeIgnoresNilHandler(t *testing.T) {
	d := New(zap.NewNop())
	d.Subscribe("webhook.handled", nil)

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), WebhookHandled{Type: "subscription.updated"})
	})
}

func TestEventCarriesPayload(t *testing.T) {
	d := New(zap.NewNop())

	var got map[string]any
	d.Subscribe("webhook.received", func(ctx context.Context, evt Event) {
		received, ok := evt.(WebhookReceived)
		assert.True(t, ok)
		got = received.Payload
	})

	d.Publish(context.Background(), WebhookReceived{
		Type:    "subscription.active",
		Payload: map[string]any{"id": "sub_1"},
	})

	assert.Equal(t, "sub_1", got["id"])
}
