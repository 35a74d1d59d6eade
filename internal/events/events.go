// Package events delivers in-process notifications after webhook state
// changes have been committed.
package events

import (
	"context"
	"sync"

	subscriptiondomain "github.com/solvance/cashier-polar/internal/subscription/domain"
	transactiondomain "github.com/solvance/cashier-polar/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Event is a named notification with its originating payload.
type Event interface {
	Name() string
}

// WebhookReceived fires when a verified delivery has been accepted for
// processing.
type WebhookReceived struct {
	Type    string
	Payload map[string]any
}

func (WebhookReceived) Name() string { return "webhook.received" }

// WebhookHandled fires after a delivery's state changes have been committed.
type WebhookHandled struct {
	Type    string
	Payload map[string]any
}

func (WebhookHandled) Name() string { return "webhook.handled" }

// Typed notifications fire after the corresponding delivery has been
// applied, carrying the persisted entity alongside the raw payload.

type CheckoutCreated struct {
	Transaction transactiondomain.Transaction
	Payload     map[string]any
}

func (CheckoutCreated) Name() string { return "checkout.created" }

type CheckoutUpdated struct {
	Transaction transactiondomain.Transaction
	Payload     map[string]any
}

func (CheckoutUpdated) Name() string { return "checkout.updated" }

type OrderCreated struct {
	Transaction transactiondomain.Transaction
	Payload     map[string]any
}

func (OrderCreated) Name() string { return "order.created" }

type SubscriptionCreated struct {
	Subscription subscriptiondomain.Subscription
	Payload      map[string]any
}

func (SubscriptionCreated) Name() string { return "subscription.created" }

type SubscriptionActive struct {
	Subscription subscriptiondomain.Subscription
	Payload      map[string]any
}

func (SubscriptionActive) Name() string { return "subscription.active" }

type SubscriptionUpdated struct {
	Subscription subscriptiondomain.Subscription
	Payload      map[string]any
}

func (SubscriptionUpdated) Name() string { return "subscription.updated" }

type SubscriptionCanceled struct {
	Subscription subscriptiondomain.Subscription
	Payload      map[string]any
}

func (SubscriptionCanceled) Name() string { return "subscription.canceled" }

type SubscriptionRevoked struct {
	Subscription subscriptiondomain.Subscription
	Payload      map[string]any
}

func (SubscriptionRevoked) Name() string { return "subscription.revoked" }

// Handler consumes a published event. Handlers must not block; slow work
// belongs in the subscriber's own goroutine.
type Handler func(ctx context.Context, evt Event)

// Dispatcher is a synchronous in-process event bus.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *zap.Logger
}

func New(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]Handler),
		log:      log.Named("events.dispatcher"),
	}
}

// Subscribe registers a handler for the named event.
func (d *Dispatcher) Subscribe(name string, h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], h)
}

// Publish delivers the event to every subscribed handler in order. A handler
// panic is recovered and logged so one subscriber cannot break the others.
func (d *Dispatcher) Publish(ctx context.Context, evt Event) {
	if evt == nil {
		return
	}

	d.mu.RLock()
	handlers := append([]Handler(nil), d.handlers[evt.Name()]...)
	d.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.log.Error("event handler panic",
						zap.String("event", evt.Name()),
						zap.Any("panic", r),
					)
				}
			}()
			h(ctx, evt)
		}()
	}
}

var Module = fx.Module("events",
	fx.Provide(New),
)
