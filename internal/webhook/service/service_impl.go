// Package service reconciles verified Polar webhook deliveries into local
// billing state.
package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/solvance/cashier-polar/internal/billable"
	"github.com/solvance/cashier-polar/internal/clock"
	customerdomain "github.com/solvance/cashier-polar/internal/customer/domain"
	"github.com/solvance/cashier-polar/internal/events"
	"github.com/solvance/cashier-polar/internal/observability/metrics"
	subscriptiondomain "github.com/solvance/cashier-polar/internal/subscription/domain"
	transactiondomain "github.com/solvance/cashier-polar/internal/transaction/domain"
	"github.com/solvance/cashier-polar/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Resolver      *billable.Resolver
	Subscriptions subscriptiondomain.Repository
	Transactions  transactiondomain.Repository
	Dispatcher    *events.Dispatcher
	Metrics       *metrics.Metrics
}

type handlerFunc func(ctx context.Context, tx *gorm.DB, delivery domain.Delivery, evt domain.Event) (domain.Outcome, events.Event, error)

// Service routes each delivery to its event handler. Every handler applies
// its writes in one database transaction so a failed delivery leaves no
// partial state behind, and every write is an upsert so redelivery and
// out-of-order arrival converge on the same rows.
type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	resolver      *billable.Resolver
	subscriptions subscriptiondomain.Repository
	transactions  transactiondomain.Repository
	dispatcher    *events.Dispatcher
	metrics       *metrics.Metrics

	handlers map[string]handlerFunc
}

func New(p Params) *Service {
	s := &Service{
		db:            p.DB,
		log:           p.Log.Named("webhook.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		resolver:      p.Resolver,
		subscriptions: p.Subscriptions,
		transactions:  p.Transactions,
		dispatcher:    p.Dispatcher,
		metrics:       p.Metrics,
	}
	s.handlers = map[string]handlerFunc{
		"checkout.created":      s.checkoutCreated,
		"checkout.updated":      s.checkoutUpdated,
		"order.created":         s.orderCreated,
		"subscription.created":  s.subscriptionCreated,
		"subscription.active":   s.subscriptionActive,
		"subscription.updated":  s.subscriptionUpdated,
		"subscription.canceled": s.subscriptionCanceled,
		"subscription.revoked":  s.subscriptionRevoked,
	}
	return s
}

// Handle processes one verified delivery and reports what was done with it.
func (s *Service) Handle(ctx context.Context, delivery domain.Delivery) (domain.Outcome, error) {
	evt, err := domain.Parse(delivery.Body)
	if err != nil {
		return "", err
	}

	log := s.log.With(
		zap.String("event_type", evt.Type),
		zap.String("delivery_id", delivery.ID),
	)
	log.Info("processing webhook")

	s.dispatcher.Publish(ctx, events.WebhookReceived{Type: evt.Type, Payload: evt.Payload})

	handler, ok := s.handlers[evt.Type]
	if !ok {
		log.Info("unknown webhook type, acknowledged without changes")
		s.metrics.RecordWebhookEvent(ctx, evt.Type, string(domain.OutcomeUnknown))
		return domain.OutcomeUnknown, nil
	}

	var outcome domain.Outcome
	var notification events.Event
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var inner error
		outcome, notification, inner = handler(ctx, tx, delivery, evt)
		return inner
	})
	if err != nil {
		log.Error("webhook processing failed", zap.Error(err))
		s.metrics.RecordWebhookEvent(ctx, evt.Type, "error")
		return "", err
	}

	s.metrics.RecordWebhookEvent(ctx, evt.Type, string(outcome))
	if outcome == domain.OutcomeApplied {
		if notification != nil {
			s.dispatcher.Publish(ctx, notification)
		}
		s.dispatcher.Publish(ctx, events.WebhookHandled{Type: evt.Type, Payload: evt.Payload})
		log.Info("webhook applied")
	} else {
		log.Warn("webhook skipped", zap.String("outcome", string(outcome)))
	}
	return outcome, nil
}

func (s *Service) checkoutCreated(ctx context.Context, tx *gorm.DB, _ domain.Delivery, evt domain.Event) (domain.Outcome, events.Event, error) {
	data := evt.Data

	customer, outcome, err := s.resolve(ctx, tx, data)
	if customer == nil {
		return outcome, nil, err
	}

	checkoutID := domain.String(data, "id")
	if checkoutID == "" {
		return "", nil, domain.ErrInvalidPayload
	}

	now := s.clock.Now()
	status := domain.String(data, "status")
	if status == "" {
		status = "open"
	}
	record := transactiondomain.Transaction{
		ID:         s.genID.Generate(),
		CustomerID: customer.ID,
		PolarID:    checkoutID,
		CheckoutID: checkoutID,
		Status:     status,
		Currency:   domain.String(data, "currency"),
		Total:      domain.Int64(data, "total_amount"),
		Tax:        domain.Int64(data, "tax_amount"),
		BilledAt:   &now,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.transactions.Upsert(ctx, tx, &record); err != nil {
		return "", nil, err
	}

	s.metrics.RecordTransaction(ctx, record.Status)
	return domain.OutcomeApplied, events.CheckoutCreated{Transaction: record, Payload: evt.Payload}, nil
}

func (s *Service) checkoutUpdated(ctx context.Context, tx *gorm.DB, _ domain.Delivery, evt domain.Event) (domain.Outcome, events.Event, error) {
	data := evt.Data

	customer, outcome, err := s.resolve(ctx, tx, data)
	if customer == nil {
		return outcome, nil, err
	}

	checkoutID := domain.String(data, "id")
	record, err := s.transactions.FindByCheckoutID(ctx, tx, customer.ID, checkoutID)
	if err != nil {
		return "", nil, err
	}
	if record == nil {
		s.log.Warn("no transaction for checkout", zap.String("checkout_id", checkoutID))
		return domain.OutcomeSkipped, nil, nil
	}

	status := domain.String(data, "status")
	if status == "" {
		status = "unknown"
	}
	if err := s.transactions.UpdateStatus(ctx, tx, record.ID, status, s.clock.Now()); err != nil {
		return "", nil, err
	}

	record.Status = status
	return domain.OutcomeApplied, events.CheckoutUpdated{Transaction: *record, Payload: evt.Payload}, nil
}

func (s *Service) orderCreated(ctx context.Context, tx *gorm.DB, _ domain.Delivery, evt domain.Event) (domain.Outcome, events.Event, error) {
	data := evt.Data

	customer, outcome, err := s.resolve(ctx, tx, data)
	if customer == nil {
		return outcome, nil, err
	}

	orderID := domain.String(data, "id")
	if orderID == "" {
		return "", nil, domain.ErrInvalidPayload
	}

	now := s.clock.Now()
	billedAt := domain.Time(data, "created_at")
	if billedAt == nil {
		billedAt = &now
	}
	record := transactiondomain.Transaction{
		ID:                  s.genID.Generate(),
		CustomerID:          customer.ID,
		PolarID:             orderID,
		PolarSubscriptionID: domain.String(data, "subscription_id"),
		CheckoutID:          domain.String(data, "checkout_id"),
		Status:              "completed",
		Currency:            domain.String(data, "currency"),
		Total:               domain.Int64(data, "amount"),
		Tax:                 domain.Int64(data, "tax_amount"),
		BilledAt:            billedAt,
		Metadata: datatypes.JSONMap{
			"billing_reason":  data["billing_reason"],
			"billing_address": data["billing_address"],
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.transactions.Upsert(ctx, tx, &record); err != nil {
		return "", nil, err
	}

	s.metrics.RecordTransaction(ctx, record.Status)
	return domain.OutcomeApplied, events.OrderCreated{Transaction: record, Payload: evt.Payload}, nil
}

func (s *Service) subscriptionCreated(ctx context.Context, tx *gorm.DB, _ domain.Delivery, evt domain.Event) (domain.Outcome, events.Event, error) {
	data := evt.Data

	customer, outcome, err := s.resolve(ctx, tx, data)
	if customer == nil {
		return outcome, nil, err
	}

	status := subscriptiondomain.MapStatus(domain.String(data, "status"))
	subscription, err := s.upsertSubscription(ctx, tx, customer.ID, data, status, domain.Time(data, "current_period_end"))
	if err != nil {
		return "", nil, err
	}
	if err := s.upsertItem(ctx, tx, subscription, data, string(status)); err != nil {
		return "", nil, err
	}

	s.metrics.RecordSubscriptionSync(ctx, string(status))
	return domain.OutcomeApplied, events.SubscriptionCreated{Subscription: *subscription, Payload: evt.Payload}, nil
}

func (s *Service) subscriptionActive(ctx context.Context, tx *gorm.DB, delivery domain.Delivery, evt domain.Event) (domain.Outcome, events.Event, error) {
	data := evt.Data

	customer, outcome, err := s.resolve(ctx, tx, data)
	if customer == nil {
		return outcome, nil, err
	}

	subscription, err := s.upsertSubscription(ctx, tx, customer.ID, data, subscriptiondomain.StatusActive, domain.Time(data, "current_period_end"))
	if err != nil {
		return "", nil, err
	}
	if err := s.upsertItem(ctx, tx, subscription, data, string(subscriptiondomain.StatusActive)); err != nil {
		return "", nil, err
	}
	if err := s.recordSubscriptionCharge(ctx, tx, customer.ID, data, delivery); err != nil {
		return "", nil, err
	}

	s.metrics.RecordSubscriptionSync(ctx, string(subscriptiondomain.StatusActive))
	return domain.OutcomeApplied, events.SubscriptionActive{Subscription: *subscription, Payload: evt.Payload}, nil
}

func (s *Service) subscriptionUpdated(ctx context.Context, tx *gorm.DB, delivery domain.Delivery, evt domain.Event) (domain.Outcome, events.Event, error) {
	data := evt.Data

	customer, outcome, err := s.resolve(ctx, tx, data)
	if customer == nil {
		return outcome, nil, err
	}

	status := subscriptiondomain.MapStatus(domain.String(data, "status"))
	var endsAt *time.Time
	if domain.Bool(data, "cancel_at_period_end") {
		endsAt = domain.Time(data, "current_period_end")
	}
	subscription, err := s.upsertSubscription(ctx, tx, customer.ID, data, status, endsAt)
	if err != nil {
		return "", nil, err
	}
	if err := s.upsertItem(ctx, tx, subscription, data, string(status)); err != nil {
		return "", nil, err
	}

	// Only record a charge when the payload carries an amount; plain
	// metadata updates do not bill anything.
	if hasAmount(data) {
		if err := s.recordSubscriptionCharge(ctx, tx, customer.ID, data, delivery); err != nil {
			return "", nil, err
		}
	}

	s.metrics.RecordSubscriptionSync(ctx, string(status))
	return domain.OutcomeApplied, events.SubscriptionUpdated{Subscription: *subscription, Payload: evt.Payload}, nil
}

func (s *Service) subscriptionCanceled(ctx context.Context, tx *gorm.DB, _ domain.Delivery, evt domain.Event) (domain.Outcome, events.Event, error) {
	data := evt.Data

	customer, outcome, err := s.resolve(ctx, tx, data)
	if customer == nil {
		return outcome, nil, err
	}

	now := s.clock.Now()
	endsAt := domain.Time(data, "current_period_end")
	if endsAt == nil {
		endsAt = &now
	}
	subscription, err := s.upsertSubscription(ctx, tx, customer.ID, data, subscriptiondomain.StatusCanceled, endsAt)
	if err != nil {
		return "", nil, err
	}

	s.metrics.RecordSubscriptionSync(ctx, string(subscriptiondomain.StatusCanceled))
	return domain.OutcomeApplied, events.SubscriptionCanceled{Subscription: *subscription, Payload: evt.Payload}, nil
}

func (s *Service) subscriptionRevoked(ctx context.Context, tx *gorm.DB, _ domain.Delivery, evt domain.Event) (domain.Outcome, events.Event, error) {
	data := evt.Data

	customer, outcome, err := s.resolve(ctx, tx, data)
	if customer == nil {
		return outcome, nil, err
	}

	now := s.clock.Now()
	subscription, err := s.upsertSubscription(ctx, tx, customer.ID, data, subscriptiondomain.StatusRevoked, &now)
	if err != nil {
		return "", nil, err
	}

	s.metrics.RecordSubscriptionSync(ctx, string(subscriptiondomain.StatusRevoked))
	return domain.OutcomeApplied, events.SubscriptionRevoked{Subscription: *subscription, Payload: evt.Payload}, nil
}

// resolve finds or provisions the owning customer. A nil customer with a
// nil error means the delivery is acknowledged but skipped.
func (s *Service) resolve(ctx context.Context, tx *gorm.DB, data map[string]any) (*customerdomain.Customer, domain.Outcome, error) {
	customer, err := s.resolver.Resolve(ctx, tx, data)
	if err != nil {
		if errors.Is(err, billable.ErrNoBillable) {
			return nil, domain.OutcomeSkipped, nil
		}
		return nil, "", err
	}
	return customer, domain.OutcomeApplied, nil
}

func (s *Service) upsertSubscription(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, data map[string]any, status subscriptiondomain.Status, endsAt *time.Time) (*subscriptiondomain.Subscription, error) {
	polarID := domain.String(data, "id")
	if polarID == "" {
		return nil, domain.ErrInvalidPayload
	}

	now := s.clock.Now()
	subscription := subscriptiondomain.Subscription{
		ID:                 s.genID.Generate(),
		CustomerID:         customerID,
		Type:               billable.DefaultSubscriptionType,
		PolarID:            polarID,
		Status:             status,
		CurrentPeriodStart: domain.Time(data, "current_period_start"),
		CurrentPeriodEnd:   domain.Time(data, "current_period_end"),
		StartedAt:          domain.Time(data, "started_at"),
		TrialEndsAt:        domain.Time(data, "trial_ends_at"),
		EndsAt:             endsAt,
		CancelAtPeriodEnd:  domain.Bool(data, "cancel_at_period_end"),
		Metadata:           datatypes.JSONMap{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.subscriptions.Upsert(ctx, tx, &subscription); err != nil {
		return nil, err
	}

	stored, err := s.subscriptions.FindByPolarID(ctx, tx, polarID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}
	return &subscription, nil
}

func (s *Service) upsertItem(ctx context.Context, tx *gorm.DB, subscription *subscriptiondomain.Subscription, data map[string]any, status string) error {
	priceID := domain.String(data, "price_id")
	if priceID == "" {
		return nil
	}

	price := domain.Map(data, "price")
	product := domain.Map(data, "product")

	currency := domain.String(price, "currency")
	if currency == "" {
		currency = domain.String(data, "currency")
	}
	amount := domain.Int64(price, "amount")
	if amount == 0 {
		amount = domain.Int64(data, "amount")
	}

	now := s.clock.Now()
	item := subscriptiondomain.SubscriptionItem{
		ID:                 s.genID.Generate(),
		SubscriptionID:     subscription.ID,
		ProductID:          domain.String(data, "product_id"),
		ProductName:        domain.String(product, "name"),
		ProductDescription: domain.String(product, "description"),
		PriceID:            priceID,
		PriceCurrency:      currency,
		PriceAmount:        amount,
		RecurringInterval:  domain.String(data, "recurring_interval"),
		IsRecurring:        domain.Bool(product, "is_recurring"),
		Status:             status,
		Quantity:           1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return s.subscriptions.UpsertItem(ctx, tx, &item)
}

// recordSubscriptionCharge writes one transaction per delivery for a
// recurring charge. The dedup key pairs the subscription ID with the
// delivery timestamp so a redelivered event updates the same row instead
// of double-billing.
func (s *Service) recordSubscriptionCharge(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, data map[string]any, delivery domain.Delivery) error {
	subscriptionID := domain.String(data, "id")
	if subscriptionID == "" {
		return domain.ErrInvalidPayload
	}

	price := domain.Map(data, "price")
	amount := domain.Int64(price, "amount")
	if amount == 0 {
		amount = domain.Int64(data, "amount")
	}
	currency := domain.String(price, "currency")
	if currency == "" {
		currency = domain.String(data, "currency")
	}

	now := s.clock.Now()
	record := transactiondomain.Transaction{
		ID:                  s.genID.Generate(),
		CustomerID:          customerID,
		PolarID:             subscriptionID + "_" + s.timestampKey(delivery),
		PolarSubscriptionID: subscriptionID,
		Status:              "completed",
		Currency:            currency,
		Total:               amount,
		Tax:                 domain.Int64(data, "tax_amount"),
		BilledAt:            &now,
		Metadata:            datatypes.JSONMap{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.transactions.Upsert(ctx, tx, &record); err != nil {
		return err
	}

	s.metrics.RecordTransaction(ctx, record.Status)
	return nil
}

func (s *Service) timestampKey(delivery domain.Delivery) string {
	if delivery.Timestamp != "" {
		return delivery.Timestamp
	}
	return strconv.FormatInt(s.clock.Now().Unix(), 10)
}

func hasAmount(data map[string]any) bool {
	if _, ok := data["amount"]; ok {
		return true
	}
	_, ok := domain.Map(data, "price")["amount"]
	return ok
}
