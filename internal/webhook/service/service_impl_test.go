package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/solvance/cashier-polar/internal/billable"
	"github.com/solvance/cashier-polar/internal/clock"
	customerdomain "github.com/solvance/cashier-polar/internal/customer/domain"
	customerrepo "github.com/solvance/cashier-polar/internal/customer/repository"
	"github.com/solvance/cashier-polar/internal/events"
	"github.com/solvance/cashier-polar/internal/observability/metrics"
	subscriptiondomain "github.com/solvance/cashier-polar/internal/subscription/domain"
	subscriptionrepo "github.com/solvance/cashier-polar/internal/subscription/repository"
	transactionrepo "github.com/solvance/cashier-polar/internal/transaction/repository"
	webhookdomain "github.com/solvance/cashier-polar/internal/webhook/domain"
	webhookservice "github.com/solvance/cashier-polar/internal/webhook/service"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE customers (
			id BIGINT PRIMARY KEY,
			billable_type TEXT NOT NULL,
			billable_id TEXT NOT NULL,
			polar_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (billable_type, billable_id)
		)`,
		`CREATE TABLE subscriptions (
			id BIGINT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			type TEXT NOT NULL DEFAULT 'default',
			polar_id TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			current_period_start TIMESTAMP,
			current_period_end TIMESTAMP,
			started_at TIMESTAMP,
			trial_ends_at TIMESTAMP,
			ends_at TIMESTAMP,
			cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE subscription_items (
			id BIGINT PRIMARY KEY,
			subscription_id BIGINT NOT NULL,
			product_id TEXT NOT NULL DEFAULT '',
			product_name TEXT NOT NULL DEFAULT '',
			product_description TEXT NOT NULL DEFAULT '',
			price_id TEXT NOT NULL,
			price_currency TEXT NOT NULL DEFAULT '',
			price_amount BIGINT NOT NULL DEFAULT 0,
			recurring_interval TEXT NOT NULL DEFAULT '',
			is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
			status TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (subscription_id, price_id)
		)`,
		`CREATE TABLE transactions (
			id BIGINT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			polar_id TEXT NOT NULL UNIQUE,
			polar_subscription_id TEXT NOT NULL DEFAULT '',
			checkout_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			currency TEXT NOT NULL DEFAULT '',
			total BIGINT NOT NULL DEFAULT 0,
			tax BIGINT NOT NULL DEFAULT 0,
			billed_at TIMESTAMP,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, clk clock.Clock) *webhookservice.Service {
	svc, _ := newTestServiceWithDispatcher(t, db, clk)
	return svc
}

func newTestServiceWithDispatcher(t *testing.T, db *gorm.DB, clk clock.Clock) (*webhookservice.Service, *events.Dispatcher) {
	t.Helper()

	node, err := snowflake.NewNode(20)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	m, err := metrics.New(metrics.Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	resolver := billable.NewResolver(billable.ResolverParams{
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Registry:  billable.NewRegistry(),
		Customers: customerrepo.Provide(),
	})

	dispatcher := events.New(zap.NewNop())
	svc := webhookservice.New(webhookservice.Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clk,
		Resolver:      resolver,
		Subscriptions: subscriptionrepo.Provide(),
		Transactions:  transactionrepo.Provide(),
		Dispatcher:    dispatcher,
		Metrics:       m,
	})
	return svc, dispatcher
}

func deliver(t *testing.T, svc *webhookservice.Service, id, timestamp, body string) webhookdomain.Outcome {
	t.Helper()

	outcome, err := svc.Handle(context.Background(), webhookdomain.Delivery{
		ID:        id,
		Timestamp: timestamp,
		Body:      []byte(body),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	return outcome
}

func countRows(t *testing.T, db *gorm.DB, table string) int {
	t.Helper()

	var count int
	if err := db.Raw("SELECT COUNT(*) FROM " + table).Scan(&count).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}

func subscriptionPayload(eventType, subID, status string) string {
	return fmt.Sprintf(`{
		"type": %q,
		"data": {
			"id": %q,
			"customer_id": "cus_1",
			"status": %q,
			"product_id": "prod_1",
			"price_id": "price_1",
			"amount": 990,
			"currency": "usd",
			"recurring_interval": "month",
			"current_period_start": "2026-01-01T00:00:00Z",
			"current_period_end": "2026-02-01T00:00:00Z",
			"started_at": "2026-01-01T00:00:00Z",
			"product": {"name": "Pro", "description": "Pro plan", "is_recurring": true},
			"price": {"amount": 990, "currency": "usd"},
			"metadata": {"billable_type": "user", "billable_id": "42"}
		}
	}`, eventType, subID, status)
}

func TestSubscriptionCreatedProvisionsCustomerAndItem(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	outcome := deliver(t, svc, "wh_1", "1767441600", subscriptionPayload("subscription.created", "sub_1", "trialing"))
	if outcome != webhookdomain.OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", outcome)
	}

	if got := countRows(t, db, "customers"); got != 1 {
		t.Fatalf("customers = %d, want 1", got)
	}
	if got := countRows(t, db, "subscriptions"); got != 1 {
		t.Fatalf("subscriptions = %d, want 1", got)
	}
	if got := countRows(t, db, "subscription_items"); got != 1 {
		t.Fatalf("subscription_items = %d, want 1", got)
	}

	stored, err := subscriptionrepo.Provide().FindByPolarID(context.Background(), db, "sub_1")
	if err != nil {
		t.Fatalf("find subscription: %v", err)
	}
	if stored == nil {
		t.Fatal("subscription not stored")
	}
	if stored.Status != subscriptiondomain.StatusTrialing {
		t.Fatalf("status = %s, want trialing", stored.Status)
	}
	if stored.Type != "default" {
		t.Fatalf("type = %s, want default", stored.Type)
	}
	if stored.CurrentPeriodEnd == nil || !stored.CurrentPeriodEnd.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("current_period_end = %v", stored.CurrentPeriodEnd)
	}
}

func TestSubscriptionCreatedIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	payload := subscriptionPayload("subscription.created", "sub_1", "active")
	deliver(t, svc, "wh_1", "1767441600", payload)
	deliver(t, svc, "wh_1", "1767441600", payload)

	if got := countRows(t, db, "customers"); got != 1 {
		t.Fatalf("customers = %d, want 1", got)
	}
	if got := countRows(t, db, "subscriptions"); got != 1 {
		t.Fatalf("subscriptions = %d, want 1", got)
	}
	if got := countRows(t, db, "subscription_items"); got != 1 {
		t.Fatalf("subscription_items = %d, want 1", got)
	}
}

func TestSubscriptionActiveRecordsChargeOnce(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	payload := subscriptionPayload("subscription.active", "sub_1", "active")
	deliver(t, svc, "wh_1", "1767441600", payload)
	deliver(t, svc, "wh_1", "1767441600", payload)

	if got := countRows(t, db, "transactions"); got != 1 {
		t.Fatalf("transactions = %d, want 1", got)
	}

	record, err := transactionrepo.Provide().FindByPolarID(context.Background(), db, "sub_1_1767441600")
	if err != nil {
		t.Fatalf("find transaction: %v", err)
	}
	if record == nil {
		t.Fatal("charge not recorded under subscription+timestamp key")
	}
	if record.Status != "completed" {
		t.Fatalf("status = %s, want completed", record.Status)
	}
	if record.Total != 990 {
		t.Fatalf("total = %d, want 990", record.Total)
	}

	// A renewal arrives with a fresh delivery timestamp and bills again.
	deliver(t, svc, "wh_2", "1770120000", payload)
	if got := countRows(t, db, "transactions"); got != 2 {
		t.Fatalf("transactions = %d, want 2", got)
	}
}

func TestSubscriptionUpdatedWithoutAmountDoesNotBill(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	payload := `{
		"type": "subscription.updated",
		"data": {
			"id": "sub_1",
			"customer_id": "cus_1",
			"status": "active",
			"price_id": "price_1",
			"current_period_end": "2026-02-01T00:00:00Z",
			"metadata": {"billable_type": "user", "billable_id": "42"}
		}
	}`
	outcome := deliver(t, svc, "wh_1", "1767441600", payload)
	if outcome != webhookdomain.OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", outcome)
	}

	if got := countRows(t, db, "transactions"); got != 0 {
		t.Fatalf("transactions = %d, want 0", got)
	}

	stored, err := subscriptionrepo.Provide().FindByPolarID(context.Background(), db, "sub_1")
	if err != nil {
		t.Fatalf("find subscription: %v", err)
	}
	if stored.EndsAt != nil {
		t.Fatalf("ends_at = %v, want nil without pending cancellation", stored.EndsAt)
	}
}

func TestSubscriptionUpdatedWithPendingCancellation(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	payload := `{
		"type": "subscription.updated",
		"data": {
			"id": "sub_1",
			"customer_id": "cus_1",
			"status": "active",
			"cancel_at_period_end": true,
			"current_period_end": "2026-02-01T00:00:00Z",
			"metadata": {"billable_type": "user", "billable_id": "42"}
		}
	}`
	deliver(t, svc, "wh_1", "1767441600", payload)

	stored, err := subscriptionrepo.Provide().FindByPolarID(context.Background(), db, "sub_1")
	if err != nil {
		t.Fatalf("find subscription: %v", err)
	}
	if !stored.CancelAtPeriodEnd {
		t.Fatal("cancel_at_period_end not set")
	}
	if stored.EndsAt == nil || !stored.EndsAt.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ends_at = %v, want period end", stored.EndsAt)
	}
}

func TestSubscriptionCanceledSetsStatusAndGracePeriod(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc, dispatcher := newTestServiceWithDispatcher(t, db, clk)

	var canceledFired int
	dispatcher.Subscribe("subscription.canceled", func(ctx context.Context, evt events.Event) {
		notification, ok := evt.(events.SubscriptionCanceled)
		if !ok {
			t.Errorf("event = %T, want SubscriptionCanceled", evt)
			return
		}
		if notification.Subscription.PolarID != "sub_1" {
			t.Errorf("notification polar_id = %s", notification.Subscription.PolarID)
		}
		canceledFired++
	})

	deliver(t, svc, "wh_1", "1767441600", subscriptionPayload("subscription.created", "sub_1", "active"))
	deliver(t, svc, "wh_2", "1767445200", subscriptionPayload("subscription.canceled", "sub_1", "active"))

	if canceledFired != 1 {
		t.Fatalf("canceled notifications = %d, want 1", canceledFired)
	}

	stored, err := subscriptionrepo.Provide().FindByPolarID(context.Background(), db, "sub_1")
	if err != nil {
		t.Fatalf("find subscription: %v", err)
	}
	if stored.Status != subscriptiondomain.StatusCanceled {
		t.Fatalf("status = %s, want canceled", stored.Status)
	}
	if stored.EndsAt == nil || !stored.EndsAt.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ends_at = %v, want period end", stored.EndsAt)
	}
	if !stored.OnGracePeriod(clk.Now()) {
		t.Fatal("expected grace period until period end")
	}

	clk.Advance(30 * 24 * time.Hour)
	if stored.OnGracePeriod(clk.Now()) {
		t.Fatal("grace period should lapse after period end")
	}
}

func TestSubscriptionRevokedEndsImmediately(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	svc := newTestService(t, db, clk)

	deliver(t, svc, "wh_1", "1767441600", subscriptionPayload("subscription.revoked", "sub_1", "active"))

	stored, err := subscriptionrepo.Provide().FindByPolarID(context.Background(), db, "sub_1")
	if err != nil {
		t.Fatalf("find subscription: %v", err)
	}
	if stored.Status != subscriptiondomain.StatusRevoked {
		t.Fatalf("status = %s, want revoked", stored.Status)
	}
	if stored.EndsAt == nil || !stored.EndsAt.Equal(now) {
		t.Fatalf("ends_at = %v, want %v", stored.EndsAt, now)
	}
	if stored.Valid(clk.Now()) {
		t.Fatal("revoked subscription must not be valid")
	}
}

func TestCheckoutLifecycle(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	created := `{
		"type": "checkout.created",
		"data": {
			"id": "chk_1",
			"customer_id": "cus_1",
			"status": "open",
			"currency": "usd",
			"total_amount": 1200,
			"tax_amount": 200,
			"metadata": {"billable_type": "user", "billable_id": "42"}
		}
	}`
	deliver(t, svc, "wh_1", "1767441600", created)

	record, err := transactionrepo.Provide().FindByPolarID(context.Background(), db, "chk_1")
	if err != nil {
		t.Fatalf("find transaction: %v", err)
	}
	if record == nil {
		t.Fatal("checkout transaction not recorded")
	}
	if record.Total != 1200 || record.Tax != 200 {
		t.Fatalf("total/tax = %d/%d, want 1200/200", record.Total, record.Tax)
	}

	updated := `{
		"type": "checkout.updated",
		"data": {
			"id": "chk_1",
			"customer_id": "cus_1",
			"status": "succeeded",
			"metadata": {"billable_type": "user", "billable_id": "42"}
		}
	}`
	deliver(t, svc, "wh_2", "1767445200", updated)

	record, err = transactionrepo.Provide().FindByPolarID(context.Background(), db, "chk_1")
	if err != nil {
		t.Fatalf("find transaction: %v", err)
	}
	if record.Status != "succeeded" {
		t.Fatalf("status = %s, want succeeded", record.Status)
	}
}

func TestCheckoutUpdatedWithoutTransactionIsSkipped(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	payload := `{
		"type": "checkout.updated",
		"data": {
			"id": "chk_missing",
			"customer_id": "cus_1",
			"status": "succeeded",
			"metadata": {"billable_type": "user", "billable_id": "42"}
		}
	}`
	outcome := deliver(t, svc, "wh_1", "1767441600", payload)
	if outcome != webhookdomain.OutcomeSkipped {
		t.Fatalf("outcome = %s, want skipped", outcome)
	}
	if got := countRows(t, db, "transactions"); got != 0 {
		t.Fatalf("transactions = %d, want 0", got)
	}
}

func TestOrderCreatedRecordsCompletedTransaction(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	payload := `{
		"type": "order.created",
		"data": {
			"id": "ord_1",
			"customer_id": "cus_1",
			"subscription_id": "sub_1",
			"checkout_id": "chk_1",
			"amount": 990,
			"tax_amount": 90,
			"currency": "usd",
			"created_at": "2026-01-10T08:30:00Z",
			"billing_reason": "subscription_cycle",
			"metadata": {"billable_type": "user", "billable_id": "42"}
		}
	}`
	deliver(t, svc, "wh_1", "1767441600", payload)

	record, err := transactionrepo.Provide().FindByPolarID(context.Background(), db, "ord_1")
	if err != nil {
		t.Fatalf("find transaction: %v", err)
	}
	if record == nil {
		t.Fatal("order transaction not recorded")
	}
	if record.Status != "completed" {
		t.Fatalf("status = %s, want completed", record.Status)
	}
	if record.PolarSubscriptionID != "sub_1" {
		t.Fatalf("polar_subscription_id = %s, want sub_1", record.PolarSubscriptionID)
	}
	if record.BilledAt == nil || !record.BilledAt.Equal(time.Date(2026, 1, 10, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("billed_at = %v, want order created_at", record.BilledAt)
	}
}

func TestUnknownEventTypeIsAcknowledged(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc, dispatcher := newTestServiceWithDispatcher(t, db, clk)

	var notified int
	for _, name := range []string{
		"webhook.handled", "checkout.created", "checkout.updated", "order.created",
		"subscription.created", "subscription.active", "subscription.updated",
		"subscription.canceled", "subscription.revoked",
	} {
		dispatcher.Subscribe(name, func(ctx context.Context, evt events.Event) {
			notified++
		})
	}

	outcome := deliver(t, svc, "wh_1", "1767441600", `{"type": "benefit.granted", "data": {"id": "ben_1"}}`)
	if outcome != webhookdomain.OutcomeUnknown {
		t.Fatalf("outcome = %s, want unknown_type", outcome)
	}
	if notified != 0 {
		t.Fatalf("notifications = %d, want 0 for unknown type", notified)
	}
	for _, table := range []string{"customers", "subscriptions", "subscription_items", "transactions"} {
		if got := countRows(t, db, table); got != 0 {
			t.Fatalf("%s = %d, want 0", table, got)
		}
	}
}

func TestResolveFallsBackToCustomerTable(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	// Link the customer first through a metadata-stamped event.
	deliver(t, svc, "wh_1", "1767441600", subscriptionPayload("subscription.created", "sub_1", "active"))

	// A later event without metadata still resolves through polar customer_id.
	payload := `{
		"type": "subscription.updated",
		"data": {
			"id": "sub_1",
			"customer_id": "cus_1",
			"status": "past_due",
			"current_period_end": "2026-02-01T00:00:00Z"
		}
	}`
	outcome := deliver(t, svc, "wh_2", "1767445200", payload)
	if outcome != webhookdomain.OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", outcome)
	}

	stored, err := subscriptionrepo.Provide().FindByPolarID(context.Background(), db, "sub_1")
	if err != nil {
		t.Fatalf("find subscription: %v", err)
	}
	if stored.Status != subscriptiondomain.StatusPastDue {
		t.Fatalf("status = %s, want past_due", stored.Status)
	}
	if got := countRows(t, db, "customers"); got != 1 {
		t.Fatalf("customers = %d, want 1", got)
	}
}

func TestUnresolvedBillableIsSkipped(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	payload := `{
		"type": "subscription.created",
		"data": {
			"id": "sub_orphan",
			"customer_id": "cus_unknown",
			"status": "active"
		}
	}`
	outcome := deliver(t, svc, "wh_1", "1767441600", payload)
	if outcome != webhookdomain.OutcomeSkipped {
		t.Fatalf("outcome = %s, want skipped", outcome)
	}
	if got := countRows(t, db, "subscriptions"); got != 0 {
		t.Fatalf("subscriptions = %d, want 0", got)
	}
}

func TestItemUpsertConvergesByPrice(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	deliver(t, svc, "wh_1", "1767441600", subscriptionPayload("subscription.created", "sub_1", "active"))
	deliver(t, svc, "wh_2", "1767445200", subscriptionPayload("subscription.updated", "sub_1", "active"))
	if got := countRows(t, db, "subscription_items"); got != 1 {
		t.Fatalf("subscription_items = %d, want 1 after same-price update", got)
	}

	changed := `{
		"type": "subscription.updated",
		"data": {
			"id": "sub_1",
			"customer_id": "cus_1",
			"status": "active",
			"product_id": "prod_2",
			"price_id": "price_2",
			"price": {"amount": 1990, "currency": "usd"},
			"product": {"name": "Business", "is_recurring": true},
			"metadata": {"billable_type": "user", "billable_id": "42"}
		}
	}`
	deliver(t, svc, "wh_3", "1767448800", changed)
	if got := countRows(t, db, "subscription_items"); got != 2 {
		t.Fatalf("subscription_items = %d, want 2 after price change", got)
	}
}

func TestLinkedBillableKeepsItsCustomerRow(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	node, err := snowflake.NewNode(21)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	seeded := customerdomain.Customer{
		ID:           node.Generate(),
		BillableType: "user",
		BillableID:   "42",
		PolarID:      "cus_old",
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    clk.Now(),
		UpdatedAt:    clk.Now(),
	}
	if err := customerrepo.Provide().Upsert(context.Background(), db, &seeded); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	// The payload names the same account under a different provider
	// customer id. The existing link must win; a blind insert would
	// collide on the billable pair and poison the delivery.
	outcome := deliver(t, svc, "wh_1", "1767441600", subscriptionPayload("subscription.created", "sub_1", "active"))
	if outcome != webhookdomain.OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", outcome)
	}

	if got := countRows(t, db, "customers"); got != 1 {
		t.Fatalf("customers = %d, want 1", got)
	}
	owner, err := customerrepo.Provide().FindByBillable(context.Background(), db, "user", "42")
	if err != nil {
		t.Fatalf("find customer: %v", err)
	}
	if owner.PolarID != "cus_old" {
		t.Fatalf("polar_id = %s, want cus_old", owner.PolarID)
	}

	stored, err := subscriptionrepo.Provide().FindByPolarID(context.Background(), db, "sub_1")
	if err != nil {
		t.Fatalf("find subscription: %v", err)
	}
	if stored == nil || stored.CustomerID != seeded.ID {
		t.Fatalf("subscription not attached to the existing customer")
	}
}

func TestMetadataWithoutCustomerIDIsSkippedForNewAccount(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	payload := `{
		"type": "subscription.created",
		"data": {
			"id": "sub_1",
			"status": "active",
			"metadata": {"billable_type": "user", "billable_id": "42"}
		}
	}`
	outcome := deliver(t, svc, "wh_1", "1767441600", payload)
	if outcome != webhookdomain.OutcomeSkipped {
		t.Fatalf("outcome = %s, want skipped", outcome)
	}
	if got := countRows(t, db, "customers"); got != 0 {
		t.Fatalf("customers = %d, want 0", got)
	}
}
