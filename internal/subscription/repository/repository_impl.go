package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/solvance/cashier-polar/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, customer_id, type, polar_id, status,
			current_period_start, current_period_end, started_at,
			trial_ends_at, ends_at, cancel_at_period_end, metadata,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (polar_id) DO UPDATE SET
			customer_id = excluded.customer_id,
			type = excluded.type,
			status = excluded.status,
			current_period_start = excluded.current_period_start,
			current_period_end = excluded.current_period_end,
			started_at = excluded.started_at,
			trial_ends_at = excluded.trial_ends_at,
			ends_at = excluded.ends_at,
			cancel_at_period_end = excluded.cancel_at_period_end,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		subscription.ID,
		subscription.CustomerID,
		subscription.Type,
		subscription.PolarID,
		subscription.Status,
		subscription.CurrentPeriodStart,
		subscription.CurrentPeriodEnd,
		subscription.StartedAt,
		subscription.TrialEndsAt,
		subscription.EndsAt,
		subscription.CancelAtPeriodEnd,
		subscription.Metadata,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET
			status = ?,
			current_period_start = ?,
			current_period_end = ?,
			trial_ends_at = ?,
			ends_at = ?,
			cancel_at_period_end = ?,
			updated_at = ?
		 WHERE id = ?`,
		subscription.Status,
		subscription.CurrentPeriodStart,
		subscription.CurrentPeriodEnd,
		subscription.TrialEndsAt,
		subscription.EndsAt,
		subscription.CancelAtPeriodEnd,
		subscription.UpdatedAt,
		subscription.ID,
	).Error
}

func (r *repo) UpsertItem(ctx context.Context, db *gorm.DB, item *domain.SubscriptionItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscription_items (
			id, subscription_id, product_id, product_name, product_description,
			price_id, price_currency, price_amount, recurring_interval,
			is_recurring, status, quantity, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subscription_id, price_id) DO UPDATE SET
			product_id = excluded.product_id,
			product_name = excluded.product_name,
			product_description = excluded.product_description,
			price_currency = excluded.price_currency,
			price_amount = excluded.price_amount,
			recurring_interval = excluded.recurring_interval,
			is_recurring = excluded.is_recurring,
			status = excluded.status,
			quantity = excluded.quantity,
			updated_at = excluded.updated_at`,
		item.ID,
		item.SubscriptionID,
		item.ProductID,
		item.ProductName,
		item.ProductDescription,
		item.PriceID,
		item.PriceCurrency,
		item.PriceAmount,
		item.RecurringInterval,
		item.IsRecurring,
		item.Status,
		item.Quantity,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) FindByPolarID(ctx context.Context, db *gorm.DB, polarID string) (*domain.Subscription, error) {
	var subscription domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, type, polar_id, status,
			current_period_start, current_period_end, started_at,
			trial_ends_at, ends_at, cancel_at_period_end, metadata,
			created_at, updated_at
		 FROM subscriptions WHERE polar_id = ? LIMIT 1`,
		polarID,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) FindByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID, subType string) (*domain.Subscription, error) {
	var subscription domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, type, polar_id, status,
			current_period_start, current_period_end, started_at,
			trial_ends_at, ends_at, cancel_at_period_end, metadata,
			created_at, updated_at
		 FROM subscriptions
		 WHERE customer_id = ? AND type = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		customerID,
		subType,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]domain.Subscription, error) {
	var subscriptions []domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, type, polar_id, status,
			current_period_start, current_period_end, started_at,
			trial_ends_at, ends_at, cancel_at_period_end, metadata,
			created_at, updated_at
		 FROM subscriptions
		 WHERE customer_id = ?
		 ORDER BY created_at DESC, id DESC`,
		customerID,
	).Scan(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]domain.SubscriptionItem, error) {
	var items []domain.SubscriptionItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, subscription_id, product_id, product_name, product_description,
			price_id, price_currency, price_amount, recurring_interval,
			is_recurring, status, quantity, created_at, updated_at
		 FROM subscription_items
		 WHERE subscription_id = ?
		 ORDER BY created_at ASC, id ASC`,
		subscriptionID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
