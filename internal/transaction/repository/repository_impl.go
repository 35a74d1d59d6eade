package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/solvance/cashier-polar/internal/transaction/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, transaction *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, customer_id, polar_id, polar_subscription_id, checkout_id,
			status, currency, total, tax, billed_at, metadata,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (polar_id) DO UPDATE SET
			polar_subscription_id = excluded.polar_subscription_id,
			checkout_id = excluded.checkout_id,
			status = excluded.status,
			currency = excluded.currency,
			total = excluded.total,
			tax = excluded.tax,
			billed_at = excluded.billed_at,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		transaction.ID,
		transaction.CustomerID,
		transaction.PolarID,
		transaction.PolarSubscriptionID,
		transaction.CheckoutID,
		transaction.Status,
		transaction.Currency,
		transaction.Total,
		transaction.Tax,
		transaction.BilledAt,
		transaction.Metadata,
		transaction.CreatedAt,
		transaction.UpdatedAt,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE transactions SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		updatedAt,
		id,
	).Error
}

func (r *repo) FindByPolarID(ctx context.Context, db *gorm.DB, polarID string) (*domain.Transaction, error) {
	var transaction domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, polar_id, polar_subscription_id, checkout_id,
			status, currency, total, tax, billed_at, metadata, created_at, updated_at
		 FROM transactions WHERE polar_id = ? LIMIT 1`,
		polarID,
	).Scan(&transaction).Error
	if err != nil {
		return nil, err
	}
	if transaction.ID == 0 {
		return nil, nil
	}
	return &transaction, nil
}

func (r *repo) FindByCheckoutID(ctx context.Context, db *gorm.DB, customerID snowflake.ID, checkoutID string) (*domain.Transaction, error) {
	var transaction domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, polar_id, polar_subscription_id, checkout_id,
			status, currency, total, tax, billed_at, metadata, created_at, updated_at
		 FROM transactions WHERE customer_id = ? AND checkout_id = ? LIMIT 1`,
		customerID,
		checkoutID,
	).Scan(&transaction).Error
	if err != nil {
		return nil, err
	}
	if transaction.ID == 0 {
		return nil, nil
	}
	return &transaction, nil
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, polar_id, polar_subscription_id, checkout_id,
			status, currency, total, tax, billed_at, metadata, created_at, updated_at
		 FROM transactions
		 WHERE customer_id = ?
		 ORDER BY billed_at DESC, id DESC`,
		customerID,
	).Scan(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}
