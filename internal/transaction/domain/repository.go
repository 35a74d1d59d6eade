package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Upsert inserts the transaction or refreshes the existing row keyed
	// by polar_id, so redelivered events converge on one record.
	Upsert(ctx context.Context, db *gorm.DB, transaction *Transaction) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, updatedAt time.Time) error
	FindByPolarID(ctx context.Context, db *gorm.DB, polarID string) (*Transaction, error)
	FindByCheckoutID(ctx context.Context, db *gorm.DB, customerID snowflake.ID, checkoutID string) (*Transaction, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]Transaction, error)
}
