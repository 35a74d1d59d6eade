package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Upsert inserts the subscription or refreshes the existing row keyed
	// by polar_id.
	Upsert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	Update(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	// UpsertItem inserts the item or refreshes the existing row keyed by
	// (subscription_id, price_id).
	UpsertItem(ctx context.Context, db *gorm.DB, item *SubscriptionItem) error
	FindByPolarID(ctx context.Context, db *gorm.DB, polarID string) (*Subscription, error)
	FindByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID, subType string) (*Subscription, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]Subscription, error)
	ListItems(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]SubscriptionItem, error)
}
