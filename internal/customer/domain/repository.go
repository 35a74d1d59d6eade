package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Upsert inserts the customer or, when the polar_id already exists,
	// re-points the row at the incoming billable and refreshes profile fields.
	Upsert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByPolarID(ctx context.Context, db *gorm.DB, polarID string) (*Customer, error)
	FindByBillable(ctx context.Context, db *gorm.DB, billableType, billableID string) (*Customer, error)
}
