package repository

import (
	"context"

	"github.com/solvance/cashier-polar/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, billable_type, billable_id, polar_id, name, email, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (polar_id) DO UPDATE SET
			billable_type = excluded.billable_type,
			billable_id = excluded.billable_id,
			name = excluded.name,
			email = excluded.email,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		customer.ID,
		customer.BillableType,
		customer.BillableID,
		customer.PolarID,
		customer.Name,
		customer.Email,
		customer.Metadata,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByPolarID(ctx context.Context, db *gorm.DB, polarID string) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, billable_type, billable_id, polar_id, name, email, metadata, created_at, updated_at
		 FROM customers WHERE polar_id = ? LIMIT 1`,
		polarID,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) FindByBillable(ctx context.Context, db *gorm.DB, billableType, billableID string) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, billable_type, billable_id, polar_id, name, email, metadata, created_at, updated_at
		 FROM customers WHERE billable_type = ? AND billable_id = ? LIMIT 1`,
		billableType,
		billableID,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}
