package domain

import (
	"context"
	"errors"
)

type UpsertCustomerRequest struct {
	BillableType string         `json:"billable_type"`
	BillableID   string         `json:"billable_id"`
	PolarID      string         `json:"polar_id"`
	Name         string         `json:"name,omitempty"`
	Email        string         `json:"email,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type Service interface {
	Upsert(ctx context.Context, req UpsertCustomerRequest) (Customer, error)
	GetByPolarID(ctx context.Context, polarID string) (Customer, error)
	GetByBillable(ctx context.Context, billableType, billableID string) (Customer, error)
}

var (
	ErrNotFound        = errors.New("customer_not_found")
	ErrInvalidPolarID  = errors.New("invalid_polar_id")
	ErrInvalidBillable = errors.New("invalid_billable")
)
