package domain

import (
	"context"
	"errors"
)

type Service interface {
	GetByPolarID(ctx context.Context, polarID string) (Subscription, error)
	// Detail includes the synced items for product and price accessors.
	Detail(ctx context.Context, polarID string) (SubscriptionDetail, error)
	Items(ctx context.Context, polarID string) ([]SubscriptionItem, error)
	// Cancel schedules cancellation at period end, both remotely and locally.
	Cancel(ctx context.Context, polarID string) (Subscription, error)
	// Resume clears a pending cancellation. Only a canceled subscription
	// still on its grace period can resume.
	Resume(ctx context.Context, polarID string) (Subscription, error)
	// Revoke terminates access immediately.
	Revoke(ctx context.Context, polarID string) (Subscription, error)
	ChangePlan(ctx context.Context, polarID, productID string) (Subscription, error)
}

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidSubscription  = errors.New("invalid_subscription")
	ErrNotCanceled          = errors.New("subscription_not_canceled")
	ErrGracePeriodExpired   = errors.New("grace_period_expired")
	ErrInvalidProduct       = errors.New("invalid_product")
)
