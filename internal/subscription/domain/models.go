// Package domain contains persistence models for synced subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status represents lifecycle states reported by the billing provider.
type Status string

const (
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusUnpaid            Status = "unpaid"
	StatusRevoked           Status = "revoked"
)

// MapStatus normalizes a provider status string. Unrecognized values map to
// incomplete so a new provider state never breaks ingestion.
func MapStatus(raw string) Status {
	switch Status(raw) {
	case StatusIncomplete, StatusIncompleteExpired, StatusTrialing, StatusActive,
		StatusPastDue, StatusCanceled, StatusUnpaid, StatusRevoked:
		return Status(raw)
	default:
		return StatusIncomplete
	}
}

// Subscription mirrors a provider subscription for a local customer.
type Subscription struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	CustomerID         snowflake.ID      `gorm:"not null;index" json:"customer_id"`
	Type               string            `gorm:"type:text;not null;default:'default'" json:"type"`
	PolarID            string            `gorm:"not null;uniqueIndex" json:"polar_id"`
	Status             Status            `gorm:"type:text;not null" json:"status"`
	CurrentPeriodStart *time.Time        `gorm:"" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time        `gorm:"" json:"current_period_end,omitempty"`
	StartedAt          *time.Time        `gorm:"" json:"started_at,omitempty"`
	TrialEndsAt        *time.Time        `gorm:"" json:"trial_ends_at,omitempty"`
	EndsAt             *time.Time        `gorm:"" json:"ends_at,omitempty"`
	CancelAtPeriodEnd  bool              `gorm:"not null;default:false" json:"cancel_at_period_end"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// Active reports whether the subscription is in the active state.
func (s Subscription) Active() bool { return s.Status == StatusActive }

// OnTrial reports whether the trial window is still open at the given time.
func (s Subscription) OnTrial(now time.Time) bool {
	return s.TrialEndsAt != nil && s.TrialEndsAt.After(now)
}

// OnGracePeriod reports whether a canceled subscription still has paid time
// remaining.
func (s Subscription) OnGracePeriod(now time.Time) bool {
	return s.Status == StatusCanceled && s.EndsAt != nil && s.EndsAt.After(now)
}

// Valid reports whether the customer should retain access.
func (s Subscription) Valid(now time.Time) bool {
	return s.Active() || s.Status == StatusTrialing || s.OnTrial(now) || s.OnGracePeriod(now)
}

// Canceled reports whether the subscription has been canceled.
func (s Subscription) Canceled() bool { return s.Status == StatusCanceled }

// Ended reports whether a canceled subscription has run out its grace period.
func (s Subscription) Ended(now time.Time) bool {
	return s.Canceled() && !s.OnGracePeriod(now)
}

// PastDue reports whether payment collection has fallen behind.
func (s Subscription) PastDue() bool { return s.Status == StatusPastDue }

// Revoked reports whether access was terminated immediately.
func (s Subscription) Revoked() bool { return s.Status == StatusRevoked }

// Expired reports whether the initial payment window lapsed.
func (s Subscription) Expired() bool { return s.Status == StatusIncompleteExpired }

// EndDate formats ends_at with the given layout, or "" when unset.
func (s Subscription) EndDate(layout string) string {
	if s.EndsAt == nil {
		return ""
	}
	return s.EndsAt.Format(layout)
}

// TrialEndDate formats trial_ends_at with the given layout, or "" when unset.
func (s Subscription) TrialEndDate(layout string) string {
	if s.TrialEndsAt == nil {
		return ""
	}
	return s.TrialEndsAt.Format(layout)
}

// DaysUntilEnds returns whole days until ends_at, zero when unset or past.
func (s Subscription) DaysUntilEnds(now time.Time) int {
	if s.EndsAt == nil || !s.EndsAt.After(now) {
		return 0
	}
	return int(s.EndsAt.Sub(now) / (24 * time.Hour))
}

// SubscriptionDetail pairs a subscription with its synced items for read
// surfaces. Product accessors follow the first item.
type SubscriptionDetail struct {
	Subscription Subscription       `json:"subscription"`
	Items        []SubscriptionItem `json:"items"`
}

func (d SubscriptionDetail) first() *SubscriptionItem {
	if len(d.Items) == 0 {
		return nil
	}
	return &d.Items[0]
}

// ProductName returns the product name of the first item.
func (d SubscriptionDetail) ProductName() string {
	if item := d.first(); item != nil {
		return item.ProductName
	}
	return ""
}

// Description returns the product description of the first item.
func (d SubscriptionDetail) Description() string {
	if item := d.first(); item != nil {
		return item.ProductDescription
	}
	return ""
}

// ProductID returns the product ID of the first item.
func (d SubscriptionDetail) ProductID() string {
	if item := d.first(); item != nil {
		return item.ProductID
	}
	return ""
}

// PriceID returns the price ID of the first item.
func (d SubscriptionDetail) PriceID() string {
	if item := d.first(); item != nil {
		return item.PriceID
	}
	return ""
}

// Interval returns the recurring interval of the first item.
func (d SubscriptionDetail) Interval() string {
	if item := d.first(); item != nil {
		return item.RecurringInterval
	}
	return ""
}

// SubscriptionItem associates a subscription with a product price.
type SubscriptionItem struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	SubscriptionID     snowflake.ID `gorm:"not null;index" json:"subscription_id"`
	ProductID          string       `gorm:"type:text;not null" json:"product_id"`
	ProductName        string       `gorm:"type:text" json:"product_name,omitempty"`
	ProductDescription string       `gorm:"type:text" json:"product_description,omitempty"`
	PriceID            string       `gorm:"type:text;not null" json:"price_id"`
	PriceCurrency      string       `gorm:"type:text" json:"price_currency,omitempty"`
	PriceAmount        int64        `gorm:"" json:"price_amount,omitempty"`
	RecurringInterval  string       `gorm:"type:text" json:"recurring_interval,omitempty"`
	IsRecurring        bool         `gorm:"not null;default:false" json:"is_recurring"`
	Status             string       `gorm:"type:text" json:"status,omitempty"`
	Quantity           int          `gorm:"not null;default:1" json:"quantity"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (SubscriptionItem) TableName() string { return "subscription_items" }
