package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Transaction records a billed amount reported by the provider, either from
// a checkout, an order, or a recurring subscription charge.
type Transaction struct {
	ID                  snowflake.ID      `gorm:"primaryKey" json:"id"`
	CustomerID          snowflake.ID      `gorm:"not null;index" json:"customer_id"`
	PolarID             string            `gorm:"not null;uniqueIndex" json:"polar_id"`
	PolarSubscriptionID string            `gorm:"type:text" json:"polar_subscription_id,omitempty"`
	CheckoutID          string            `gorm:"type:text;index" json:"checkout_id,omitempty"`
	Status              string            `gorm:"type:text;not null" json:"status"`
	Currency            string            `gorm:"type:text;not null" json:"currency"`
	Total               int64             `gorm:"not null" json:"total"`
	Tax                 int64             `gorm:"not null" json:"tax"`
	BilledAt            *time.Time        `gorm:"" json:"billed_at,omitempty"`
	Metadata            datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "transactions" }
