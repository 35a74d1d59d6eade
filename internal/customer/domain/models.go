package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Customer links a local billable entity to its Polar customer record.
type Customer struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	BillableType string            `gorm:"not null" json:"billable_type"`
	BillableID   string            `gorm:"not null" json:"billable_id"`
	PolarID      string            `gorm:"not null;uniqueIndex" json:"polar_id"`
	Name         string            `json:"name,omitempty"`
	Email        string            `json:"email,omitempty"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }
