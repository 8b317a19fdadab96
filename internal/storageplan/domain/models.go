package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusArchived PlanStatus = "archived"
)

// Plan is a purchasable storage tier. SizeBytes is the capacity granted
// per purchase; PriceMinor is the cost in minor currency units.
type Plan struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Name       string       `gorm:"type:text;not null;uniqueIndex:ux_storage_plans_name" json:"name"`
	SizeBytes  int64        `gorm:"not null" json:"size_bytes"`
	PriceMinor int64        `gorm:"not null" json:"price_minor"`
	Currency   string       `gorm:"type:text;not null" json:"currency"`
	Status     PlanStatus   `gorm:"type:text;not null" json:"status"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (Plan) TableName() string { return "storage_plans" }
