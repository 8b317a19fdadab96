package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type PurchaseStatus string

const (
	PurchaseStatusActive    PurchaseStatus = "active"
	PurchaseStatusLow       PurchaseStatus = "low"
	PurchaseStatusExhausted PurchaseStatus = "exhausted"
)

// Purchase accumulates an account's capacity per plan. Buying the same
// plan again grows total_bytes on the existing row instead of opening a
// second one.
type Purchase struct {
	ID              snowflake.ID   `gorm:"primaryKey" json:"id"`
	SchoolID        snowflake.ID   `gorm:"not null" json:"school_id"`
	AccountID       snowflake.ID   `gorm:"not null;uniqueIndex:ux_storage_purchases_account_plan" json:"account_id"`
	PlanID          snowflake.ID   `gorm:"not null;uniqueIndex:ux_storage_purchases_account_plan" json:"plan_id"`
	TotalBytes      int64          `gorm:"not null" json:"total_bytes"`
	UsedBytes       int64          `gorm:"not null;default:0" json:"used_bytes"`
	AmountPaidMinor int64          `gorm:"not null;default:0" json:"amount_paid_minor"`
	Status          PurchaseStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (Purchase) TableName() string { return "storage_purchases" }

// QuotaInfo is the aggregate view across all of an account's purchases.
type QuotaInfo struct {
	TotalBytes     int64          `json:"total_bytes"`
	UsedBytes      int64          `json:"used_bytes"`
	AvailableBytes int64          `json:"available_bytes"`
	UsagePercent   float64        `json:"usage_percent"`
	Status         PurchaseStatus `json:"status"`
}

// StatusFor derives the purchase status from its fill level. Full or
// overfull is exhausted; 80 percent and above is low.
func StatusFor(used, total int64) PurchaseStatus {
	if total <= 0 || used >= total {
		return PurchaseStatusExhausted
	}
	if used*100 >= total*80 {
		return PurchaseStatusLow
	}
	return PurchaseStatusActive
}
