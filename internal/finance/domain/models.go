package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type FlowKind string

const (
	FlowKindStoragePurchase FlowKind = "storage_purchase"
	FlowKindWalletFunding   FlowKind = "wallet_funding"
	FlowKindPayout          FlowKind = "payout"
)

type OutflowStatus string

const (
	OutflowStatusPending   OutflowStatus = "pending"
	OutflowStatusCompleted OutflowStatus = "completed"
	OutflowStatusFailed    OutflowStatus = "failed"
)

// InflowRecord is money entering the institution. Inflows are recorded
// settled; there is no pending state on this side.
type InflowRecord struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	SchoolID    snowflake.ID  `gorm:"not null" json:"school_id"`
	AccountID   *snowflake.ID `json:"account_id,omitempty"`
	AmountMinor int64         `gorm:"not null" json:"amount_minor"`
	Kind        FlowKind      `gorm:"type:text;not null" json:"kind"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Reference   *string       `gorm:"type:text" json:"reference,omitempty"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
}

func (InflowRecord) TableName() string { return "inflow_records" }

// OutflowRecord is money leaving. It starts pending and resolves once
// the transfer settles or fails. Reference is unique so a replayed
// webhook cannot double-settle.
type OutflowRecord struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	SchoolID    snowflake.ID  `gorm:"not null" json:"school_id"`
	AccountID   *snowflake.ID `json:"account_id,omitempty"`
	AmountMinor int64         `gorm:"not null" json:"amount_minor"`
	Kind        FlowKind      `gorm:"type:text;not null" json:"kind"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Reference   string        `gorm:"type:text;not null;uniqueIndex:ux_outflow_records_reference" json:"reference"`
	Status      OutflowStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

func (OutflowRecord) TableName() string { return "outflow_records" }

// SummaryID is the primary key of the single financial_summaries row.
const SummaryID int64 = 1

// FinancialSummary is a denormalized rollup recomputed inside the same
// transaction as the flow that changed it. Failed outflows do not count.
type FinancialSummary struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	TotalInflow  int64     `gorm:"not null;default:0" json:"total_inflow"`
	TotalOutflow int64     `gorm:"not null;default:0" json:"total_outflow"`
	NetBalance   int64     `gorm:"not null;default:0" json:"net_balance"`
	LastUpdated  time.Time `gorm:"not null" json:"last_updated"`
}

func (FinancialSummary) TableName() string { return "financial_summaries" }
