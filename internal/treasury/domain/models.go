package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type GatewayTransactionKind string

const (
	GatewayTransactionKindFunding GatewayTransactionKind = "funding"
	GatewayTransactionKindPayout  GatewayTransactionKind = "payout"
)

type GatewayTransactionStatus string

const (
	GatewayTransactionStatusInitiated GatewayTransactionStatus = "initiated"
	GatewayTransactionStatusSuccess   GatewayTransactionStatus = "success"
	GatewayTransactionStatusFailed    GatewayTransactionStatus = "failed"
)

// GatewayTransaction mirrors one interaction with the external payment
// processor. Reference is unique, which makes verification and webhook
// replay idempotent.
type GatewayTransaction struct {
	ID          snowflake.ID             `gorm:"primaryKey" json:"id"`
	SchoolID    snowflake.ID             `gorm:"not null" json:"school_id"`
	AccountID   snowflake.ID             `gorm:"not null" json:"account_id"`
	Reference   string                   `gorm:"type:text;not null;uniqueIndex:ux_gateway_transactions_reference" json:"reference"`
	AmountMinor int64                    `gorm:"not null" json:"amount_minor"`
	Currency    string                   `gorm:"type:text;not null" json:"currency"`
	Gateway     string                   `gorm:"type:text;not null" json:"gateway"`
	Kind        GatewayTransactionKind   `gorm:"type:text;not null" json:"kind"`
	Status      GatewayTransactionStatus `gorm:"type:text;not null" json:"status"`
	Metadata    datatypes.JSONMap        `json:"metadata,omitempty"`
	CreatedAt   time.Time                `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time                `gorm:"not null" json:"updated_at"`
}

func (GatewayTransaction) TableName() string { return "gateway_transactions" }
