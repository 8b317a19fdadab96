package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TransactionKind represents money moving into or out of a wallet.
type TransactionKind string

const (
	TransactionKindDeposit    TransactionKind = "deposit"
	TransactionKindWithdrawal TransactionKind = "withdrawal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Wallet owns a single balance per account. Amounts are integer minor
// units of Currency.
type Wallet struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID  snowflake.ID `gorm:"not null;index" json:"school_id"`
	AccountID snowflake.ID `gorm:"not null;uniqueIndex:ux_wallets_account" json:"account_id"`
	Balance   int64        `gorm:"not null;default:0" json:"balance"`
	Currency  string       `gorm:"type:text;not null" json:"currency"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Wallet) TableName() string { return "wallets" }

// Transaction is an append-only ledger entry. Rows are immutable once
// written except for the pending -> completed|failed status transition.
type Transaction struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	WalletID    snowflake.ID      `gorm:"not null;index" json:"wallet_id"`
	Kind        TransactionKind   `gorm:"type:text;not null" json:"kind"`
	Amount      int64             `gorm:"not null" json:"amount"`
	Description string            `gorm:"type:text;not null" json:"description"`
	Reference   *string           `gorm:"type:text" json:"reference,omitempty"`
	Status      TransactionStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updated_at"`
}

func (Transaction) TableName() string { return "wallet_transactions" }
