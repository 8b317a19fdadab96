package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service is the wallet ledger. Mutating operations run against the
// caller-supplied handle so a coordinator can enclose them in one
// atomic unit together with other writes.
type Service interface {
	// Provision creates the account's wallet. Idempotent per account.
	Provision(ctx context.Context, db *gorm.DB, schoolID, accountID snowflake.ID, currency string) (*Wallet, error)

	// Deposit appends a completed transaction and credits the balance.
	// Funding is only invoked after external confirmation, so deposits
	// never sit in pending.
	Deposit(ctx context.Context, db *gorm.DB, accountID snowflake.ID, amount int64, description string, reference *string) (*Transaction, error)

	// Withdraw debits the balance optimistically and appends a pending
	// transaction; the caller resolves it to completed or failed.
	Withdraw(ctx context.Context, db *gorm.DB, accountID snowflake.ID, amount int64, description string, reference *string) (*Transaction, error)

	// Resolve finishes a pending transaction. Resolving a withdrawal to
	// failed refunds the optimistic debit.
	Resolve(ctx context.Context, db *gorm.DB, transactionID snowflake.ID, status TransactionStatus) error

	// RecordFailedAttempt appends a failed transaction for audit without
	// touching the balance.
	RecordFailedAttempt(ctx context.Context, db *gorm.DB, accountID snowflake.ID, kind TransactionKind, amount int64, description string, reference *string) error

	Get(ctx context.Context, accountID snowflake.ID) (*Wallet, []Transaction, error)
	Balance(ctx context.Context, accountID snowflake.ID) (int64, error)
}

var (
	ErrWalletNotFound      = errors.New("wallet_not_found")
	ErrWalletExists        = errors.New("wallet_exists")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInsufficientFunds   = errors.New("insufficient_funds")
	ErrAlreadyResolved     = errors.New("transaction_already_resolved")
	ErrTransactionNotFound = errors.New("wallet_transaction_not_found")
	ErrInvalidStatus       = errors.New("invalid_transaction_status")
)
