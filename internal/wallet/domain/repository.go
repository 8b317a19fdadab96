package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, wallet *Wallet) error
	FindByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*Wallet, error)

	// AdjustBalance applies a signed delta. When requireFunds is set the
	// update is guarded by balance >= -delta and reports false if the
	// guard rejected it.
	AdjustBalance(ctx context.Context, db *gorm.DB, walletID snowflake.ID, delta int64, requireFunds bool) (bool, error)

	InsertTransaction(ctx context.Context, db *gorm.DB, tx *Transaction) error
	FindTransaction(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Transaction, error)
	// MarkTransaction transitions pending -> status; reports false when
	// the row was not pending.
	MarkTransaction(ctx context.Context, db *gorm.DB, id snowflake.ID, status TransactionStatus) (bool, error)
	ListTransactions(ctx context.Context, db *gorm.DB, walletID snowflake.ID, limit int) ([]Transaction, error)
}
