package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service tracks purchased capacity and its consumption. Grant,
// Reserve and Release run against the caller-supplied handle so the
// coordinator can pair them with wallet and ledger writes atomically.
type Service interface {
	// Grant adds plan capacity to the account, accumulating onto an
	// existing purchase of the same plan when one exists.
	Grant(ctx context.Context, db *gorm.DB, schoolID, accountID, planID snowflake.ID, sizeBytes, amountPaidMinor int64) (*Purchase, error)

	// Reserve consumes bytes from the account's capacity. The reserve
	// either fits a single purchase or fails; partial reservations are
	// never left behind.
	Reserve(ctx context.Context, db *gorm.DB, accountID snowflake.ID, bytes int64) (*Purchase, error)

	// Release returns bytes to the purchase, flooring used at zero.
	Release(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID, bytes int64) error

	Usage(ctx context.Context, accountID snowflake.ID) (*QuotaInfo, error)
	ListPurchases(ctx context.Context, accountID snowflake.ID) ([]Purchase, error)
}

type Repository interface {
	// Upsert inserts the purchase or grows total_bytes and
	// amount_paid_minor of the existing (account, plan) row, then
	// returns the row as stored.
	Upsert(ctx context.Context, db *gorm.DB, purchase *Purchase) (*Purchase, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Purchase, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]Purchase, error)

	// ConsumeGuarded adds bytes to used_bytes only while the purchase
	// still has that much headroom; reports false when the guard
	// rejected it.
	ConsumeGuarded(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID, bytes int64) (bool, error)
	ReleaseFloored(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID, bytes int64) error
	UpdateStatus(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID, status PurchaseStatus) error
}

var (
	ErrNoActivePlan      = errors.New("no_active_storage_plan")
	ErrQuotaExhausted    = errors.New("storage_quota_exhausted")
	ErrInsufficientQuota = errors.New("insufficient_storage_quota")
	ErrPurchaseNotFound  = errors.New("storage_purchase_not_found")
	ErrInvalidBytes      = errors.New("invalid_byte_amount")
)
