package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/wallet/domain"
	"github.com/lumenis/lumenis/pkg/db"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, wallet *domain.Wallet) error {
	if err := tx.WithContext(ctx).Create(wallet).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrWalletExists
		}
		return err
	}
	return nil
}

func (r *repository) FindByAccount(ctx context.Context, tx *gorm.DB, accountID snowflake.ID) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := tx.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// AdjustBalance is a single guarded UPDATE so concurrent debits
// serialize on the row without an explicit lock.
func (r *repository) AdjustBalance(ctx context.Context, tx *gorm.DB, walletID snowflake.ID, delta int64, requireFunds bool) (bool, error) {
	q := tx.WithContext(ctx).
		Model(&domain.Wallet{}).
		Where("id = ?", walletID)
	if requireFunds {
		q = q.Where("balance >= ?", -delta)
	}
	res := q.UpdateColumn("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) InsertTransaction(ctx context.Context, tx *gorm.DB, entry *domain.Transaction) error {
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindTransaction(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Transaction, error) {
	var entry domain.Transaction
	err := tx.WithContext(ctx).
		Where("id = ?", id).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) MarkTransaction(ctx context.Context, tx *gorm.DB, id snowflake.ID, status domain.TransactionStatus) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("id = ? AND status = ?", id, domain.TransactionStatusPending).
		UpdateColumn("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListTransactions(ctx context.Context, tx *gorm.DB, walletID snowflake.ID, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []domain.Transaction
	err := tx.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
