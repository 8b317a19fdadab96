package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/treasury/domain"
	"github.com/lumenis/lumenis/pkg/db"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, txn *domain.GatewayTransaction) error {
	if err := tx.WithContext(ctx).Create(txn).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicateReference
		}
		return err
	}
	return nil
}

func (r *repository) FindByReference(ctx context.Context, tx *gorm.DB, reference string) (*domain.GatewayTransaction, error) {
	var txn domain.GatewayTransaction
	err := tx.WithContext(ctx).
		Where("reference = ?", reference).
		First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) Mark(ctx context.Context, tx *gorm.DB, id snowflake.ID, status domain.GatewayTransactionStatus) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&domain.GatewayTransaction{}).
		Where("id = ? AND status = ?", id, domain.GatewayTransactionStatusInitiated).
		UpdateColumn("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
