package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumenis/lumenis/internal/storagequota/domain"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Upsert(ctx context.Context, tx *gorm.DB, purchase *domain.Purchase) (*domain.Purchase, error) {
	// Increments are bound parameters rather than excluded.* references,
	// so the clause renders on every dialect gorm targets.
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "plan_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_bytes":       gorm.Expr("total_bytes + ?", purchase.TotalBytes),
				"amount_paid_minor": gorm.Expr("amount_paid_minor + ?", purchase.AmountPaidMinor),
				"updated_at":        purchase.UpdatedAt,
			}),
		}).
		Create(purchase).Error
	if err != nil {
		return nil, err
	}
	var stored domain.Purchase
	err = tx.WithContext(ctx).
		Where("account_id = ? AND plan_id = ?", purchase.AccountID, purchase.PlanID).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *repository) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Purchase, error) {
	var purchase domain.Purchase
	err := tx.WithContext(ctx).
		Where("id = ?", id).
		First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPurchaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) ListByAccount(ctx context.Context, tx *gorm.DB, accountID snowflake.ID) ([]domain.Purchase, error) {
	var purchases []domain.Purchase
	err := tx.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC, id ASC").
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}
	return purchases, nil
}

// ConsumeGuarded relies on the headroom predicate inside the UPDATE so
// two concurrent reserves cannot both take the last bytes.
func (r *repository) ConsumeGuarded(ctx context.Context, tx *gorm.DB, purchaseID snowflake.ID, bytes int64) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&domain.Purchase{}).
		Where("id = ? AND total_bytes - used_bytes >= ?", purchaseID, bytes).
		UpdateColumn("used_bytes", gorm.Expr("used_bytes + ?", bytes))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ReleaseFloored(ctx context.Context, tx *gorm.DB, purchaseID snowflake.ID, bytes int64) error {
	return tx.WithContext(ctx).
		Model(&domain.Purchase{}).
		Where("id = ?", purchaseID).
		UpdateColumn("used_bytes", gorm.Expr(
			"CASE WHEN used_bytes > ? THEN used_bytes - ? ELSE 0 END", bytes, bytes,
		)).Error
}

func (r *repository) UpdateStatus(ctx context.Context, tx *gorm.DB, purchaseID snowflake.ID, status domain.PurchaseStatus) error {
	return tx.WithContext(ctx).
		Model(&domain.Purchase{}).
		Where("id = ?", purchaseID).
		UpdateColumn("status", status).Error
}
