package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumenis/lumenis/internal/finance/domain"
	"github.com/lumenis/lumenis/pkg/db"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) InsertInflow(ctx context.Context, tx *gorm.DB, record *domain.InflowRecord) error {
	return tx.WithContext(ctx).Create(record).Error
}

func (r *repository) InsertOutflow(ctx context.Context, tx *gorm.DB, record *domain.OutflowRecord) error {
	if err := tx.WithContext(ctx).Create(record).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicateOutflow
		}
		return err
	}
	return nil
}

func (r *repository) FindOutflowByReference(ctx context.Context, tx *gorm.DB, reference string) (*domain.OutflowRecord, error) {
	var record domain.OutflowRecord
	err := tx.WithContext(ctx).
		Where("reference = ?", reference).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOutflowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) MarkOutflow(ctx context.Context, tx *gorm.DB, id snowflake.ID, status domain.OutflowStatus) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&domain.OutflowRecord{}).
		Where("id = ? AND status = ?", id, domain.OutflowStatusPending).
		UpdateColumn("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SumInflows(ctx context.Context, tx *gorm.DB) (int64, error) {
	var total int64
	err := tx.WithContext(ctx).
		Model(&domain.InflowRecord{}).
		Select("COALESCE(SUM(amount_minor), 0)").
		Scan(&total).Error
	return total, err
}

func (r *repository) SumOutflows(ctx context.Context, tx *gorm.DB) (int64, error) {
	var total int64
	err := tx.WithContext(ctx).
		Model(&domain.OutflowRecord{}).
		Select("COALESCE(SUM(amount_minor), 0)").
		Where("status IN ?", []domain.OutflowStatus{
			domain.OutflowStatusPending,
			domain.OutflowStatusCompleted,
		}).
		Scan(&total).Error
	return total, err
}

func (r *repository) GuardNet(ctx context.Context, tx *gorm.DB, amountMinor int64, now time.Time) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&domain.FinancialSummary{}).
		Where("id = ? AND net_balance >= ?", domain.SummaryID, amountMinor).
		UpdateColumn("last_updated", now)
	if res.Error != nil {
		return false, res.Error
	}
	// A missing summary row means no flows were ever recorded, which
	// reads as a net balance of zero.
	return res.RowsAffected == 1, nil
}

func (r *repository) UpsertSummary(ctx context.Context, tx *gorm.DB, summary *domain.FinancialSummary) error {
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_inflow", "total_outflow", "net_balance", "last_updated",
			}),
		}).
		Create(summary).Error
}

func (r *repository) FindSummary(ctx context.Context, tx *gorm.DB) (*domain.FinancialSummary, error) {
	var summary domain.FinancialSummary
	err := tx.WithContext(ctx).
		Where("id = ?", domain.SummaryID).
		First(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// No flows recorded yet reads as an all-zero summary.
		return &domain.FinancialSummary{ID: domain.SummaryID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
