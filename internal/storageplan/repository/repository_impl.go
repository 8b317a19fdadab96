package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/storageplan/domain"
	"github.com/lumenis/lumenis/pkg/db"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, plan *domain.Plan) error {
	if err := tx.WithContext(ctx).Create(plan).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrPlanExists
		}
		return err
	}
	return nil
}

func (r *repository) Update(ctx context.Context, tx *gorm.DB, plan *domain.Plan) error {
	if err := tx.WithContext(ctx).Save(plan).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrPlanExists
		}
		return err
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Plan, error) {
	var plan domain.Plan
	err := tx.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) List(ctx context.Context, tx *gorm.DB, includeArchived bool) ([]domain.Plan, error) {
	q := tx.WithContext(ctx).Model(&domain.Plan{})
	if !includeArchived {
		q = q.Where("status = ?", domain.PlanStatusActive)
	}
	var plans []domain.Plan
	if err := q.Order("price_minor ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}
