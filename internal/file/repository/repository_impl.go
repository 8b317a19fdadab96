package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/file/domain"
	"github.com/lumenis/lumenis/pkg/db/pagination"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, file *domain.File) error {
	return tx.WithContext(ctx).Create(file).Error
}

func (r *repository) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.File, error) {
	var file domain.File
	err := tx.WithContext(ctx).Where("id = ?", id).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *repository) Delete(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	res := tx.WithContext(ctx).Where("id = ?", id).Delete(&domain.File{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

func (r *repository) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID, cursor *pagination.Cursor, limit int) ([]domain.File, error) {
	q := tx.WithContext(ctx).Where("owner_id = ?", ownerID)
	if cursor != nil {
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var files []domain.File
	err := q.Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}
