package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/identity/domain"
	"github.com/lumenis/lumenis/pkg/db"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) InsertSchool(ctx context.Context, tx *gorm.DB, school *domain.School) error {
	if err := tx.WithContext(ctx).Create(school).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrSchoolExists
		}
		return err
	}
	return nil
}

func (r *repository) FindSchool(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.School, error) {
	var school domain.School
	err := tx.WithContext(ctx).Where("id = ?", id).First(&school).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSchoolNotFound
	}
	if err != nil {
		return nil, err
	}
	return &school, nil
}

func (r *repository) InsertAccount(ctx context.Context, tx *gorm.DB, account *domain.Account) error {
	if err := tx.WithContext(ctx).Create(account).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *repository) FindAccountByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Account, error) {
	var account domain.Account
	err := tx.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountByEmail(ctx context.Context, tx *gorm.DB, email string) (*domain.Account, error) {
	var account domain.Account
	err := tx.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}
