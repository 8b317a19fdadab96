package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CreatePlanRequest takes the size as a human-readable string such as
// "10GB" or "512MB".
type CreatePlanRequest struct {
	Name  string `json:"name" binding:"required"`
	Size  string `json:"size" binding:"required"`
	Price int64  `json:"price" binding:"required"`
}

type UpdatePlanRequest struct {
	Name  *string `json:"name,omitempty"`
	Size  *string `json:"size,omitempty"`
	Price *int64  `json:"price,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	Update(ctx context.Context, id snowflake.ID, req UpdatePlanRequest) (*Plan, error)
	// Archive hides the plan from the catalog. Existing purchases keep
	// their capacity.
	Archive(ctx context.Context, id snowflake.ID) error
	Get(ctx context.Context, id snowflake.ID) (*Plan, error)
	List(ctx context.Context, includeArchived bool) ([]Plan, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, plan *Plan) error
	Update(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Plan, error)
	List(ctx context.Context, db *gorm.DB, includeArchived bool) ([]Plan, error)
}

var (
	ErrPlanNotFound = errors.New("storage_plan_not_found")
	ErrPlanExists   = errors.New("storage_plan_exists")
	ErrInvalidPlan  = errors.New("invalid_storage_plan")
	ErrPlanArchived = errors.New("storage_plan_archived")
)
