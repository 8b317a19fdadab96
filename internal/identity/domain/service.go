package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	SchoolID snowflake.ID `json:"school_id,string" binding:"required"`
	Email    string       `json:"email" binding:"required,email"`
	Password string       `json:"password" binding:"required,min=8"`
	Role     Role         `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type Session struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expires_at"`
	Account   *Account `json:"account"`
}

type Service interface {
	// CreateSchool bootstraps a tenant along with its operator account
	// and the operator's wallet, all in one transaction.
	CreateSchool(ctx context.Context, name, operatorEmail, operatorPassword string) (*School, *Account, error)

	// Register provisions an account and its wallet atomically.
	Register(ctx context.Context, req RegisterRequest) (*Account, error)

	Login(ctx context.Context, req LoginRequest) (*Session, error)

	// Authenticate verifies a bearer token and returns its claims.
	Authenticate(ctx context.Context, token string) (*Claims, error)

	GetAccount(ctx context.Context, id snowflake.ID) (*Account, error)
}

type Repository interface {
	InsertSchool(ctx context.Context, db *gorm.DB, school *School) error
	FindSchool(ctx context.Context, db *gorm.DB, id snowflake.ID) (*School, error)
	InsertAccount(ctx context.Context, db *gorm.DB, account *Account) error
	FindAccountByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
	FindAccountByEmail(ctx context.Context, db *gorm.DB, email string) (*Account, error)
}

var (
	ErrSchoolNotFound     = errors.New("school_not_found")
	ErrSchoolExists       = errors.New("school_exists")
	ErrAccountNotFound    = errors.New("account_not_found")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrInvalidRole        = errors.New("invalid_role")
)
