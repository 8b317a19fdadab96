package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleOperator Role = "operator"
	RoleStaff    Role = "staff"
	RoleMember   Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOperator, RoleStaff, RoleMember:
		return true
	}
	return false
}

type School struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null;unique" json:"name"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (School) TableName() string { return "schools" }

type Account struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID     snowflake.ID `gorm:"not null;index" json:"school_id"`
	Email        string       `gorm:"type:text;not null;uniqueIndex:ux_accounts_email" json:"email"`
	PasswordHash string       `gorm:"type:text;not null" json:"-"`
	Role         Role         `gorm:"type:text;not null" json:"role"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}

func (Account) TableName() string { return "accounts" }

// Claims is the verified content of a session token.
type Claims struct {
	AccountID snowflake.ID
	SchoolID  snowflake.ID
	Role      Role
}
