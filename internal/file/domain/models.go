package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// File is catalog metadata; bytes live in the blob store. PurchaseID
// names the storage purchase the size was reserved against so deletion
// can return the bytes to the right row.
type File struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID   snowflake.ID `gorm:"not null" json:"school_id"`
	OwnerID    snowflake.ID `gorm:"not null;index" json:"owner_id"`
	PurchaseID snowflake.ID `gorm:"not null" json:"purchase_id"`
	Name       string       `gorm:"type:text;not null" json:"name"`
	Extension  string       `gorm:"type:text;not null" json:"extension"`
	SizeBytes  int64        `gorm:"not null" json:"size_bytes"`
	Path       string       `gorm:"type:text;not null" json:"path"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (File) TableName() string { return "files" }
