package domain

import (
	"context"
	"errors"
	"io"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/pkg/db/pagination"
)

type UploadRequest struct {
	Name    string
	Size    int64
	Content io.Reader
}

type Service interface {
	// Upload admits the file: reserves quota, stores the blob and
	// writes the catalog row. Quota and catalog commit together; a
	// stored blob is removed again if the transaction rolls back.
	Upload(ctx context.Context, schoolID, ownerID snowflake.ID, req UploadRequest) (*File, error)

	// Delete removes the catalog row and releases its bytes in one
	// transaction, then deletes the blob best effort.
	Delete(ctx context.Context, ownerID, fileID snowflake.ID) error

	Get(ctx context.Context, ownerID, fileID snowflake.ID) (*File, error)
	List(ctx context.Context, ownerID snowflake.ID, page pagination.Pagination) ([]File, *pagination.PageInfo, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, file *File) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*File, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	// ListByOwner returns up to limit+1 rows after the cursor so the
	// caller can detect a further page.
	ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, cursor *pagination.Cursor, limit int) ([]File, error)
}

// BlobStore is where file bytes live. Key is opaque to callers.
type BlobStore interface {
	Store(ctx context.Context, key string, content io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
}

var (
	ErrFileNotFound        = errors.New("file_not_found")
	ErrNotOwner            = errors.New("not_file_owner")
	ErrInvalidFile         = errors.New("invalid_file")
	ErrExtensionNotAllowed = errors.New("file_extension_not_allowed")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
)
