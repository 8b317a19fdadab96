package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/clock"
	"github.com/lumenis/lumenis/internal/config"
	"github.com/lumenis/lumenis/internal/file/domain"
	filerepo "github.com/lumenis/lumenis/internal/file/repository"
	fileservice "github.com/lumenis/lumenis/internal/file/service"
	quotadomain "github.com/lumenis/lumenis/internal/storagequota/domain"
	quotarepo "github.com/lumenis/lumenis/internal/storagequota/repository"
	quotaservice "github.com/lumenis/lumenis/internal/storagequota/service"
	"github.com/lumenis/lumenis/pkg/db/pagination"
)

// memBlobStore keeps blobs in a map so tests can assert on writes and
// deletes without touching the filesystem.
type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (m *memBlobStore) Store(_ context.Context, key string, content io.Reader, size int64) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return domain.ErrInvalidFile
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return nil
}

func (m *memBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *memBlobStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE storage_purchases (
			id BIGINT PRIMARY KEY,
			school_id BIGINT NOT NULL,
			account_id BIGINT NOT NULL,
			plan_id BIGINT NOT NULL,
			total_bytes BIGINT NOT NULL,
			used_bytes BIGINT NOT NULL DEFAULT 0,
			amount_paid_minor BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_storage_purchases_account_plan ON storage_purchases(account_id, plan_id)`,
		`CREATE TABLE files (
			id BIGINT PRIMARY KEY,
			school_id BIGINT NOT NULL,
			owner_id BIGINT NOT NULL,
			purchase_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			extension TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			path TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}
	return db
}

func newFileService(t *testing.T, db *gorm.DB) (domain.Service, quotadomain.Service, *memBlobStore, *snowflake.Node) {
	t.Helper()
	node, err := snowflake.NewNode(51)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	fixed := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	quotaSvc := quotaservice.New(quotaservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fixed, Repo: quotarepo.Provide(),
	})
	blobs := newMemBlobStore()
	svc := fileservice.New(fileservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fixed,
		Config: config.Config{AllowedExtensions: []string{"pdf", "png", "docx"}},
		Repo:   filerepo.Provide(),
		Blobs:  blobs,
		Quota:  quotaSvc,
	})
	return svc, quotaSvc, blobs, node
}

func TestUploadReservesQuota(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, quota, blobs, node := newFileService(t, db)

	schoolID, ownerID := node.Generate(), node.Generate()
	if _, err := quota.Grant(ctx, db, schoolID, ownerID, node.Generate(), 100, 500); err != nil {
		t.Fatalf("grant: %v", err)
	}

	file, err := svc.Upload(ctx, schoolID, ownerID, domain.UploadRequest{
		Name:    "report.pdf",
		Size:    40,
		Content: bytes.NewReader(make([]byte, 40)),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if file.Extension != "pdf" {
		t.Fatalf("extension = %s, want pdf", file.Extension)
	}
	if blobs.count() != 1 {
		t.Fatalf("blobs = %d, want 1", blobs.count())
	}

	usage, err := quota.Usage(ctx, ownerID)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.UsedBytes != 40 {
		t.Fatalf("used = %d, want 40", usage.UsedBytes)
	}
}

func TestUploadRejectsExtension(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, quota, blobs, node := newFileService(t, db)

	schoolID, ownerID := node.Generate(), node.Generate()
	if _, err := quota.Grant(ctx, db, schoolID, ownerID, node.Generate(), 100, 500); err != nil {
		t.Fatalf("grant: %v", err)
	}

	_, err := svc.Upload(ctx, schoolID, ownerID, domain.UploadRequest{
		Name:    "setup.exe",
		Size:    10,
		Content: bytes.NewReader(make([]byte, 10)),
	})
	if !errors.Is(err, domain.ErrExtensionNotAllowed) {
		t.Fatalf("upload err = %v, want ErrExtensionNotAllowed", err)
	}
	if blobs.count() != 0 {
		t.Fatalf("blobs = %d, want 0", blobs.count())
	}
	usage, _ := quota.Usage(ctx, ownerID)
	if usage.UsedBytes != 0 {
		t.Fatalf("used = %d, want 0", usage.UsedBytes)
	}
}

func TestUploadBeyondQuotaRollsBack(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, quota, blobs, node := newFileService(t, db)

	schoolID, ownerID := node.Generate(), node.Generate()
	if _, err := quota.Grant(ctx, db, schoolID, ownerID, node.Generate(), 100, 500); err != nil {
		t.Fatalf("grant: %v", err)
	}

	_, err := svc.Upload(ctx, schoolID, ownerID, domain.UploadRequest{
		Name:    "huge.png",
		Size:    150,
		Content: bytes.NewReader(make([]byte, 150)),
	})
	if !errors.Is(err, quotadomain.ErrInsufficientQuota) {
		t.Fatalf("upload err = %v, want ErrInsufficientQuota", err)
	}
	if blobs.count() != 0 {
		t.Fatalf("blobs = %d, want 0", blobs.count())
	}
	var rows int64
	if err := db.Model(&domain.File{}).Count(&rows).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 0 {
		t.Fatalf("file rows = %d, want 0", rows)
	}
}

func TestUploadWithoutPlan(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _, _, node := newFileService(t, db)

	_, err := svc.Upload(ctx, node.Generate(), node.Generate(), domain.UploadRequest{
		Name:    "report.pdf",
		Size:    10,
		Content: bytes.NewReader(make([]byte, 10)),
	})
	if !errors.Is(err, quotadomain.ErrNoActivePlan) {
		t.Fatalf("upload err = %v, want ErrNoActivePlan", err)
	}
}

func TestDeleteReleasesQuotaAndBlob(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, quota, blobs, node := newFileService(t, db)

	schoolID, ownerID := node.Generate(), node.Generate()
	if _, err := quota.Grant(ctx, db, schoolID, ownerID, node.Generate(), 100, 500); err != nil {
		t.Fatalf("grant: %v", err)
	}
	file, err := svc.Upload(ctx, schoolID, ownerID, domain.UploadRequest{
		Name:    "notes.docx",
		Size:    60,
		Content: bytes.NewReader(make([]byte, 60)),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.Delete(ctx, ownerID, file.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if blobs.count() != 0 {
		t.Fatalf("blobs = %d, want 0 after delete", blobs.count())
	}
	usage, _ := quota.Usage(ctx, ownerID)
	if usage.UsedBytes != 0 {
		t.Fatalf("used = %d, want 0 after release", usage.UsedBytes)
	}

	if _, err := svc.Get(ctx, ownerID, file.ID); !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("get after delete err = %v, want ErrFileNotFound", err)
	}
}

func TestListPaginates(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, quota, _, node := newFileService(t, db)

	schoolID, ownerID := node.Generate(), node.Generate()
	if _, err := quota.Grant(ctx, db, schoolID, ownerID, node.Generate(), 1000, 500); err != nil {
		t.Fatalf("grant: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := svc.Upload(ctx, schoolID, ownerID, domain.UploadRequest{
			Name:    fmt.Sprintf("doc-%d.pdf", i),
			Size:    10,
			Content: bytes.NewReader(make([]byte, 10)),
		}); err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}

	seen := map[string]bool{}
	page := pagination.Pagination{PageSize: 2}
	for i := 0; i < 3; i++ {
		files, info, err := svc.List(ctx, ownerID, page)
		if err != nil {
			t.Fatalf("list page %d: %v", i, err)
		}
		for _, f := range files {
			if seen[f.Name] {
				t.Fatalf("file %s appeared on two pages", f.Name)
			}
			seen[f.Name] = true
		}
		if i < 2 {
			if len(files) != 2 || !info.HasMore || info.NextPageToken == "" {
				t.Fatalf("page %d = %d files, has_more %v", i, len(files), info.HasMore)
			}
			page.PageToken = info.NextPageToken
			continue
		}
		if len(files) != 1 || info.HasMore {
			t.Fatalf("last page = %d files, has_more %v", len(files), info.HasMore)
		}
	}
	if len(seen) != 5 {
		t.Fatalf("paged through %d files, want 5", len(seen))
	}

	if _, _, err := svc.List(ctx, ownerID, pagination.Pagination{PageToken: "garbage"}); !errors.Is(err, domain.ErrInvalidPageToken) {
		t.Fatalf("bad token err = %v, want ErrInvalidPageToken", err)
	}
}

func TestDeleteByNonOwner(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, quota, _, node := newFileService(t, db)

	schoolID, ownerID := node.Generate(), node.Generate()
	if _, err := quota.Grant(ctx, db, schoolID, ownerID, node.Generate(), 100, 500); err != nil {
		t.Fatalf("grant: %v", err)
	}
	file, err := svc.Upload(ctx, schoolID, ownerID, domain.UploadRequest{
		Name:    "private.pdf",
		Size:    10,
		Content: bytes.NewReader(make([]byte, 10)),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.Delete(ctx, node.Generate(), file.ID); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("delete err = %v, want ErrNotOwner", err)
	}
	usage, _ := quota.Usage(ctx, ownerID)
	if usage.UsedBytes != 10 {
		t.Fatalf("used = %d, want 10 untouched", usage.UsedBytes)
	}
}
