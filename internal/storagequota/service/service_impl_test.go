package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/clock"
	"github.com/lumenis/lumenis/internal/storagequota/domain"
	quotarepo "github.com/lumenis/lumenis/internal/storagequota/repository"
	quotaservice "github.com/lumenis/lumenis/internal/storagequota/service"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection serializes writers; sqlite has no row locks.
	sqlDB.SetMaxOpenConns(1)

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
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}
	return db
}

func newQuotaService(t *testing.T, db *gorm.DB) (domain.Service, *snowflake.Node) {
	t.Helper()
	node, err := snowflake.NewNode(21)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	svc := quotaservice.New(quotaservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  quotarepo.Provide(),
	})
	return svc, node
}

func TestGrantAccumulatesSamePlan(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newQuotaService(t, db)

	schoolID, accountID, planID := node.Generate(), node.Generate(), node.Generate()
	first, err := svc.Grant(ctx, db, schoolID, accountID, planID, 100, 300)
	if err != nil {
		t.Fatalf("first grant: %v", err)
	}
	second, err := svc.Grant(ctx, db, schoolID, accountID, planID, 100, 300)
	if err != nil {
		t.Fatalf("second grant: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second grant opened a new row (%d != %d)", second.ID, first.ID)
	}
	if second.TotalBytes != 200 {
		t.Fatalf("total = %d, want 200", second.TotalBytes)
	}
	if second.AmountPaidMinor != 600 {
		t.Fatalf("amount paid = %d, want 600", second.AmountPaidMinor)
	}

	var count int64
	if err := db.Model(&domain.Purchase{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("purchase rows = %d, want 1", count)
	}
}

func TestReserveThresholds(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newQuotaService(t, db)

	accountID := node.Generate()
	if _, err := svc.Grant(ctx, db, node.Generate(), accountID, node.Generate(), 100, 500); err != nil {
		t.Fatalf("grant: %v", err)
	}

	p, err := svc.Reserve(ctx, db, accountID, 50)
	if err != nil {
		t.Fatalf("reserve 50: %v", err)
	}
	if p.Status != domain.PurchaseStatusActive {
		t.Fatalf("status at 50%% = %s, want active", p.Status)
	}

	p, err = svc.Reserve(ctx, db, accountID, 30)
	if err != nil {
		t.Fatalf("reserve 30: %v", err)
	}
	if p.Status != domain.PurchaseStatusLow {
		t.Fatalf("status at 80%% = %s, want low", p.Status)
	}

	p, err = svc.Reserve(ctx, db, accountID, 20)
	if err != nil {
		t.Fatalf("reserve 20: %v", err)
	}
	if p.Status != domain.PurchaseStatusExhausted {
		t.Fatalf("status at 100%% = %s, want exhausted", p.Status)
	}

	if _, err := svc.Reserve(ctx, db, accountID, 1); !errors.Is(err, domain.ErrQuotaExhausted) {
		t.Fatalf("reserve on exhausted err = %v, want ErrQuotaExhausted", err)
	}
}

func TestReserveErrorTaxonomy(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newQuotaService(t, db)

	if _, err := svc.Reserve(ctx, db, node.Generate(), 10); !errors.Is(err, domain.ErrNoActivePlan) {
		t.Fatalf("reserve without plan err = %v, want ErrNoActivePlan", err)
	}

	accountID := node.Generate()
	if _, err := svc.Grant(ctx, db, node.Generate(), accountID, node.Generate(), 100, 500); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := svc.Reserve(ctx, db, accountID, 60); err != nil {
		t.Fatalf("reserve 60: %v", err)
	}
	if _, err := svc.Reserve(ctx, db, accountID, 50); !errors.Is(err, domain.ErrInsufficientQuota) {
		t.Fatalf("oversized reserve err = %v, want ErrInsufficientQuota", err)
	}
	if _, err := svc.Reserve(ctx, db, accountID, 0); !errors.Is(err, domain.ErrInvalidBytes) {
		t.Fatalf("zero reserve err = %v, want ErrInvalidBytes", err)
	}
}

func TestReleaseFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newQuotaService(t, db)

	accountID := node.Generate()
	purchase, err := svc.Grant(ctx, db, node.Generate(), accountID, node.Generate(), 100, 500)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := svc.Reserve(ctx, db, accountID, 90); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := svc.Release(ctx, db, purchase.ID, 500); err != nil {
		t.Fatalf("release: %v", err)
	}
	usage, err := svc.Usage(ctx, accountID)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.UsedBytes != 0 {
		t.Fatalf("used = %d, want 0 after floored release", usage.UsedBytes)
	}
	if usage.Status != domain.PurchaseStatusActive {
		t.Fatalf("status = %s, want active", usage.Status)
	}
}

// Fifty concurrent single-unit reserves against ten units of capacity:
// exactly ten must succeed and used can never pass total.
func TestConcurrentReservesNeverOversell(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newQuotaService(t, db)

	accountID := node.Generate()
	if _, err := svc.Grant(ctx, db, node.Generate(), accountID, node.Generate(), 10, 100); err != nil {
		t.Fatalf("grant: %v", err)
	}

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(ctx, db, accountID, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, failed := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		failed++
		if !errors.Is(err, domain.ErrQuotaExhausted) && !errors.Is(err, domain.ErrInsufficientQuota) {
			t.Fatalf("unexpected reserve error: %v", err)
		}
	}
	if succeeded != 10 || failed != 40 {
		t.Fatalf("succeeded = %d, failed = %d; want 10/40", succeeded, failed)
	}

	usage, err := svc.Usage(ctx, accountID)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.UsedBytes != usage.TotalBytes {
		t.Fatalf("used = %d, total = %d; want full consumption and no oversell", usage.UsedBytes, usage.TotalBytes)
	}
	if usage.Status != domain.PurchaseStatusExhausted {
		t.Fatalf("status = %s, want exhausted", usage.Status)
	}
}
