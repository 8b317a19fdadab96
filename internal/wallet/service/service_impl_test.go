package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/clock"
	"github.com/lumenis/lumenis/internal/wallet/domain"
	walletrepo "github.com/lumenis/lumenis/internal/wallet/repository"
	walletservice "github.com/lumenis/lumenis/internal/wallet/service"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE wallets (
			id BIGINT PRIMARY KEY,
			school_id BIGINT NOT NULL,
			account_id BIGINT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_wallets_account ON wallets(account_id)`,
		`CREATE TABLE wallet_transactions (
			id BIGINT PRIMARY KEY,
			wallet_id BIGINT NOT NULL,
			kind TEXT NOT NULL,
			amount BIGINT NOT NULL,
			description TEXT NOT NULL,
			reference TEXT,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_wallet_transactions_reference ON wallet_transactions(reference) WHERE reference IS NOT NULL`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}
	return db
}

func newWalletService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(11)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return walletservice.New(walletservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  walletrepo.Provide(),
	})
}

func provisionWallet(t *testing.T, svc domain.Service, db *gorm.DB) snowflake.ID {
	t.Helper()
	node, err := snowflake.NewNode(12)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	accountID := node.Generate()
	if _, err := svc.Provision(context.Background(), db, node.Generate(), accountID, "NGN"); err != nil {
		t.Fatalf("provision: %v", err)
	}
	return accountID
}

func TestDepositAndWithdraw(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newWalletService(t, db)
	accountID := provisionWallet(t, svc, db)

	if _, err := svc.Deposit(ctx, db, accountID, 1000, "initial funding", nil); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	balance, err := svc.Balance(ctx, accountID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 1000 {
		t.Fatalf("balance after deposit = %d, want 1000", balance)
	}

	entry, err := svc.Withdraw(ctx, db, accountID, 300, "storage plan", nil)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if entry.Status != domain.TransactionStatusPending {
		t.Fatalf("withdrawal status = %s, want pending", entry.Status)
	}
	balance, _ = svc.Balance(ctx, accountID)
	if balance != 700 {
		t.Fatalf("balance after withdraw = %d, want 700", balance)
	}

	if err := svc.Resolve(ctx, db, entry.ID, domain.TransactionStatusCompleted); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// Completing a withdrawal must not touch the balance again.
	balance, _ = svc.Balance(ctx, accountID)
	if balance != 700 {
		t.Fatalf("balance after resolve = %d, want 700", balance)
	}

	if err := svc.Resolve(ctx, db, entry.ID, domain.TransactionStatusCompleted); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Fatalf("second resolve err = %v, want ErrAlreadyResolved", err)
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newWalletService(t, db)
	accountID := provisionWallet(t, svc, db)

	if _, err := svc.Deposit(ctx, db, accountID, 100, "seed", nil); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.Withdraw(ctx, db, accountID, 300, "too much", nil); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("withdraw err = %v, want ErrInsufficientFunds", err)
	}

	balance, _ := svc.Balance(ctx, accountID)
	if balance != 100 {
		t.Fatalf("balance = %d, want 100 after rejected withdrawal", balance)
	}
	var count int64
	if err := db.Model(&domain.Transaction{}).Where("kind = ?", domain.TransactionKindWithdrawal).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("withdrawal rows = %d, want 0", count)
	}
}

func TestFailedResolutionRefunds(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newWalletService(t, db)
	accountID := provisionWallet(t, svc, db)

	if _, err := svc.Deposit(ctx, db, accountID, 1000, "seed", nil); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	entry, err := svc.Withdraw(ctx, db, accountID, 400, "payout", nil)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := svc.Resolve(ctx, db, entry.ID, domain.TransactionStatusFailed); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	balance, _ := svc.Balance(ctx, accountID)
	if balance != 1000 {
		t.Fatalf("balance = %d, want 1000 after refund", balance)
	}
	stored := domain.Transaction{}
	if err := db.Where("id = ?", entry.ID).First(&stored).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if stored.Status != domain.TransactionStatusFailed {
		t.Fatalf("entry status = %s, want failed", stored.Status)
	}
}

func TestInvalidAmounts(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newWalletService(t, db)
	accountID := provisionWallet(t, svc, db)

	if _, err := svc.Deposit(ctx, db, accountID, 0, "zero", nil); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("deposit zero err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Withdraw(ctx, db, accountID, -5, "negative", nil); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("withdraw negative err = %v, want ErrInvalidAmount", err)
	}
}

func TestDuplicateReferenceRejected(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newWalletService(t, db)
	accountID := provisionWallet(t, svc, db)

	ref := "gw-ref-1"
	if _, err := svc.Deposit(ctx, db, accountID, 500, "funding", &ref); err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := svc.Deposit(ctx, tx, accountID, 500, "funding replay", &ref)
		return txErr
	})
	if err == nil {
		t.Fatal("second deposit with same reference succeeded, want error")
	}
	balance, _ := svc.Balance(ctx, accountID)
	if balance != 500 {
		t.Fatalf("balance = %d, want 500 after replay rolled back", balance)
	}
}
