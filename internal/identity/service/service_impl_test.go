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
	"github.com/lumenis/lumenis/internal/config"
	"github.com/lumenis/lumenis/internal/identity/domain"
	identityrepo "github.com/lumenis/lumenis/internal/identity/repository"
	identityservice "github.com/lumenis/lumenis/internal/identity/service"
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
		`CREATE TABLE schools (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_schools_name ON schools(name)`,
		`CREATE TABLE accounts (
			id BIGINT PRIMARY KEY,
			school_id BIGINT NOT NULL,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_accounts_email ON accounts(email)`,
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
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}
	return db
}

func newIdentityService(t *testing.T, db *gorm.DB) (domain.Service, *clock.FakeClock) {
	t.Helper()
	node, err := snowflake.NewNode(61)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	fixed := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{
		Currency:       "NGN",
		AuthJWTSecret:  "test-secret",
		SessionTTLMins: 60,
	}
	walletSvc := walletservice.New(walletservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fixed, Repo: walletrepo.Provide(),
	})
	svc := identityservice.New(identityservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fixed,
		Config: cfg,
		Repo:   identityrepo.Provide(),
		Wallet: walletSvc,
	})
	return svc, fixed
}

func TestCreateSchoolBootstrapsOperator(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _ := newIdentityService(t, db)

	school, operator, err := svc.CreateSchool(ctx, "Hillcrest", "Admin@Hillcrest.test", "secret-password")
	if err != nil {
		t.Fatalf("create school: %v", err)
	}
	if operator.Role != domain.RoleOperator {
		t.Fatalf("operator role = %s, want operator", operator.Role)
	}
	if operator.Email != "admin@hillcrest.test" {
		t.Fatalf("email = %s, want lowercased", operator.Email)
	}
	if operator.SchoolID != school.ID {
		t.Fatalf("operator school = %d, want %d", operator.SchoolID, school.ID)
	}

	var wallets int64
	if err := db.Table("wallets").Where("account_id = ?", operator.ID).Count(&wallets).Error; err != nil {
		t.Fatalf("count wallets: %v", err)
	}
	if wallets != 1 {
		t.Fatalf("operator wallets = %d, want 1", wallets)
	}
}

func TestRegisterProvisionsWallet(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _ := newIdentityService(t, db)

	school, _, err := svc.CreateSchool(ctx, "Hillcrest", "admin@hillcrest.test", "secret-password")
	if err != nil {
		t.Fatalf("create school: %v", err)
	}

	account, err := svc.Register(ctx, domain.RegisterRequest{
		SchoolID: school.ID,
		Email:    "teacher@hillcrest.test",
		Password: "another-secret",
		Role:     domain.RoleStaff,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if account.Role != domain.RoleStaff {
		t.Fatalf("role = %s, want staff", account.Role)
	}

	var wallets int64
	if err := db.Table("wallets").Where("account_id = ?", account.ID).Count(&wallets).Error; err != nil {
		t.Fatalf("count wallets: %v", err)
	}
	if wallets != 1 {
		t.Fatalf("wallets = %d, want 1", wallets)
	}
}

func TestRegisterUnknownSchool(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _ := newIdentityService(t, db)

	node, _ := snowflake.NewNode(62)
	_, err := svc.Register(ctx, domain.RegisterRequest{
		SchoolID: node.Generate(),
		Email:    "nobody@nowhere.test",
		Password: "secret-password",
	})
	if !errors.Is(err, domain.ErrSchoolNotFound) {
		t.Fatalf("register err = %v, want ErrSchoolNotFound", err)
	}

	// The wallet must not have been provisioned either.
	var accounts int64
	if err := db.Table("accounts").Count(&accounts).Error; err != nil {
		t.Fatalf("count accounts: %v", err)
	}
	if accounts != 0 {
		t.Fatalf("accounts = %d, want 0", accounts)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _ := newIdentityService(t, db)

	school, _, err := svc.CreateSchool(ctx, "Hillcrest", "admin@hillcrest.test", "secret-password")
	if err != nil {
		t.Fatalf("create school: %v", err)
	}
	if _, err := svc.Register(ctx, domain.RegisterRequest{
		SchoolID: school.ID,
		Email:    "admin@hillcrest.test",
		Password: "secret-password",
	}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("register err = %v, want ErrEmailTaken", err)
	}
}

func TestLoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _ := newIdentityService(t, db)

	school, operator, err := svc.CreateSchool(ctx, "Hillcrest", "admin@hillcrest.test", "secret-password")
	if err != nil {
		t.Fatalf("create school: %v", err)
	}

	session, err := svc.Login(ctx, domain.LoginRequest{
		Email:    "ADMIN@hillcrest.test",
		Password: "secret-password",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Token == "" {
		t.Fatal("empty session token")
	}

	claims, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if claims.AccountID != operator.ID {
		t.Fatalf("claims account = %d, want %d", claims.AccountID, operator.ID)
	}
	if claims.SchoolID != school.ID {
		t.Fatalf("claims school = %d, want %d", claims.SchoolID, school.ID)
	}
	if claims.Role != domain.RoleOperator {
		t.Fatalf("claims role = %s, want operator", claims.Role)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _ := newIdentityService(t, db)

	if _, _, err := svc.CreateSchool(ctx, "Hillcrest", "admin@hillcrest.test", "secret-password"); err != nil {
		t.Fatalf("create school: %v", err)
	}
	if _, err := svc.Login(ctx, domain.LoginRequest{
		Email:    "admin@hillcrest.test",
		Password: "wrong-password",
	}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("login err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, domain.LoginRequest{
		Email:    "ghost@hillcrest.test",
		Password: "secret-password",
	}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, fixed := newIdentityService(t, db)

	if _, _, err := svc.CreateSchool(ctx, "Hillcrest", "admin@hillcrest.test", "secret-password"); err != nil {
		t.Fatalf("create school: %v", err)
	}
	session, err := svc.Login(ctx, domain.LoginRequest{
		Email:    "admin@hillcrest.test",
		Password: "secret-password",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	fixed.Advance(2 * time.Hour)
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expired token err = %v, want ErrInvalidToken", err)
	}
}

func TestAuthenticateGarbageToken(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _ := newIdentityService(t, db)

	if _, err := svc.Authenticate(ctx, "not-a-jwt"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("garbage token err = %v, want ErrInvalidToken", err)
	}
}
