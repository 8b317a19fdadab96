package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/clock"
	"github.com/lumenis/lumenis/internal/wallet/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("wallet.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *service) Provision(ctx context.Context, tx *gorm.DB, schoolID, accountID snowflake.ID, currency string) (*domain.Wallet, error) {
	now := s.clock.Now()
	wallet := &domain.Wallet{
		ID:        s.genID.Generate(),
		SchoolID:  schoolID,
		AccountID: accountID,
		Balance:   0,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, tx, wallet); err != nil {
		return nil, err
	}
	s.log.Info("wallet provisioned",
		zap.Int64("wallet_id", wallet.ID.Int64()),
		zap.Int64("account_id", accountID.Int64()),
	)
	return wallet, nil
}

func (s *service) Deposit(ctx context.Context, tx *gorm.DB, accountID snowflake.ID, amount int64, description string, reference *string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	wallet, err := s.repo.FindByAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.AdjustBalance(ctx, tx, wallet.ID, amount, false); err != nil {
		return nil, err
	}
	entry := s.newEntry(wallet.ID, domain.TransactionKindDeposit, amount, description, reference)
	entry.Status = domain.TransactionStatusCompleted
	if err := s.repo.InsertTransaction(ctx, tx, entry); err != nil {
		return nil, err
	}
	s.log.Info("wallet credited",
		zap.Int64("wallet_id", wallet.ID.Int64()),
		zap.Int64("amount", amount),
	)
	return entry, nil
}

// Withdraw debits first and records the entry as pending. The debit and
// the entry land or roll back together with whatever else the caller
// put in the same transaction.
func (s *service) Withdraw(ctx context.Context, tx *gorm.DB, accountID snowflake.ID, amount int64, description string, reference *string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	wallet, err := s.repo.FindByAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.AdjustBalance(ctx, tx, wallet.ID, -amount, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInsufficientFunds
	}
	entry := s.newEntry(wallet.ID, domain.TransactionKindWithdrawal, amount, description, reference)
	entry.Status = domain.TransactionStatusPending
	if err := s.repo.InsertTransaction(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Resolve(ctx context.Context, tx *gorm.DB, transactionID snowflake.ID, status domain.TransactionStatus) error {
	if status != domain.TransactionStatusCompleted && status != domain.TransactionStatusFailed {
		return domain.ErrInvalidStatus
	}
	entry, err := s.repo.FindTransaction(ctx, tx, transactionID)
	if err != nil {
		return err
	}
	ok, err := s.repo.MarkTransaction(ctx, tx, transactionID, status)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAlreadyResolved
	}
	if status == domain.TransactionStatusFailed && entry.Kind == domain.TransactionKindWithdrawal {
		// Undo the optimistic debit.
		if _, err := s.repo.AdjustBalance(ctx, tx, entry.WalletID, entry.Amount, false); err != nil {
			return err
		}
		s.log.Info("withdrawal refunded",
			zap.Int64("transaction_id", transactionID.Int64()),
			zap.Int64("amount", entry.Amount),
		)
	}
	return nil
}

func (s *service) RecordFailedAttempt(ctx context.Context, tx *gorm.DB, accountID snowflake.ID, kind domain.TransactionKind, amount int64, description string, reference *string) error {
	wallet, err := s.repo.FindByAccount(ctx, tx, accountID)
	if err != nil {
		return err
	}
	entry := s.newEntry(wallet.ID, kind, amount, description, reference)
	entry.Status = domain.TransactionStatusFailed
	return s.repo.InsertTransaction(ctx, tx, entry)
}

func (s *service) Get(ctx context.Context, accountID snowflake.ID) (*domain.Wallet, []domain.Transaction, error) {
	wallet, err := s.repo.FindByAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.repo.ListTransactions(ctx, s.db, wallet.ID, 50)
	if err != nil {
		return nil, nil, err
	}
	return wallet, entries, nil
}

func (s *service) Balance(ctx context.Context, accountID snowflake.ID) (int64, error) {
	wallet, err := s.repo.FindByAccount(ctx, s.db, accountID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

func (s *service) newEntry(walletID snowflake.ID, kind domain.TransactionKind, amount int64, description string, reference *string) *domain.Transaction {
	now := s.clock.Now()
	return &domain.Transaction{
		ID:          s.genID.Generate(),
		WalletID:    walletID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Reference:   reference,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
