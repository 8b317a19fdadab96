package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/clock"
	"github.com/lumenis/lumenis/internal/config"
	financedomain "github.com/lumenis/lumenis/internal/finance/domain"
	identitydomain "github.com/lumenis/lumenis/internal/identity/domain"
	"github.com/lumenis/lumenis/internal/observability/metrics"
	"github.com/lumenis/lumenis/internal/providers/email"
	gatewaydomain "github.com/lumenis/lumenis/internal/providers/payment/domain"
	plandomain "github.com/lumenis/lumenis/internal/storageplan/domain"
	quotadomain "github.com/lumenis/lumenis/internal/storagequota/domain"
	"github.com/lumenis/lumenis/internal/treasury/domain"
	walletdomain "github.com/lumenis/lumenis/internal/wallet/domain"
	"github.com/lumenis/lumenis/pkg/sizeutil"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Config   config.Config
	Repo     domain.Repository
	Wallet   walletdomain.Service
	Quota    quotadomain.Service
	Plans    plandomain.Service
	Finance  financedomain.Service
	Identity identitydomain.Service
	Gateway  gatewaydomain.Gateway
	Email    email.Provider       `optional:"true"`
	Metrics  *metrics.FlowMetrics `optional:"true"`
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	currency string
	repo     domain.Repository
	wallet   walletdomain.Service
	quota    quotadomain.Service
	plans    plandomain.Service
	finance  financedomain.Service
	identity identitydomain.Service
	gateway  gatewaydomain.Gateway
	email    email.Provider
	metrics  *metrics.FlowMetrics
}

func New(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("treasury.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		currency: p.Config.Currency,
		repo:     p.Repo,
		wallet:   p.Wallet,
		quota:    p.Quota,
		plans:    p.Plans,
		finance:  p.Finance,
		identity: p.Identity,
		gateway:  p.Gateway,
		email:    p.Email,
		metrics:  p.Metrics,
	}
}

func (s *service) PurchaseStorage(ctx context.Context, schoolID, accountID, planID snowflake.ID) (result *domain.PurchaseStorageResult, err error) {
	defer func() { s.metrics.RecordFlow("purchase_storage", err) }()

	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status == plandomain.PlanStatusArchived {
		return nil, plandomain.ErrPlanArchived
	}

	description := fmt.Sprintf("storage plan %s (%s)", plan.Name, sizeutil.Format(plan.SizeBytes))
	var (
		entry    *walletdomain.Transaction
		purchase *quotadomain.Purchase
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		entry, txErr = s.wallet.Withdraw(ctx, tx, accountID, plan.PriceMinor, description, nil)
		if txErr != nil {
			return txErr
		}
		purchase, txErr = s.quota.Grant(ctx, tx, schoolID, accountID, planID, plan.SizeBytes, plan.PriceMinor)
		if txErr != nil {
			return txErr
		}
		if _, txErr = s.finance.RecordInflow(ctx, tx, schoolID, &accountID, plan.PriceMinor, financedomain.FlowKindStoragePurchase, description, nil); txErr != nil {
			return txErr
		}
		// Internal spend has no external party to wait for.
		return s.wallet.Resolve(ctx, tx, entry.ID, walletdomain.TransactionStatusCompleted)
	})
	if err != nil {
		if errors.Is(err, walletdomain.ErrInsufficientFunds) {
			s.recordFailedSpend(ctx, accountID, plan.PriceMinor, description)
		}
		return nil, err
	}

	balance, err := s.wallet.Balance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s.log.Info("storage purchased",
		zap.Int64("account_id", accountID.Int64()),
		zap.String("plan", plan.Name),
		zap.Int64("price_minor", plan.PriceMinor),
	)
	return &domain.PurchaseStorageResult{
		Purchase:    purchase,
		Transaction: entry,
		Balance:     balance,
	}, nil
}

// recordFailedSpend keeps a failed ledger entry for audit. Best effort;
// the purchase error is what the caller sees.
func (s *service) recordFailedSpend(ctx context.Context, accountID snowflake.ID, amount int64, description string) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.wallet.RecordFailedAttempt(ctx, tx, accountID, walletdomain.TransactionKindWithdrawal, amount, description, nil)
	})
	if err != nil {
		s.log.Warn("failed spend audit entry not recorded", zap.Error(err))
	}
}

func (s *service) FundWallet(ctx context.Context, schoolID, accountID snowflake.ID, amountMinor int64, emailAddr string) (result *domain.FundWalletResult, err error) {
	defer func() { s.metrics.RecordFlow("fund_wallet", err) }()

	if amountMinor <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	reference := uuid.NewString()
	now := s.clock.Now()
	txn := &domain.GatewayTransaction{
		ID:          s.genID.Generate(),
		SchoolID:    schoolID,
		AccountID:   accountID,
		Reference:   reference,
		AmountMinor: amountMinor,
		Currency:    s.currency,
		Gateway:     s.gateway.Provider(),
		Kind:        domain.GatewayTransactionKindFunding,
		Status:      domain.GatewayTransactionStatusInitiated,
		Metadata:    datatypes.JSONMap{"email": emailAddr},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// Gateway first: a declined initiation leaves nothing behind.
	intent, err := s.gateway.InitiatePayment(ctx, gatewaydomain.InitiatePaymentRequest{
		Email:       emailAddr,
		AmountMinor: amountMinor,
		Currency:    s.currency,
		Reference:   reference,
	})
	if err != nil {
		return nil, err
	}
	if err = s.repo.Insert(ctx, s.db, txn); err != nil {
		return nil, err
	}
	return &domain.FundWalletResult{
		Reference:        reference,
		AuthorizationURL: intent.AuthorizationURL,
		AccessCode:       intent.AccessCode,
	}, nil
}

func (s *service) VerifyPayment(ctx context.Context, reference string) (result *domain.VerifyPaymentResult, err error) {
	defer func() { s.metrics.RecordFlow("verify_payment", err) }()

	txn, err := s.repo.FindByReference(ctx, s.db, reference)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.GatewayTransactionStatusInitiated {
		// Replays read the recorded outcome; the wallet is untouched.
		return &domain.VerifyPaymentResult{
			Reference: reference,
			Status:    txn.Status,
			Credited:  false,
		}, nil
	}

	verification, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	switch verification.Status {
	case gatewaydomain.VerificationStatusPending:
		return nil, domain.ErrVerificationPending
	case gatewaydomain.VerificationStatusFailed:
		err = s.db.Transaction(func(tx *gorm.DB) error {
			ok, txErr := s.repo.Mark(ctx, tx, txn.ID, domain.GatewayTransactionStatusFailed)
			if txErr != nil || !ok {
				return txErr
			}
			ref := reference
			// Audit entry only; the balance stays untouched.
			return s.wallet.RecordFailedAttempt(ctx, tx, txn.AccountID, walletdomain.TransactionKindDeposit, txn.AmountMinor, "wallet funding", &ref)
		})
		if err != nil {
			return nil, err
		}
		return &domain.VerifyPaymentResult{
			Reference: reference,
			Status:    domain.GatewayTransactionStatusFailed,
			Credited:  false,
		}, nil
	}

	if verification.AmountMinor > 0 && verification.AmountMinor != txn.AmountMinor {
		s.log.Warn("verified amount differs from initiated amount",
			zap.String("reference", reference),
			zap.Int64("initiated", txn.AmountMinor),
			zap.Int64("verified", verification.AmountMinor),
		)
	}

	credited := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		ok, txErr := s.repo.Mark(ctx, tx, txn.ID, domain.GatewayTransactionStatusSuccess)
		if txErr != nil {
			return txErr
		}
		if !ok {
			// A concurrent verify won the race; nothing left to do.
			return nil
		}
		ref := reference
		if _, txErr = s.wallet.Deposit(ctx, tx, txn.AccountID, txn.AmountMinor, "wallet funding", &ref); txErr != nil {
			return txErr
		}
		accountID := txn.AccountID
		if _, txErr = s.finance.RecordInflow(ctx, tx, txn.SchoolID, &accountID, txn.AmountMinor, financedomain.FlowKindWalletFunding, "wallet funding", &ref); txErr != nil {
			return txErr
		}
		credited = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if credited {
		s.log.Info("wallet funding settled",
			zap.String("reference", reference),
			zap.Int64("amount_minor", txn.AmountMinor),
		)
		s.notifyFunding(txn)
	}
	return &domain.VerifyPaymentResult{
		Reference: reference,
		Status:    domain.GatewayTransactionStatusSuccess,
		Credited:  credited,
	}, nil
}

func (s *service) notifyFunding(txn *domain.GatewayTransaction) {
	if s.email == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		account, err := s.identity.GetAccount(ctx, txn.AccountID)
		if err != nil {
			return
		}
		subject := "Wallet funded"
		body := fmt.Sprintf("<p>Your wallet was credited with %d %s. Reference: %s</p>",
			txn.AmountMinor, txn.Currency, txn.Reference)
		if err := s.email.Send(ctx, []string{account.Email}, subject, body); err != nil {
			s.log.Warn("funding notification not sent", zap.Error(err))
		}
	}()
}

func (s *service) PayOut(ctx context.Context, schoolID, accountID snowflake.ID, req domain.PayOutRequest) (result *domain.PayOutResult, err error) {
	defer func() { s.metrics.RecordFlow("pay_out", err) }()

	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	reference := uuid.NewString()
	now := s.clock.Now()
	reason := req.Reason
	if reason == "" {
		reason = "institutional payout"
	}
	txn := &domain.GatewayTransaction{
		ID:          s.genID.Generate(),
		SchoolID:    schoolID,
		AccountID:   accountID,
		Reference:   reference,
		AmountMinor: req.Amount,
		Currency:    s.currency,
		Gateway:     s.gateway.Provider(),
		Kind:        domain.GatewayTransactionKindPayout,
		Status:      domain.GatewayTransactionStatusInitiated,
		Metadata:    datatypes.JSONMap{"recipient_code": req.RecipientCode, "reason": reason},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var transfer *gatewaydomain.TransferResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// The reservation locks the summary row until commit, so a
		// concurrent payout cannot pass the same funds twice.
		ok, txErr := s.finance.ReserveNet(ctx, tx, req.Amount)
		if txErr != nil {
			return txErr
		}
		if !ok {
			return domain.ErrInsufficientNetBalance
		}
		if _, txErr = s.finance.RecordOutflow(ctx, tx, schoolID, &accountID, req.Amount, financedomain.FlowKindPayout, reason, reference); txErr != nil {
			return txErr
		}
		if txErr = s.repo.Insert(ctx, tx, txn); txErr != nil {
			return txErr
		}
		// The transfer call runs inside the unit: a declined initiation
		// rolls the pending outflow back, so the books never carry a
		// transfer that never left. The call is time-bounded by the
		// gateway client, which caps how long the row stays locked.
		transfer, txErr = s.gateway.InitiateTransfer(ctx, gatewaydomain.InitiateTransferRequest{
			RecipientCode: req.RecipientCode,
			AmountMinor:   req.Amount,
			Currency:      s.currency,
			Reference:     reference,
			Reason:        reason,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payout initiated",
		zap.String("reference", reference),
		zap.Int64("amount_minor", req.Amount),
	)
	return &domain.PayOutResult{
		Reference:    reference,
		TransferCode: transfer.TransferCode,
		Status:       transfer.Status,
	}, nil
}

func (s *service) HandleTransferWebhook(ctx context.Context, event domain.TransferEvent) (err error) {
	defer func() { s.metrics.RecordFlow("transfer_webhook", err) }()

	status := financedomain.OutflowStatusFailed
	gatewayStatus := domain.GatewayTransactionStatusFailed
	if event.Succeeded {
		status = financedomain.OutflowStatusCompleted
		gatewayStatus = domain.GatewayTransactionStatusSuccess
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, txErr := s.finance.ResolveOutflow(ctx, tx, event.Reference, status); txErr != nil {
			return txErr
		}
		txn, txErr := s.repo.FindByReference(ctx, tx, event.Reference)
		if txErr != nil {
			return txErr
		}
		_, txErr = s.repo.Mark(ctx, tx, txn.ID, gatewayStatus)
		return txErr
	})
	if errors.Is(err, financedomain.ErrAlreadyProcessed) {
		return domain.ErrAlreadyProcessed
	}
	if err == nil {
		s.log.Info("transfer webhook processed",
			zap.String("reference", event.Reference),
			zap.Bool("succeeded", event.Succeeded),
		)
	}
	return err
}
