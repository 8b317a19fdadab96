package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	storagequotadomain "github.com/lumenis/lumenis/internal/storagequota/domain"
	walletdomain "github.com/lumenis/lumenis/internal/wallet/domain"
)

type PurchaseStorageResult struct {
	Purchase    *storagequotadomain.Purchase `json:"purchase"`
	Transaction *walletdomain.Transaction    `json:"transaction"`
	Balance     int64                        `json:"balance"`
}

type FundWalletResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

type VerifyPaymentResult struct {
	Reference string                   `json:"reference"`
	Status    GatewayTransactionStatus `json:"status"`
	Credited  bool                     `json:"credited"`
}

type PayOutRequest struct {
	RecipientCode string `json:"recipient_code" binding:"required"`
	Amount        int64  `json:"amount" binding:"required"`
	Reason        string `json:"reason"`
}

type PayOutResult struct {
	Reference    string `json:"reference"`
	TransferCode string `json:"transfer_code"`
	Status       string `json:"status"`
}

type TransferEvent struct {
	Reference string
	Succeeded bool
}

// Service coordinates multi-module money flows. Each flow's database
// writes happen inside a single transaction. Funding gateway calls stay
// outside the transaction so an external timeout can never hold row
// locks; the payout transfer is the exception and runs inside its unit,
// so a declined initiation persists nothing.
type Service interface {
	// PurchaseStorage debits the wallet and grants plan capacity
	// atomically. The debit settles in the same transaction since no
	// external party is involved.
	PurchaseStorage(ctx context.Context, schoolID, accountID, planID snowflake.ID) (*PurchaseStorageResult, error)

	// FundWallet opens a gateway checkout for the amount. Nothing is
	// credited until VerifyPayment confirms.
	FundWallet(ctx context.Context, schoolID, accountID snowflake.ID, amountMinor int64, email string) (*FundWalletResult, error)

	// VerifyPayment confirms a funding reference with the gateway and
	// credits the wallet exactly once.
	VerifyPayment(ctx context.Context, reference string) (*VerifyPaymentResult, error)

	// PayOut sends institutional money out. Sufficiency is checked
	// against the financial summary inside the recording transaction,
	// before the gateway is contacted.
	PayOut(ctx context.Context, schoolID, accountID snowflake.ID, req PayOutRequest) (*PayOutResult, error)

	// HandleTransferWebhook resolves the pending payout named by the
	// event. Replayed events return ErrAlreadyProcessed.
	HandleTransferWebhook(ctx context.Context, event TransferEvent) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, txn *GatewayTransaction) error
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*GatewayTransaction, error)
	// Mark transitions initiated -> status; reports false when the row
	// had already left initiated.
	Mark(ctx context.Context, db *gorm.DB, id snowflake.ID, status GatewayTransactionStatus) (bool, error)
}

var (
	ErrTransactionNotFound    = errors.New("gateway_transaction_not_found")
	ErrAlreadyProcessed       = errors.New("gateway_transaction_already_processed")
	ErrDuplicateReference     = errors.New("duplicate_gateway_reference")
	ErrInvalidAmount          = errors.New("invalid_treasury_amount")
	ErrInsufficientNetBalance = errors.New("insufficient_net_balance")
	ErrVerificationPending    = errors.New("gateway_verification_pending")
)
