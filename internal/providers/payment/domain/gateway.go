package domain

import (
	"context"
	"errors"
)

type VerificationStatus string

const (
	VerificationStatusSuccess VerificationStatus = "success"
	VerificationStatusFailed  VerificationStatus = "failed"
	VerificationStatusPending VerificationStatus = "pending"
)

type InitiatePaymentRequest struct {
	Email       string
	AmountMinor int64
	Currency    string
	Reference   string
	CallbackURL string
}

// PaymentIntent is the hosted checkout handle returned by the gateway.
type PaymentIntent struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

type VerificationResult struct {
	Reference   string
	Status      VerificationStatus
	AmountMinor int64
	Currency    string
	PaidAt      string
}

type InitiateTransferRequest struct {
	RecipientCode string
	AmountMinor   int64
	Currency      string
	Reference     string
	Reason        string
}

type TransferResult struct {
	Reference    string
	TransferCode string
	Status       string
}

// Gateway abstracts the external payment processor. Implementations
// must be safe for concurrent use.
type Gateway interface {
	Provider() string
	InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*PaymentIntent, error)
	VerifyTransaction(ctx context.Context, reference string) (*VerificationResult, error)
	InitiateTransfer(ctx context.Context, req InitiateTransferRequest) (*TransferResult, error)
}

// GatewayConfig carries per-provider credentials into a factory.
type GatewayConfig struct {
	BaseURL     string
	SecretKey   string
	CallbackURL string
	TimeoutSec  int
}

type GatewayFactory interface {
	Provider() string
	NewGateway(cfg GatewayConfig) (Gateway, error)
}

var (
	ErrProviderNotFound = errors.New("payment_provider_not_found")
	ErrGateway          = errors.New("payment_gateway_error")
	ErrGatewayDeclined  = errors.New("payment_gateway_declined")
)
