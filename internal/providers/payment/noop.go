package payment

import (
	"context"
	"fmt"

	"github.com/lumenis/lumenis/internal/providers/payment/domain"
)

// noopGateway stands in when no gateway credentials are configured.
// Every call fails, so money flows are disabled rather than silently
// pretending to settle.
type noopGateway struct{}

func (noopGateway) Provider() string { return "noop" }

func (noopGateway) InitiatePayment(_ context.Context, _ domain.InitiatePaymentRequest) (*domain.PaymentIntent, error) {
	return nil, fmt.Errorf("%w: gateway not configured", domain.ErrGateway)
}

func (noopGateway) VerifyTransaction(_ context.Context, _ string) (*domain.VerificationResult, error) {
	return nil, fmt.Errorf("%w: gateway not configured", domain.ErrGateway)
}

func (noopGateway) InitiateTransfer(_ context.Context, _ domain.InitiateTransferRequest) (*domain.TransferResult, error) {
	return nil, fmt.Errorf("%w: gateway not configured", domain.ErrGateway)
}
