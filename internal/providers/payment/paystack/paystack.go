package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lumenis/lumenis/internal/providers/payment/domain"
)

const defaultBaseURL = "https://api.paystack.co"

type Factory struct{}

func (Factory) Provider() string { return "paystack" }

func (Factory) NewGateway(cfg domain.GatewayConfig) (domain.Gateway, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("paystack: secret key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &gateway{
		baseURL:     baseURL,
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

type gateway struct {
	baseURL     string
	secretKey   string
	callbackURL string
	client      *http.Client
}

func (g *gateway) Provider() string { return "paystack" }

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	PaidAt   string `json:"paid_at"`
}

type transferData struct {
	TransferCode string `json:"transfer_code"`
	Status       string `json:"status"`
	Reference    string `json:"reference"`
}

func (g *gateway) InitiatePayment(ctx context.Context, req domain.InitiatePaymentRequest) (*domain.PaymentIntent, error) {
	body := map[string]interface{}{
		"email":     req.Email,
		"amount":    req.AmountMinor,
		"currency":  req.Currency,
		"reference": req.Reference,
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	} else if g.callbackURL != "" {
		body["callback_url"] = g.callbackURL
	}
	var data initializeData
	if err := g.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	return &domain.PaymentIntent{
		Reference:        data.Reference,
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
	}, nil
}

func (g *gateway) VerifyTransaction(ctx context.Context, reference string) (*domain.VerificationResult, error) {
	path := "/transaction/verify/" + url.PathEscape(reference)
	var data verifyData
	if err := g.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return &domain.VerificationResult{
		Reference:   reference,
		Status:      mapVerifyStatus(data.Status),
		AmountMinor: data.Amount,
		Currency:    data.Currency,
		PaidAt:      data.PaidAt,
	}, nil
}

func (g *gateway) InitiateTransfer(ctx context.Context, req domain.InitiateTransferRequest) (*domain.TransferResult, error) {
	body := map[string]interface{}{
		"source":    "balance",
		"amount":    req.AmountMinor,
		"currency":  req.Currency,
		"recipient": req.RecipientCode,
		"reference": req.Reference,
		"reason":    req.Reason,
	}
	var data transferData
	if err := g.do(ctx, http.MethodPost, "/transfer", body, &data); err != nil {
		return nil, err
	}
	reference := data.Reference
	if reference == "" {
		reference = req.Reference
	}
	return &domain.TransferResult{
		Reference:    reference,
		TransferCode: data.TransferCode,
		Status:       data.Status,
	}, nil
}

func (g *gateway) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: http %d", domain.ErrGateway, resp.StatusCode)
	}
	if resp.StatusCode >= 400 || !env.Status {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("%w: %s", domain.ErrGatewayDeclined, env.Message)
		}
		return fmt.Errorf("%w: %s", domain.ErrGateway, env.Message)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: malformed response", domain.ErrGateway)
		}
	}
	return nil
}

func mapVerifyStatus(status string) domain.VerificationStatus {
	switch strings.ToLower(status) {
	case "success":
		return domain.VerificationStatusSuccess
	case "failed", "abandoned", "reversed":
		return domain.VerificationStatusFailed
	default:
		return domain.VerificationStatusPending
	}
}
