package payment

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lumenis/lumenis/internal/config"
	"github.com/lumenis/lumenis/internal/providers/payment/domain"
	"github.com/lumenis/lumenis/internal/providers/payment/paystack"
)

var Module = fx.Module("providers.payment",
	fx.Provide(provideRegistry),
	fx.Provide(provideGateway),
)

func provideRegistry() *Registry {
	return NewRegistry(
		paystack.Factory{},
	)
}

func provideGateway(registry *Registry, cfg config.Config, log *zap.Logger) (domain.Gateway, error) {
	if cfg.GatewaySecretKey == "" {
		log.Warn("payment gateway secret key missing, money flows disabled")
		return noopGateway{}, nil
	}
	gw, err := registry.NewGateway(cfg.GatewayProvider, domain.GatewayConfig{
		BaseURL:     cfg.GatewayBaseURL,
		SecretKey:   cfg.GatewaySecretKey,
		CallbackURL: cfg.GatewayCallback,
		TimeoutSec:  cfg.GatewayTimeoutSec,
	})
	if err != nil {
		return nil, err
	}
	log.Info("payment gateway configured", zap.String("provider", gw.Provider()))
	return gw, nil
}
