package wallet

import (
	"go.uber.org/fx"

	"github.com/lumenis/lumenis/internal/wallet/repository"
	"github.com/lumenis/lumenis/internal/wallet/service"
)

var Module = fx.Module("wallet.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
