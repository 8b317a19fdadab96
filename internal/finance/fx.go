package finance

import (
	"go.uber.org/fx"

	"github.com/lumenis/lumenis/internal/finance/repository"
	"github.com/lumenis/lumenis/internal/finance/service"
)

var Module = fx.Module("finance.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
