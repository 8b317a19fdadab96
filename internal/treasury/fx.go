package treasury

import (
	"go.uber.org/fx"

	"github.com/lumenis/lumenis/internal/treasury/repository"
	"github.com/lumenis/lumenis/internal/treasury/service"
)

var Module = fx.Module("treasury.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
