package identity

import (
	"go.uber.org/fx"

	"github.com/lumenis/lumenis/internal/identity/repository"
	"github.com/lumenis/lumenis/internal/identity/service"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
