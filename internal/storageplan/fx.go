package storageplan

import (
	"go.uber.org/fx"

	"github.com/lumenis/lumenis/internal/storageplan/repository"
	"github.com/lumenis/lumenis/internal/storageplan/service"
)

var Module = fx.Module("storageplan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
