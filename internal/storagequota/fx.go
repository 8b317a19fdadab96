package storagequota

import (
	"go.uber.org/fx"

	"github.com/lumenis/lumenis/internal/storagequota/repository"
	"github.com/lumenis/lumenis/internal/storagequota/service"
)

var Module = fx.Module("storagequota.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
