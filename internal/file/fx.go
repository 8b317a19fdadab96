package file

import (
	"go.uber.org/fx"

	"github.com/lumenis/lumenis/internal/config"
	"github.com/lumenis/lumenis/internal/file/blob"
	"github.com/lumenis/lumenis/internal/file/domain"
	"github.com/lumenis/lumenis/internal/file/repository"
	"github.com/lumenis/lumenis/internal/file/service"
)

var Module = fx.Module("file.service",
	fx.Provide(provideBlobStore),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

func provideBlobStore(cfg config.Config) (domain.BlobStore, error) {
	return blob.NewLocalStore(cfg.BlobDir)
}
