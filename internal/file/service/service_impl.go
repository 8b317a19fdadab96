package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/clock"
	"github.com/lumenis/lumenis/internal/config"
	"github.com/lumenis/lumenis/internal/file/domain"
	quotadomain "github.com/lumenis/lumenis/internal/storagequota/domain"
	"github.com/lumenis/lumenis/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
	Repo   domain.Repository
	Blobs  domain.BlobStore
	Quota  quotadomain.Service
}

type service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	allowedExt map[string]struct{}
	repo       domain.Repository
	blobs      domain.BlobStore
	quota      quotadomain.Service
}

func New(p Params) domain.Service {
	allowed := make(map[string]struct{}, len(p.Config.AllowedExtensions))
	for _, ext := range p.Config.AllowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	return &service{
		db:         p.DB,
		log:        p.Log.Named("file.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		allowedExt: allowed,
		repo:       p.Repo,
		blobs:      p.Blobs,
		quota:      p.Quota,
	}
}

func (s *service) Upload(ctx context.Context, schoolID, ownerID snowflake.ID, req domain.UploadRequest) (*domain.File, error) {
	name := path.Base(strings.TrimSpace(req.Name))
	if name == "" || name == "." || name == "/" || req.Size <= 0 || req.Content == nil {
		return nil, domain.ErrInvalidFile
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		return nil, domain.ErrInvalidFile
	}
	if _, ok := s.allowedExt[ext]; !ok {
		return nil, domain.ErrExtensionNotAllowed
	}

	id := s.genID.Generate()
	file := &domain.File{
		ID:        id,
		SchoolID:  schoolID,
		OwnerID:   ownerID,
		Name:      name,
		Extension: ext,
		SizeBytes: req.Size,
		Path:      fmt.Sprintf("%s/%s/%s", schoolID, ownerID, id),
		CreatedAt: s.clock.Now(),
	}

	stored := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		purchase, txErr := s.quota.Reserve(ctx, tx, ownerID, req.Size)
		if txErr != nil {
			return txErr
		}
		file.PurchaseID = purchase.ID
		if txErr := s.repo.Insert(ctx, tx, file); txErr != nil {
			return txErr
		}
		// Blob write happens last so a failure aborts the reservation
		// with the transaction.
		if txErr := s.blobs.Store(ctx, file.Path, req.Content, req.Size); txErr != nil {
			return txErr
		}
		stored = true
		return nil
	})
	if err != nil {
		if stored {
			if delErr := s.blobs.Delete(ctx, file.Path); delErr != nil {
				s.log.Warn("orphan blob not removed", zap.String("path", file.Path), zap.Error(delErr))
			}
		}
		return nil, err
	}
	s.log.Info("file admitted",
		zap.Int64("owner_id", ownerID.Int64()),
		zap.String("name", file.Name),
		zap.Int64("size_bytes", file.SizeBytes),
	)
	return file, nil
}

func (s *service) Delete(ctx context.Context, ownerID, fileID snowflake.ID) error {
	var blobPath string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		file, txErr := s.repo.FindByID(ctx, tx, fileID)
		if txErr != nil {
			return txErr
		}
		if file.OwnerID != ownerID {
			return domain.ErrNotOwner
		}
		blobPath = file.Path
		if txErr := s.repo.Delete(ctx, tx, fileID); txErr != nil {
			return txErr
		}
		return s.quota.Release(ctx, tx, file.PurchaseID, file.SizeBytes)
	})
	if err != nil {
		return err
	}
	if delErr := s.blobs.Delete(ctx, blobPath); delErr != nil {
		s.log.Warn("blob not removed after delete", zap.String("path", blobPath), zap.Error(delErr))
	}
	return nil
}

func (s *service) Get(ctx context.Context, ownerID, fileID snowflake.ID) (*domain.File, error) {
	file, err := s.repo.FindByID(ctx, s.db, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, domain.ErrNotOwner
	}
	return file, nil
}

func (s *service) List(ctx context.Context, ownerID snowflake.ID, page pagination.Pagination) ([]domain.File, *pagination.PageInfo, error) {
	var cursor *pagination.Cursor
	if page.PageToken != "" {
		decoded, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, nil, domain.ErrInvalidPageToken
		}
		cursor = decoded
	}
	limit := page.Limit()
	files, err := s.repo.ListByOwner(ctx, s.db, ownerID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}
	return pagination.TrimPage(files, limit, func(f domain.File) pagination.Cursor {
		return pagination.Cursor{ID: f.ID.Int64(), CreatedAt: f.CreatedAt}
	})
}
