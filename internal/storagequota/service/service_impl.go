package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/clock"
	"github.com/lumenis/lumenis/internal/storagequota/domain"
	"github.com/lumenis/lumenis/pkg/sizeutil"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("storagequota.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *service) Grant(ctx context.Context, tx *gorm.DB, schoolID, accountID, planID snowflake.ID, sizeBytes, amountPaidMinor int64) (*domain.Purchase, error) {
	if sizeBytes <= 0 {
		return nil, domain.ErrInvalidBytes
	}
	now := s.clock.Now()
	purchase := &domain.Purchase{
		ID:              s.genID.Generate(),
		SchoolID:        schoolID,
		AccountID:       accountID,
		PlanID:          planID,
		TotalBytes:      sizeBytes,
		UsedBytes:       0,
		AmountPaidMinor: amountPaidMinor,
		Status:          domain.PurchaseStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	stored, err := s.repo.Upsert(ctx, tx, purchase)
	if err != nil {
		return nil, err
	}
	// Added capacity can lift an exhausted purchase back to active.
	status := domain.StatusFor(stored.UsedBytes, stored.TotalBytes)
	if status != stored.Status {
		if err := s.repo.UpdateStatus(ctx, tx, stored.ID, status); err != nil {
			return nil, err
		}
		stored.Status = status
	}
	s.log.Info("storage granted",
		zap.Int64("account_id", accountID.Int64()),
		zap.Int64("plan_id", planID.Int64()),
		zap.String("size", sizeutil.Format(sizeBytes)),
	)
	return stored, nil
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, accountID snowflake.ID, bytes int64) (*domain.Purchase, error) {
	if bytes <= 0 {
		return nil, domain.ErrInvalidBytes
	}
	purchases, err := s.repo.ListByAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if len(purchases) == 0 {
		return nil, domain.ErrNoActivePlan
	}

	// Oldest purchase with headroom wins. The guarded consume re-checks
	// headroom, so a concurrent reserve just moves us to the next
	// candidate.
	exhausted := true
	for i := range purchases {
		p := &purchases[i]
		if p.TotalBytes > p.UsedBytes {
			exhausted = false
		}
		if p.TotalBytes-p.UsedBytes < bytes {
			continue
		}
		ok, err := s.repo.ConsumeGuarded(ctx, tx, p.ID, bytes)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		updated, err := s.repo.FindByID(ctx, tx, p.ID)
		if err != nil {
			return nil, err
		}
		status := domain.StatusFor(updated.UsedBytes, updated.TotalBytes)
		if status != updated.Status {
			if err := s.repo.UpdateStatus(ctx, tx, updated.ID, status); err != nil {
				return nil, err
			}
			updated.Status = status
		}
		return updated, nil
	}
	if exhausted {
		return nil, domain.ErrQuotaExhausted
	}
	return nil, domain.ErrInsufficientQuota
}

func (s *service) Release(ctx context.Context, tx *gorm.DB, purchaseID snowflake.ID, bytes int64) error {
	if bytes <= 0 {
		return domain.ErrInvalidBytes
	}
	if _, err := s.repo.FindByID(ctx, tx, purchaseID); err != nil {
		return err
	}
	if err := s.repo.ReleaseFloored(ctx, tx, purchaseID, bytes); err != nil {
		return err
	}
	updated, err := s.repo.FindByID(ctx, tx, purchaseID)
	if err != nil {
		return err
	}
	status := domain.StatusFor(updated.UsedBytes, updated.TotalBytes)
	if status != updated.Status {
		return s.repo.UpdateStatus(ctx, tx, updated.ID, status)
	}
	return nil
}

func (s *service) Usage(ctx context.Context, accountID snowflake.ID) (*domain.QuotaInfo, error) {
	purchases, err := s.repo.ListByAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if len(purchases) == 0 {
		return nil, domain.ErrNoActivePlan
	}
	var total, used int64
	for _, p := range purchases {
		total += p.TotalBytes
		used += p.UsedBytes
	}
	return &domain.QuotaInfo{
		TotalBytes:     total,
		UsedBytes:      used,
		AvailableBytes: total - used,
		UsagePercent:   sizeutil.UsagePercent(used, total),
		Status:         domain.StatusFor(used, total),
	}, nil
}

func (s *service) ListPurchases(ctx context.Context, accountID snowflake.ID) ([]domain.Purchase, error) {
	return s.repo.ListByAccount(ctx, s.db, accountID)
}
