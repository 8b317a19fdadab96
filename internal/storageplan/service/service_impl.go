package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/clock"
	"github.com/lumenis/lumenis/internal/config"
	"github.com/lumenis/lumenis/internal/storageplan/domain"
	"github.com/lumenis/lumenis/pkg/sizeutil"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
	Repo   domain.Repository
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	currency string
	repo     domain.Repository
}

func New(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("storageplan.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		currency: p.Config.Currency,
		repo:     p.Repo,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreatePlanRequest) (*domain.Plan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Price <= 0 {
		return nil, domain.ErrInvalidPlan
	}
	sizeBytes, err := sizeutil.Parse(req.Size)
	if err != nil || sizeBytes <= 0 {
		return nil, domain.ErrInvalidPlan
	}
	now := s.clock.Now()
	plan := &domain.Plan{
		ID:         s.genID.Generate(),
		Name:       name,
		SizeBytes:  sizeBytes,
		PriceMinor: req.Price,
		Currency:   s.currency,
		Status:     domain.PlanStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, plan); err != nil {
		return nil, err
	}
	s.log.Info("storage plan created",
		zap.String("name", plan.Name),
		zap.Int64("size_bytes", plan.SizeBytes),
		zap.Int64("price_minor", plan.PriceMinor),
	)
	return plan, nil
}

func (s *service) Update(ctx context.Context, id snowflake.ID, req domain.UpdatePlanRequest) (*domain.Plan, error) {
	plan, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidPlan
		}
		plan.Name = name
	}
	if req.Size != nil {
		sizeBytes, err := sizeutil.Parse(*req.Size)
		if err != nil || sizeBytes <= 0 {
			return nil, domain.ErrInvalidPlan
		}
		plan.SizeBytes = sizeBytes
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, domain.ErrInvalidPlan
		}
		plan.PriceMinor = *req.Price
	}
	plan.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *service) Archive(ctx context.Context, id snowflake.ID) error {
	plan, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if plan.Status == domain.PlanStatusArchived {
		return nil
	}
	plan.Status = domain.PlanStatusArchived
	plan.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, plan); err != nil {
		return err
	}
	s.log.Info("storage plan archived", zap.String("name", plan.Name))
	return nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.Plan, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *service) List(ctx context.Context, includeArchived bool) ([]domain.Plan, error) {
	return s.repo.List(ctx, s.db, includeArchived)
}
