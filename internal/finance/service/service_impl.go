package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/clock"
	"github.com/lumenis/lumenis/internal/finance/domain"
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
		log:   p.Log.Named("finance.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *service) RecordInflow(ctx context.Context, tx *gorm.DB, schoolID snowflake.ID, accountID *snowflake.ID, amountMinor int64, kind domain.FlowKind, description string, reference *string) (*domain.InflowRecord, error) {
	if amountMinor <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	record := &domain.InflowRecord{
		ID:          s.genID.Generate(),
		SchoolID:    schoolID,
		AccountID:   accountID,
		AmountMinor: amountMinor,
		Kind:        kind,
		Description: description,
		Reference:   reference,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.InsertInflow(ctx, tx, record); err != nil {
		return nil, err
	}
	if _, err := s.Recompute(ctx, tx); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) RecordOutflow(ctx context.Context, tx *gorm.DB, schoolID snowflake.ID, accountID *snowflake.ID, amountMinor int64, kind domain.FlowKind, description, reference string) (*domain.OutflowRecord, error) {
	if amountMinor <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	now := s.clock.Now()
	record := &domain.OutflowRecord{
		ID:          s.genID.Generate(),
		SchoolID:    schoolID,
		AccountID:   accountID,
		AmountMinor: amountMinor,
		Kind:        kind,
		Description: description,
		Reference:   reference,
		Status:      domain.OutflowStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertOutflow(ctx, tx, record); err != nil {
		return nil, err
	}
	if _, err := s.Recompute(ctx, tx); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) ResolveOutflow(ctx context.Context, tx *gorm.DB, reference string, status domain.OutflowStatus) (*domain.OutflowRecord, error) {
	if status != domain.OutflowStatusCompleted && status != domain.OutflowStatusFailed {
		return nil, domain.ErrInvalidResolution
	}
	record, err := s.repo.FindOutflowByReference(ctx, tx, reference)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.MarkOutflow(ctx, tx, record.ID, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAlreadyProcessed
	}
	record.Status = status
	if _, err := s.Recompute(ctx, tx); err != nil {
		return nil, err
	}
	s.log.Info("outflow resolved",
		zap.String("reference", reference),
		zap.String("status", string(status)),
	)
	return record, nil
}

// Recompute rebuilds the rollup from scratch rather than applying a
// delta, so a drifted summary self-heals on the next flow.
func (s *service) Recompute(ctx context.Context, tx *gorm.DB) (*domain.FinancialSummary, error) {
	inflow, err := s.repo.SumInflows(ctx, tx)
	if err != nil {
		return nil, err
	}
	outflow, err := s.repo.SumOutflows(ctx, tx)
	if err != nil {
		return nil, err
	}
	summary := &domain.FinancialSummary{
		ID:           domain.SummaryID,
		TotalInflow:  inflow,
		TotalOutflow: outflow,
		NetBalance:   inflow - outflow,
		LastUpdated:  s.clock.Now(),
	}
	if err := s.repo.UpsertSummary(ctx, tx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// ReserveNet holds the summary row for the rest of the transaction, so
// two payouts racing for the same funds decide in order.
func (s *service) ReserveNet(ctx context.Context, tx *gorm.DB, amountMinor int64) (bool, error) {
	if amountMinor <= 0 {
		return false, domain.ErrInvalidAmount
	}
	return s.repo.GuardNet(ctx, tx, amountMinor, s.clock.Now())
}

func (s *service) Summary(ctx context.Context) (*domain.FinancialSummary, error) {
	return s.repo.FindSummary(ctx, s.db)
}
