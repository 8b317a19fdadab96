package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service keeps the institutional books. Every mutating operation
// recomputes the summary inside the caller's transaction, so readers
// never observe a flow without its rollup.
type Service interface {
	RecordInflow(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, accountID *snowflake.ID, amountMinor int64, kind FlowKind, description string, reference *string) (*InflowRecord, error)

	// RecordOutflow opens a pending outflow. Pending outflows already
	// count against the summary; a later failed resolution backs the
	// amount out.
	RecordOutflow(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, accountID *snowflake.ID, amountMinor int64, kind FlowKind, description, reference string) (*OutflowRecord, error)

	// ResolveOutflow settles the pending outflow carrying reference.
	ResolveOutflow(ctx context.Context, db *gorm.DB, reference string, status OutflowStatus) (*OutflowRecord, error)

	// ReserveNet reports whether the net balance covers amountMinor. The
	// guard is a conditional write on the summary row, so within a
	// transaction it also serializes concurrent reservations; callers
	// must record the matching outflow in the same transaction.
	ReserveNet(ctx context.Context, db *gorm.DB, amountMinor int64) (bool, error)

	// Recompute rebuilds the summary from the flow tables.
	Recompute(ctx context.Context, db *gorm.DB) (*FinancialSummary, error)

	Summary(ctx context.Context) (*FinancialSummary, error)
}

type Repository interface {
	InsertInflow(ctx context.Context, db *gorm.DB, record *InflowRecord) error
	InsertOutflow(ctx context.Context, db *gorm.DB, record *OutflowRecord) error
	FindOutflowByReference(ctx context.Context, db *gorm.DB, reference string) (*OutflowRecord, error)
	// MarkOutflow transitions pending -> status; reports false when the
	// row was not pending.
	MarkOutflow(ctx context.Context, db *gorm.DB, id snowflake.ID, status OutflowStatus) (bool, error)
	SumInflows(ctx context.Context, db *gorm.DB) (int64, error)
	// SumOutflows counts pending and completed rows only.
	SumOutflows(ctx context.Context, db *gorm.DB) (int64, error)
	// GuardNet updates last_updated on the summary row only when
	// net_balance >= amountMinor; reports whether the guard held.
	GuardNet(ctx context.Context, db *gorm.DB, amountMinor int64, now time.Time) (bool, error)
	UpsertSummary(ctx context.Context, db *gorm.DB, summary *FinancialSummary) error
	FindSummary(ctx context.Context, db *gorm.DB) (*FinancialSummary, error)
}

var (
	ErrInvalidAmount     = errors.New("invalid_flow_amount")
	ErrOutflowNotFound   = errors.New("outflow_not_found")
	ErrAlreadyProcessed  = errors.New("outflow_already_processed")
	ErrDuplicateOutflow  = errors.New("duplicate_outflow_reference")
	ErrInvalidResolution = errors.New("invalid_outflow_resolution")
)
