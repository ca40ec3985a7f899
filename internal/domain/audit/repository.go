package audit

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// OutboxRepository manages staged audit messages in PostgreSQL
type OutboxRepository interface {
	Create(ctx context.Context, message *OutboxMessage) error
	GetPending(ctx context.Context, limit int) ([]*OutboxMessage, error)
	UpdateStatus(ctx context.Context, id int64, status OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) OutboxRepository
}

// HistoryRepository manages the published audit history store
type HistoryRepository interface {
	InsertDriftReport(ctx context.Context, report *DriftReport) error
	InsertSettlementEvent(ctx context.Context, ev *SettlementEvent) error
	DriftReportsForEmployee(ctx context.Context, employeeID int64, leaveYear int, limit, offset int) ([]*DriftReport, error)
}

// ErrMessageNotFound indicates a missing outbox message
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "audit outbox message not found: " + strconv.FormatInt(e.ID, 10)
}
