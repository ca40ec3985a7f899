package accrual

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines monthly accrual persistence operations
type Repository interface {
	// UpsertClosed writes the row only if the natural key is absent; closed
	// months are immutable and a re-run must be a no-op.
	UpsertClosed(ctx context.Context, a *MonthlyAccrual) error

	// UpsertOpen writes or overwrites the row for the current open month.
	UpsertOpen(ctx context.Context, a *MonthlyAccrual) error

	// GetForYear returns all accrual rows for an employee's leave year in
	// accrual order.
	GetForYear(ctx context.Context, employeeID int64, leaveYear int) ([]*MonthlyAccrual, error)

	// CumulativeAt returns the cumulative entitlement per leave type as of the
	// given month. Missing types simply have no entry.
	CumulativeAt(ctx context.Context, employeeID int64, leaveYear int, month time.Month) (map[string]decimal.Decimal, error)

	WithTx(tx pgx.Tx) Repository
}
