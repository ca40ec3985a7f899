package balance

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines per-type ledger persistence operations
type Repository interface {
	Create(ctx context.Context, b *LeaveTypeBalance) error
	GetForYear(ctx context.Context, employeeID int64, leaveYear int) ([]*LeaveTypeBalance, error)
	Update(ctx context.Context, b *LeaveTypeBalance) error

	// LockForUpdate obtains a row-level lock on one (employee, year, type)
	// bucket. Two concurrent settlements on the same bucket serialize here.
	LockForUpdate(ctx context.Context, employeeID int64, leaveYear int, leaveType string) (*LeaveTypeBalance, error)

	// LockAllForUpdate locks every row of an employee's leave year in a stable
	// order, for reconciliation.
	LockAllForUpdate(ctx context.Context, employeeID int64, leaveYear int) ([]*LeaveTypeBalance, error)

	WithTx(tx pgx.Tx) Repository
}

// AggregateRepository defines summary row persistence operations
type AggregateRepository interface {
	// Upsert writes the aggregate row, replacing totals on conflict of the
	// (employee, year) natural key.
	Upsert(ctx context.Context, a *AggregateBalance) error

	Get(ctx context.Context, employeeID int64, leaveYear int) (*AggregateBalance, error)

	// LockForUpdate obtains a row-level lock on the summary row.
	LockForUpdate(ctx context.Context, employeeID int64, leaveYear int) (*AggregateBalance, error)

	// Update persists modified totals using optimistic locking on the
	// version column.
	Update(ctx context.Context, a *AggregateBalance) error

	WithTx(tx pgx.Tx) AggregateRepository
}
