package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hr-leave-ledger/internal/domain/accrual"
	"github.com/hr-leave-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccrualRepository implements the accrual.Repository interface for PostgreSQL
type AccrualRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAccrualRepository creates a new PostgreSQL monthly accrual repository
func NewAccrualRepository(logger *slog.Logger, db *persistence.PostgresDB) accrual.Repository {
	return &AccrualRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *AccrualRepository) WithTx(tx pgx.Tx) accrual.Repository {
	return &AccrualRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// UpsertClosed writes the accrual row only if its natural key is absent.
// Closed months are immutable; re-running a past month must not change it.
func (r *AccrualRepository) UpsertClosed(ctx context.Context, a *accrual.MonthlyAccrual) error {
	query := `
		INSERT INTO monthly_leave_accruals (employee_id, leave_year, month, leave_type, accrued, cumulative, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (employee_id, leave_year, month, leave_type) DO NOTHING
	`

	_, err := r.querier.Exec(ctx, query,
		a.EmployeeID,
		a.LeaveYear,
		int(a.Month),
		a.LeaveType,
		a.Accrued,
		a.Cumulative,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert closed monthly accrual",
			"employee_id", a.EmployeeID,
			"leave_year", a.LeaveYear,
			"month", int(a.Month),
			"leave_type", a.LeaveType,
			"error", err,
		)
		return fmt.Errorf("failed to upsert closed monthly accrual: %w", err)
	}

	return nil
}

// UpsertOpen writes or overwrites the accrual row for the current open month
func (r *AccrualRepository) UpsertOpen(ctx context.Context, a *accrual.MonthlyAccrual) error {
	query := `
		INSERT INTO monthly_leave_accruals (employee_id, leave_year, month, leave_type, accrued, cumulative, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (employee_id, leave_year, month, leave_type)
		DO UPDATE SET accrued = EXCLUDED.accrued, cumulative = EXCLUDED.cumulative, updated_at = EXCLUDED.updated_at
	`

	_, err := r.querier.Exec(ctx, query,
		a.EmployeeID,
		a.LeaveYear,
		int(a.Month),
		a.LeaveType,
		a.Accrued,
		a.Cumulative,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert open monthly accrual",
			"employee_id", a.EmployeeID,
			"leave_year", a.LeaveYear,
			"month", int(a.Month),
			"leave_type", a.LeaveType,
			"error", err,
		)
		return fmt.Errorf("failed to upsert open monthly accrual: %w", err)
	}

	return nil
}

// GetForYear retrieves all accrual rows for an employee's leave year in
// accrual order
func (r *AccrualRepository) GetForYear(ctx context.Context, employeeID int64, leaveYear int) ([]*accrual.MonthlyAccrual, error) {
	query := `
		SELECT id, employee_id, leave_year, month, leave_type, accrued, cumulative, created_at, updated_at
		FROM monthly_leave_accruals
		WHERE employee_id = $1 AND leave_year = $2
		ORDER BY id ASC
	`

	rows, err := r.querier.Query(ctx, query, employeeID, leaveYear)
	if err != nil {
		r.logger.Error("Failed to get monthly accruals", "employee_id", employeeID, "leave_year", leaveYear, "error", err)
		return nil, fmt.Errorf("failed to get monthly accruals: %w", err)
	}
	defer rows.Close()

	var accruals []*accrual.MonthlyAccrual
	for rows.Next() {
		var a accrual.MonthlyAccrual
		var month int
		err := rows.Scan(
			&a.ID,
			&a.EmployeeID,
			&a.LeaveYear,
			&month,
			&a.LeaveType,
			&a.Accrued,
			&a.Cumulative,
			&a.CreatedAt,
			&a.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan monthly accrual", "error", err)
			return nil, fmt.Errorf("failed to scan monthly accrual: %w", err)
		}
		a.Month = time.Month(month)
		accruals = append(accruals, &a)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over monthly accruals", "error", err)
		return nil, fmt.Errorf("error iterating over monthly accruals: %w", err)
	}

	return accruals, nil
}

// CumulativeAt returns the cumulative entitlement per leave type as of the
// given month. Leave types with no accrual rows yet have no entry.
func (r *AccrualRepository) CumulativeAt(ctx context.Context, employeeID int64, leaveYear int, month time.Month) (map[string]decimal.Decimal, error) {
	query := `
		SELECT leave_type, cumulative
		FROM monthly_leave_accruals
		WHERE employee_id = $1 AND leave_year = $2 AND month = $3
	`

	rows, err := r.querier.Query(ctx, query, employeeID, leaveYear, int(month))
	if err != nil {
		r.logger.Error("Failed to get cumulative accruals", "employee_id", employeeID, "leave_year", leaveYear, "month", int(month), "error", err)
		return nil, fmt.Errorf("failed to get cumulative accruals: %w", err)
	}
	defer rows.Close()

	cumulative := make(map[string]decimal.Decimal)
	for rows.Next() {
		var leaveType string
		var value decimal.Decimal
		if err := rows.Scan(&leaveType, &value); err != nil {
			r.logger.Error("Failed to scan cumulative accrual", "error", err)
			return nil, fmt.Errorf("failed to scan cumulative accrual: %w", err)
		}
		cumulative[leaveType] = value
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over cumulative accruals", "error", err)
		return nil, fmt.Errorf("error iterating over cumulative accruals: %w", err)
	}

	return cumulative, nil
}
