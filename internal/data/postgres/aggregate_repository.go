package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hr-leave-ledger/internal/domain/balance"
	"github.com/hr-leave-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// AggregateRepository implements the balance.AggregateRepository interface for PostgreSQL
type AggregateRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAggregateRepository creates a new PostgreSQL aggregate balance repository
func NewAggregateRepository(logger *slog.Logger, db *persistence.PostgresDB) balance.AggregateRepository {
	return &AggregateRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *AggregateRepository) WithTx(tx pgx.Tx) balance.AggregateRepository {
	return &AggregateRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Upsert writes the summary row, replacing totals on conflict of the
// (employee_id, leave_year) natural key.
func (r *AggregateRepository) Upsert(ctx context.Context, a *balance.AggregateBalance) error {
	query := `
		INSERT INTO leave_balances (employee_id, leave_year, total_allocated, total_taken, total_remaining, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (employee_id, leave_year)
		DO UPDATE SET total_allocated = EXCLUDED.total_allocated, total_taken = EXCLUDED.total_taken, total_remaining = EXCLUDED.total_remaining, version = leave_balances.version + 1, updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		a.EmployeeID,
		a.LeaveYear,
		a.TotalAllocated,
		a.TotalTaken,
		a.TotalRemaining,
		a.Version,
		a.CreatedAt,
		a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		r.logger.Error("Failed to upsert aggregate balance",
			"employee_id", a.EmployeeID,
			"leave_year", a.LeaveYear,
			"error", err,
		)
		return fmt.Errorf("failed to upsert aggregate balance: %w", err)
	}

	return nil
}

// Get retrieves the summary row for an employee's leave year
func (r *AggregateRepository) Get(ctx context.Context, employeeID int64, leaveYear int) (*balance.AggregateBalance, error) {
	query := `
		SELECT id, employee_id, leave_year, total_allocated, total_taken, total_remaining, version, created_at, updated_at
		FROM leave_balances
		WHERE employee_id = $1 AND leave_year = $2
	`

	var a balance.AggregateBalance
	err := r.querier.QueryRow(ctx, query, employeeID, leaveYear).Scan(
		&a.ID,
		&a.EmployeeID,
		&a.LeaveYear,
		&a.TotalAllocated,
		&a.TotalTaken,
		&a.TotalRemaining,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, balance.ErrBalanceNotFound{EmployeeID: employeeID, LeaveYear: leaveYear}
		}
		r.logger.Error("Failed to get aggregate balance", "employee_id", employeeID, "leave_year", leaveYear, "error", err)
		return nil, fmt.Errorf("failed to get aggregate balance: %w", err)
	}

	return &a, nil
}

// LockForUpdate obtains a pessimistic lock on the summary row and returns its
// current state. Must be called within a transaction.
func (r *AggregateRepository) LockForUpdate(ctx context.Context, employeeID int64, leaveYear int) (*balance.AggregateBalance, error) {
	query := `
		SELECT id, employee_id, leave_year, total_allocated, total_taken, total_remaining, version, created_at, updated_at
		FROM leave_balances
		WHERE employee_id = $1 AND leave_year = $2
		FOR UPDATE
	`

	var a balance.AggregateBalance
	err := r.querier.QueryRow(ctx, query, employeeID, leaveYear).Scan(
		&a.ID,
		&a.EmployeeID,
		&a.LeaveYear,
		&a.TotalAllocated,
		&a.TotalTaken,
		&a.TotalRemaining,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, balance.ErrBalanceNotFound{EmployeeID: employeeID, LeaveYear: leaveYear}
		}
		r.logger.Error("Failed to lock aggregate balance for update", "employee_id", employeeID, "leave_year", leaveYear, "error", err)
		return nil, fmt.Errorf("failed to lock aggregate balance for update: %w", err)
	}

	return &a, nil
}

// Update persists modified totals using optimistic locking.
// Returns ErrConcurrentModification if the row was modified between read and update.
func (r *AggregateRepository) Update(ctx context.Context, a *balance.AggregateBalance) error {
	query := `
		UPDATE leave_balances
		SET total_allocated = $1, total_taken = $2, total_remaining = $3, version = $4, updated_at = $5
		WHERE id = $6 AND version = $7
	`

	result, err := r.querier.Exec(ctx, query,
		a.TotalAllocated,
		a.TotalTaken,
		a.TotalRemaining,
		a.Version,
		a.UpdatedAt,
		a.ID,
		a.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update aggregate balance", "id", a.ID, "error", err)
		return fmt.Errorf("failed to update aggregate balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return balance.ErrConcurrentModification{
			EmployeeID: a.EmployeeID,
			LeaveYear:  a.LeaveYear,
		}
	}

	return nil
}
