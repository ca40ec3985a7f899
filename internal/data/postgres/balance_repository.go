// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the leave ledger engine.
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

// BalanceRepository implements the balance.Repository interface for PostgreSQL
type BalanceRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBalanceRepository creates a new PostgreSQL per-type balance repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewBalanceRepository(logger *slog.Logger, db *persistence.PostgresDB) balance.Repository {
	return &BalanceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls. The returned repository will use the provided
// transaction for all database operations.
func (r *BalanceRepository) WithTx(tx pgx.Tx) balance.Repository {
	return &BalanceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new per-type ledger row. The unique constraint on
// (employee_id, leave_year, leave_type) rejects duplicates.
func (r *BalanceRepository) Create(ctx context.Context, b *balance.LeaveTypeBalance) error {
	query := `
		INSERT INTO leave_type_balances (employee_id, leave_year, leave_type, allocated, taken, remaining, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		b.EmployeeID,
		b.LeaveYear,
		b.LeaveType,
		b.Allocated,
		b.Taken,
		b.Remaining,
		b.Version,
		b.CreatedAt,
		b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		r.logger.Error("Failed to create leave type balance",
			"employee_id", b.EmployeeID,
			"leave_year", b.LeaveYear,
			"leave_type", b.LeaveType,
			"error", err,
		)
		return fmt.Errorf("failed to create leave type balance: %w", err)
	}

	return nil
}

// GetForYear retrieves all per-type rows of an employee's leave year in a
// stable order.
func (r *BalanceRepository) GetForYear(ctx context.Context, employeeID int64, leaveYear int) ([]*balance.LeaveTypeBalance, error) {
	query := `
		SELECT id, employee_id, leave_year, leave_type, allocated, taken, remaining, version, created_at, updated_at
		FROM leave_type_balances
		WHERE employee_id = $1 AND leave_year = $2
		ORDER BY leave_type ASC
	`

	rows, err := r.querier.Query(ctx, query, employeeID, leaveYear)
	if err != nil {
		r.logger.Error("Failed to get leave type balances", "employee_id", employeeID, "leave_year", leaveYear, "error", err)
		return nil, fmt.Errorf("failed to get leave type balances: %w", err)
	}
	defer rows.Close()

	var balances []*balance.LeaveTypeBalance
	for rows.Next() {
		var b balance.LeaveTypeBalance
		err := rows.Scan(
			&b.ID,
			&b.EmployeeID,
			&b.LeaveYear,
			&b.LeaveType,
			&b.Allocated,
			&b.Taken,
			&b.Remaining,
			&b.Version,
			&b.CreatedAt,
			&b.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan leave type balance", "error", err)
			return nil, fmt.Errorf("failed to scan leave type balance: %w", err)
		}
		balances = append(balances, &b)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over leave type balances", "error", err)
		return nil, fmt.Errorf("error iterating over leave type balances: %w", err)
	}

	return balances, nil
}

// Update persists a modified ledger row using optimistic locking.
// Returns ErrConcurrentModification if the row was modified between read and update.
func (r *BalanceRepository) Update(ctx context.Context, b *balance.LeaveTypeBalance) error {
	query := `
		UPDATE leave_type_balances
		SET allocated = $1, taken = $2, remaining = $3, version = $4, updated_at = $5
		WHERE id = $6 AND version = $7
	`

	result, err := r.querier.Exec(ctx, query,
		b.Allocated,
		b.Taken,
		b.Remaining,
		b.Version,
		b.UpdatedAt,
		b.ID,
		b.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update leave type balance", "id", b.ID, "error", err)
		return fmt.Errorf("failed to update leave type balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return balance.ErrConcurrentModification{
			EmployeeID: b.EmployeeID,
			LeaveYear:  b.LeaveYear,
			LeaveType:  b.LeaveType,
		}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on one ledger row and returns its
// current state. Must be called within a transaction.
func (r *BalanceRepository) LockForUpdate(ctx context.Context, employeeID int64, leaveYear int, leaveType string) (*balance.LeaveTypeBalance, error) {
	query := `
		SELECT id, employee_id, leave_year, leave_type, allocated, taken, remaining, version, created_at, updated_at
		FROM leave_type_balances
		WHERE employee_id = $1 AND leave_year = $2 AND leave_type = $3
		FOR UPDATE
	`

	var b balance.LeaveTypeBalance
	err := r.querier.QueryRow(ctx, query, employeeID, leaveYear, leaveType).Scan(
		&b.ID,
		&b.EmployeeID,
		&b.LeaveYear,
		&b.LeaveType,
		&b.Allocated,
		&b.Taken,
		&b.Remaining,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, balance.ErrBalanceNotFound{
				EmployeeID: employeeID,
				LeaveYear:  leaveYear,
				LeaveType:  leaveType,
			}
		}
		r.logger.Error("Failed to lock leave type balance for update",
			"employee_id", employeeID,
			"leave_year", leaveYear,
			"leave_type", leaveType,
			"error", err,
		)
		return nil, fmt.Errorf("failed to lock leave type balance for update: %w", err)
	}

	return &b, nil
}

// LockAllForUpdate locks every per-type row of an employee's leave year in a
// stable order. Must be called within a transaction.
func (r *BalanceRepository) LockAllForUpdate(ctx context.Context, employeeID int64, leaveYear int) ([]*balance.LeaveTypeBalance, error) {
	query := `
		SELECT id, employee_id, leave_year, leave_type, allocated, taken, remaining, version, created_at, updated_at
		FROM leave_type_balances
		WHERE employee_id = $1 AND leave_year = $2
		ORDER BY leave_type ASC
		FOR UPDATE
	`

	rows, err := r.querier.Query(ctx, query, employeeID, leaveYear)
	if err != nil {
		r.logger.Error("Failed to lock leave type balances for update", "employee_id", employeeID, "leave_year", leaveYear, "error", err)
		return nil, fmt.Errorf("failed to lock leave type balances for update: %w", err)
	}
	defer rows.Close()

	var balances []*balance.LeaveTypeBalance
	for rows.Next() {
		var b balance.LeaveTypeBalance
		err := rows.Scan(
			&b.ID,
			&b.EmployeeID,
			&b.LeaveYear,
			&b.LeaveType,
			&b.Allocated,
			&b.Taken,
			&b.Remaining,
			&b.Version,
			&b.CreatedAt,
			&b.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan locked leave type balance", "error", err)
			return nil, fmt.Errorf("failed to scan locked leave type balance: %w", err)
		}
		balances = append(balances, &b)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over locked leave type balances", "error", err)
		return nil, fmt.Errorf("error iterating over locked leave type balances: %w", err)
	}

	return balances, nil
}
