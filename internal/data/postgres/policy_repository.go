package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hr-leave-ledger/internal/domain/policy"
	"github.com/hr-leave-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// PolicyRepository implements the policy.Repository interface for PostgreSQL
type PolicyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPolicyRepository creates a new PostgreSQL policy repository
func NewPolicyRepository(logger *slog.Logger, db *persistence.PostgresDB) policy.Repository {
	return &PolicyRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *PolicyRepository) WithTx(tx pgx.Tx) policy.Repository {
	return &PolicyRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByLeaveType retrieves the accrual policy for one leave type
func (r *PolicyRepository) GetByLeaveType(ctx context.Context, leaveType string) (*policy.LeaveTypePolicy, error) {
	query := `
		SELECT leave_type, monthly_rate, annual_cap, year_start_month, created_at, updated_at
		FROM leave_type_policies
		WHERE leave_type = $1
	`

	var p policy.LeaveTypePolicy
	err := r.querier.QueryRow(ctx, query, leaveType).Scan(
		&p.LeaveType,
		&p.MonthlyRate,
		&p.AnnualCap,
		&p.YearStartMonth,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, policy.ErrUnknownLeaveType{LeaveType: leaveType}
		}
		r.logger.Error("Failed to get leave type policy", "leave_type", leaveType, "error", err)
		return nil, fmt.Errorf("failed to get leave type policy: %w", err)
	}

	return &p, nil
}

// GetAll retrieves every configured accrual policy in a stable order
func (r *PolicyRepository) GetAll(ctx context.Context) ([]*policy.LeaveTypePolicy, error) {
	query := `
		SELECT leave_type, monthly_rate, annual_cap, year_start_month, created_at, updated_at
		FROM leave_type_policies
		ORDER BY leave_type ASC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to get leave type policies", "error", err)
		return nil, fmt.Errorf("failed to get leave type policies: %w", err)
	}
	defer rows.Close()

	var policies []*policy.LeaveTypePolicy
	for rows.Next() {
		var p policy.LeaveTypePolicy
		err := rows.Scan(
			&p.LeaveType,
			&p.MonthlyRate,
			&p.AnnualCap,
			&p.YearStartMonth,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan leave type policy", "error", err)
			return nil, fmt.Errorf("failed to scan leave type policy: %w", err)
		}
		policies = append(policies, &p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over leave type policies", "error", err)
		return nil, fmt.Errorf("error iterating over leave type policies: %w", err)
	}

	return policies, nil
}
