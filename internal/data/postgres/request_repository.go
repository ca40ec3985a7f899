package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hr-leave-ledger/internal/domain/leaveyear"
	"github.com/hr-leave-ledger/internal/domain/request"
	"github.com/hr-leave-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// RequestRepository implements the request.Repository interface for PostgreSQL.
// The leave_requests table is a read model owned by the workflow module; this
// repository never writes to it.
type RequestRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRequestRepository creates a new PostgreSQL leave request repository
func NewRequestRepository(logger *slog.Logger, db *persistence.PostgresDB) request.Repository {
	return &RequestRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *RequestRepository) WithTx(tx pgx.Tx) request.Repository {
	return &RequestRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByID retrieves a leave request by its ID
func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*request.LeaveRequest, error) {
	query := `
		SELECT id, employee_id, leave_type, from_date, to_date, total_days, status, created_at, updated_at
		FROM leave_requests
		WHERE id = $1
	`

	var req request.LeaveRequest
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.EmployeeID,
		&req.LeaveType,
		&req.FromDate,
		&req.ToDate,
		&req.TotalDays,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, request.ErrRequestNotFound{RequestID: id}
		}
		r.logger.Error("Failed to get leave request", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get leave request: %w", err)
	}

	return &req, nil
}

// ApprovedDaysByType sums total days of currently-approved requests whose
// leave dates fall inside the given leave year, grouped by leave type.
// Requests settle against the year of their leave dates, not their creation
// timestamp, so the filter is on from_date.
func (r *RequestRepository) ApprovedDaysByType(ctx context.Context, employeeID int64, leaveYear int) (map[string]decimal.Decimal, error) {
	query := `
		SELECT leave_type, COALESCE(SUM(total_days), 0)
		FROM leave_requests
		WHERE employee_id = $1 AND status = $2 AND from_date >= $3 AND from_date <= $4
		GROUP BY leave_type
	`

	yearStart := leaveyear.Start(leaveYear)
	yearEnd := leaveyear.End(leaveYear)

	rows, err := r.querier.Query(ctx, query, employeeID, request.StatusApproved, yearStart, yearEnd)
	if err != nil {
		r.logger.Error("Failed to sum approved leave days", "employee_id", employeeID, "leave_year", leaveYear, "error", err)
		return nil, fmt.Errorf("failed to sum approved leave days: %w", err)
	}
	defer rows.Close()

	taken := make(map[string]decimal.Decimal)
	for rows.Next() {
		var leaveType string
		var days decimal.Decimal
		if err := rows.Scan(&leaveType, &days); err != nil {
			r.logger.Error("Failed to scan approved leave days", "error", err)
			return nil, fmt.Errorf("failed to scan approved leave days: %w", err)
		}
		taken[leaveType] = days
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over approved leave days", "error", err)
		return nil, fmt.Errorf("error iterating over approved leave days: %w", err)
	}

	return taken, nil
}
