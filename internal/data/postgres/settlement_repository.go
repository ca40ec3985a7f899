package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hr-leave-ledger/internal/domain/request"
	"github.com/hr-leave-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// SettlementRepository implements the request.SettlementRepository interface
// for PostgreSQL
type SettlementRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSettlementRepository creates a new PostgreSQL settlement repository
func NewSettlementRepository(logger *slog.Logger, db *persistence.PostgresDB) request.SettlementRepository {
	return &SettlementRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *SettlementRepository) WithTx(tx pgx.Tx) request.SettlementRepository {
	return &SettlementRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new settlement record. The primary key on request_id makes
// double-application a constraint violation rather than a silent double spend.
func (r *SettlementRepository) Create(ctx context.Context, s *request.Settlement) error {
	query := `
		INSERT INTO leave_settlements (request_id, employee_id, leave_year, leave_type, days, state, applied_at, reversed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		s.RequestID,
		s.EmployeeID,
		s.LeaveYear,
		s.LeaveType,
		s.Days,
		s.State,
		s.AppliedAt,
		s.ReversedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create settlement record",
			"request_id", s.RequestID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create settlement record: %w", err)
	}

	return nil
}

// GetByRequestID retrieves the settlement record for a request.
// Returns ErrRequestNotFound if the request has never been settled.
func (r *SettlementRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*request.Settlement, error) {
	query := `
		SELECT request_id, employee_id, leave_year, leave_type, days, state, applied_at, reversed_at
		FROM leave_settlements
		WHERE request_id = $1
	`

	var s request.Settlement
	err := r.querier.QueryRow(ctx, query, requestID).Scan(
		&s.RequestID,
		&s.EmployeeID,
		&s.LeaveYear,
		&s.LeaveType,
		&s.Days,
		&s.State,
		&s.AppliedAt,
		&s.ReversedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, request.ErrRequestNotFound{RequestID: requestID}
		}
		r.logger.Error("Failed to get settlement record", "request_id", requestID.String(), "error", err)
		return nil, fmt.Errorf("failed to get settlement record: %w", err)
	}

	return &s, nil
}

// Update persists a state transition on an existing settlement record
func (r *SettlementRepository) Update(ctx context.Context, s *request.Settlement) error {
	query := `
		UPDATE leave_settlements
		SET state = $1, reversed_at = $2
		WHERE request_id = $3
	`

	result, err := r.querier.Exec(ctx, query, s.State, s.ReversedAt, s.RequestID)
	if err != nil {
		r.logger.Error("Failed to update settlement record", "request_id", s.RequestID.String(), "error", err)
		return fmt.Errorf("failed to update settlement record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return request.ErrRequestNotFound{RequestID: s.RequestID}
	}

	return nil
}
