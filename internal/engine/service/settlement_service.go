package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hr-leave-ledger/internal/domain/audit"
	"github.com/hr-leave-ledger/internal/domain/balance"
	"github.com/hr-leave-ledger/internal/domain/request"
	"github.com/hr-leave-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type SettlementServiceImpl struct {
	db             persistence.TxBeginner
	requestRepo    request.Repository
	settlementRepo request.SettlementRepository
	balanceRepo    balance.Repository
	aggregateRepo  balance.AggregateRepository
	outboxRepo     audit.OutboxRepository
	logger         *slog.Logger
}

func NewSettlementService(
	db persistence.TxBeginner,
	requestRepo request.Repository,
	settlementRepo request.SettlementRepository,
	balanceRepo balance.Repository,
	aggregateRepo balance.AggregateRepository,
	outboxRepo audit.OutboxRepository,
	logger *slog.Logger,
) SettlementService {
	return &SettlementServiceImpl{
		db:             db,
		requestRepo:    requestRepo,
		settlementRepo: settlementRepo,
		balanceRepo:    balanceRepo,
		aggregateRepo:  aggregateRepo,
		outboxRepo:     outboxRepo,
		logger:         logger,
	}
}

// Settle applies a leave request's current status to the ledger. An approval
// consumes days once; a cancellation reverses exactly the days the settlement
// record says were applied; a rejection or pending status touches nothing.
// The settlement record, both balance rows, and the audit outbox entry are
// written in a single transaction.
func (s *SettlementServiceImpl) Settle(ctx context.Context, requestID uuid.UUID, opts SettleOptions) error {
	logger := s.logger
	if opts.CorrelationID != "" {
		logger = s.logger.With("correlation_id", opts.CorrelationID)
	}
	logger = logger.With("request_id", requestID.String())

	// 1. Load the request
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		logger.Error("Failed to load leave request for settlement", "error", err)
		return err
	}
	if !req.Status.Valid() {
		return request.ErrInvalidStatus{Status: req.Status}
	}

	logger = logger.With("employee_id", req.EmployeeID, "leave_year", req.LeaveYear())

	// 2. Check the settlement record; it decides whether there is anything
	// left to do before any row is locked
	recorded, err := s.settlementRepo.GetByRequestID(ctx, requestID)
	if err != nil && !errors.Is(err, request.ErrRequestNotFound{}) {
		logger.Error("Failed to load settlement record", "error", err)
		return err
	}

	switch req.Status {
	case request.StatusPending, request.StatusRejected:
		// Nothing was ever applied for these
		logger.Info("No settlement needed for request status", "status", string(req.Status))
		return nil

	case request.StatusApproved:
		if recorded != nil && recorded.State == request.SettlementApplied {
			logger.Info("Settlement already applied, skipping")
			return nil
		}
		return s.apply(ctx, logger, req, recorded, opts)

	case request.StatusCancelled:
		if recorded == nil || recorded.State != request.SettlementApplied {
			logger.Info("No applied settlement to reverse, skipping")
			return nil
		}
		return s.reverse(ctx, logger, req, recorded, opts)
	}

	return request.ErrInvalidStatus{Status: req.Status}
}

// apply consumes the request's days from the ledger. When a previously
// reversed settlement is re-approved, the recorded days are applied again.
func (s *SettlementServiceImpl) apply(
	ctx context.Context,
	logger *slog.Logger,
	req *request.LeaveRequest,
	recorded *request.Settlement,
	opts SettleOptions,
) error {
	days := req.TotalDays
	if recorded != nil {
		days = recorded.Days
	}
	if !days.IsPositive() {
		return balance.ErrInvalidDayCount{Days: days}
	}

	leaveYear := req.LeaveYear()

	var tx pgx.Tx
	tx, err := s.db.Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "error", err)
		return fmt.Errorf("failed to begin DB transaction for settlement %s: %w", req.ID.String(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p)
			_ = tx.Rollback(ctx)
			panic(p) // Re-panic
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err)
			}
		}
	}()

	// 3. Lock and debit the per-type row
	var row *balance.LeaveTypeBalance
	row, err = s.balanceRepo.WithTx(tx).LockForUpdate(ctx, req.EmployeeID, leaveYear, req.LeaveType)
	if err != nil {
		logger.Error("Failed to lock balance row for settlement", "leave_type", req.LeaveType, "error", err)
		return err
	}
	if err = row.Apply(days, opts.AllowNegativeBalance); err != nil {
		logger.Warn("Settlement refused by balance", "leave_type", req.LeaveType, "days", days.String(), "error", err)
		return err
	}
	if err = s.balanceRepo.WithTx(tx).Update(ctx, row); err != nil {
		logger.Error("Failed to update balance row", "leave_type", req.LeaveType, "error", err)
		return err
	}

	// 4. Mirror onto the aggregate under the same lock discipline
	var agg *balance.AggregateBalance
	agg, err = s.aggregateRepo.WithTx(tx).LockForUpdate(ctx, req.EmployeeID, leaveYear)
	if err != nil {
		logger.Error("Failed to lock aggregate balance", "error", err)
		return err
	}
	agg.Apply(days)
	if err = s.aggregateRepo.WithTx(tx).Update(ctx, agg); err != nil {
		logger.Error("Failed to update aggregate balance", "error", err)
		return err
	}

	// 5. Write the settlement record; a duplicate key here means another
	// worker applied this request first and fails the whole transaction
	if recorded == nil {
		if err = s.settlementRepo.WithTx(tx).Create(ctx, request.NewSettlement(req)); err != nil {
			logger.Error("Failed to create settlement record", "error", err)
			return err
		}
	} else {
		recorded.State = request.SettlementApplied
		recorded.ReversedAt = nil
		if err = s.settlementRepo.WithTx(tx).Update(ctx, recorded); err != nil {
			logger.Error("Failed to update settlement record", "error", err)
			return err
		}
	}

	// 6. Stage the audit event in the same transaction
	if err = s.stageAuditEvent(ctx, tx, req, days, audit.EventSettlementApplied, opts.CorrelationID); err != nil {
		logger.Error("Failed to stage settlement audit event", "error", err)
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit settlement transaction", "error", err)
		return fmt.Errorf("failed to commit settlement transaction for %s: %w", req.ID.String(), err)
	}

	logger.Info("Settlement applied",
		"leave_type", req.LeaveType,
		"days", days.String(),
		"remaining", row.Remaining.String(),
	)
	return nil
}

// reverse credits back the days the settlement record says were applied. The
// request's current day count is deliberately ignored; only what was debited
// can be credited.
func (s *SettlementServiceImpl) reverse(
	ctx context.Context,
	logger *slog.Logger,
	req *request.LeaveRequest,
	recorded *request.Settlement,
	opts SettleOptions,
) error {
	days := recorded.Days

	var tx pgx.Tx
	tx, err := s.db.Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "error", err)
		return fmt.Errorf("failed to begin DB transaction for reversal %s: %w", req.ID.String(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p)
			_ = tx.Rollback(ctx)
			panic(p) // Re-panic
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err)
			}
		}
	}()

	var row *balance.LeaveTypeBalance
	row, err = s.balanceRepo.WithTx(tx).LockForUpdate(ctx, recorded.EmployeeID, recorded.LeaveYear, recorded.LeaveType)
	if err != nil {
		logger.Error("Failed to lock balance row for reversal", "leave_type", recorded.LeaveType, "error", err)
		return err
	}
	if err = row.Reverse(days); err != nil {
		return err
	}
	if err = s.balanceRepo.WithTx(tx).Update(ctx, row); err != nil {
		logger.Error("Failed to update balance row", "leave_type", recorded.LeaveType, "error", err)
		return err
	}

	var agg *balance.AggregateBalance
	agg, err = s.aggregateRepo.WithTx(tx).LockForUpdate(ctx, recorded.EmployeeID, recorded.LeaveYear)
	if err != nil {
		logger.Error("Failed to lock aggregate balance", "error", err)
		return err
	}
	agg.Reverse(days)
	if err = s.aggregateRepo.WithTx(tx).Update(ctx, agg); err != nil {
		logger.Error("Failed to update aggregate balance", "error", err)
		return err
	}

	recorded.MarkReversed()
	if err = s.settlementRepo.WithTx(tx).Update(ctx, recorded); err != nil {
		logger.Error("Failed to update settlement record", "error", err)
		return err
	}

	if err = s.stageAuditEvent(ctx, tx, req, days, audit.EventSettlementReversed, opts.CorrelationID); err != nil {
		logger.Error("Failed to stage reversal audit event", "error", err)
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit reversal transaction", "error", err)
		return fmt.Errorf("failed to commit reversal transaction for %s: %w", req.ID.String(), err)
	}

	logger.Info("Settlement reversed",
		"leave_type", recorded.LeaveType,
		"days", days.String(),
		"remaining", row.Remaining.String(),
	)
	return nil
}

func (s *SettlementServiceImpl) stageAuditEvent(
	ctx context.Context,
	tx pgx.Tx,
	req *request.LeaveRequest,
	days decimal.Decimal,
	eventType audit.EventType,
	correlationID string,
) error {
	ev := &audit.SettlementEvent{
		RequestID:     req.ID,
		EmployeeID:    req.EmployeeID,
		LeaveYear:     req.LeaveYear(),
		LeaveType:     req.LeaveType,
		Days:          days,
		Type:          eventType,
		CorrelationID: correlationID,
		OccurredAt:    time.Now(),
	}
	msg, err := audit.NewSettlementMessage(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement event: %w", err)
	}
	return s.outboxRepo.WithTx(tx).Create(ctx, msg)
}
