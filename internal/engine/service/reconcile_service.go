package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hr-leave-ledger/internal/domain/audit"
	"github.com/hr-leave-ledger/internal/domain/balance"
	"github.com/hr-leave-ledger/internal/domain/employee"
	"github.com/hr-leave-ledger/internal/domain/request"
	"github.com/hr-leave-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type ReconciliationServiceImpl struct {
	db            persistence.TxBeginner
	employeeRepo  employee.Repository
	balanceRepo   balance.Repository
	aggregateRepo balance.AggregateRepository
	requestRepo   request.Repository
	outboxRepo    audit.OutboxRepository
	runner        BatchRunner
	logger        *slog.Logger
}

func NewReconciliationService(
	db persistence.TxBeginner,
	employeeRepo employee.Repository,
	balanceRepo balance.Repository,
	aggregateRepo balance.AggregateRepository,
	requestRepo request.Repository,
	outboxRepo audit.OutboxRepository,
	runner BatchRunner,
	logger *slog.Logger,
) ReconciliationService {
	return &ReconciliationServiceImpl{
		db:            db,
		employeeRepo:  employeeRepo,
		balanceRepo:   balanceRepo,
		aggregateRepo: aggregateRepo,
		requestRepo:   requestRepo,
		outboxRepo:    outboxRepo,
		runner:        runner,
		logger:        logger,
	}
}

// Reconcile measures the drift between the aggregate row and the per-type
// rows under row locks. Drift beyond the tolerance triggers a rebuild of
// taken from the approved request history, which is authoritative. The report
// is staged to the audit outbox in the same transaction and returned to the
// caller, so a second run over repaired rows reports zero drift.
func (s *ReconciliationServiceImpl) Reconcile(ctx context.Context, employeeID int64, leaveYear int) (*audit.DriftReport, error) {
	logger := s.logger.With("employee_id", employeeID, "leave_year", leaveYear)

	var tx pgx.Tx
	tx, err := s.db.Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "error", err)
		return nil, fmt.Errorf("failed to begin DB transaction for employee %d reconcile: %w", employeeID, err)
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

	balanceRepo := s.balanceRepo.WithTx(tx)

	var rows []*balance.LeaveTypeBalance
	rows, err = balanceRepo.LockAllForUpdate(ctx, employeeID, leaveYear)
	if err != nil {
		logger.Error("Failed to lock balance rows for reconciliation", "error", err)
		return nil, err
	}
	if len(rows) == 0 {
		err = balance.ErrBalanceNotFound{EmployeeID: employeeID, LeaveYear: leaveYear}
		return nil, err
	}

	var agg *balance.AggregateBalance
	agg, err = s.aggregateRepo.WithTx(tx).LockForUpdate(ctx, employeeID, leaveYear)
	if err != nil {
		logger.Error("Failed to lock aggregate balance for reconciliation", "error", err)
		return nil, err
	}

	report := &audit.DriftReport{
		EmployeeID:  employeeID,
		LeaveYear:   leaveYear,
		DriftBefore: agg.Drift(rows),
		CheckedAt:   time.Now(),
	}

	if report.DriftBefore.GreaterThan(balance.DriftEpsilon) {
		logger.Warn("Drift detected, rebuilding taken from approved requests",
			"drift", report.DriftBefore.String())

		var approved map[string]decimal.Decimal
		approved, err = s.requestRepo.WithTx(tx).ApprovedDaysByType(ctx, employeeID, leaveYear)
		if err != nil {
			logger.Error("Failed to load approved request history", "error", err)
			return nil, err
		}

		for _, row := range rows {
			want := approved[row.LeaveType] // zero value when no approved requests
			if row.Taken.Equal(want) {
				continue
			}
			row.SetTaken(want)
			if err = balanceRepo.Update(ctx, row); err != nil {
				logger.Error("Failed to correct balance row", "leave_type", row.LeaveType, "error", err)
				return nil, err
			}
		}

		agg.Rebuild(rows)
		if err = s.aggregateRepo.WithTx(tx).Update(ctx, agg); err != nil {
			logger.Error("Failed to correct aggregate balance", "error", err)
			return nil, err
		}

		report.Corrected = true
	}

	var msg *audit.OutboxMessage
	msg, err = audit.NewDriftReportMessage(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal drift report: %w", err)
	}
	if err = s.outboxRepo.WithTx(tx).Create(ctx, msg); err != nil {
		logger.Error("Failed to stage drift report", "error", err)
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit reconciliation transaction", "error", err)
		return nil, fmt.Errorf("failed to commit reconciliation transaction for employee %d: %w", employeeID, err)
	}

	logger.Info("Reconciliation complete",
		"drift_before", report.DriftBefore.String(),
		"corrected", report.Corrected,
	)
	return report, nil
}

// ReconcileAll runs Reconcile for every active employee through the worker
// pool. Employees whose ledger was never initialized for the year are counted
// as successes with nothing to check.
func (s *ReconciliationServiceImpl) ReconcileAll(ctx context.Context, leaveYear int) (*BatchReport, error) {
	employees, err := s.employeeRepo.GetActive(ctx)
	if err != nil {
		s.logger.Error("Failed to list active employees for reconciliation batch", "error", err)
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}

	s.logger.Info("Starting reconciliation batch", "employees", len(employees), "leave_year", leaveYear)

	report := s.runner.Run(ctx, employees, func(ctx context.Context, emp *employee.Employee) error {
		_, reconcileErr := s.Reconcile(ctx, emp.ID, leaveYear)
		if errors.Is(reconcileErr, balance.ErrBalanceNotFound{}) {
			return nil
		}
		return reconcileErr
	})
	return report, nil
}
