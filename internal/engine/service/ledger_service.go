package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hr-leave-ledger/internal/domain/balance"
	"github.com/hr-leave-ledger/internal/domain/employee"
	"github.com/hr-leave-ledger/internal/domain/leaveyear"
	"github.com/hr-leave-ledger/internal/domain/policy"
	"github.com/hr-leave-ledger/internal/domain/request"
	"github.com/hr-leave-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

type LedgerServiceImpl struct {
	db            persistence.TxBeginner
	employeeRepo  employee.Repository
	policyRepo    policy.Repository
	balanceRepo   balance.Repository
	aggregateRepo balance.AggregateRepository
	requestRepo   request.Repository
	logger        *slog.Logger
}

func NewLedgerService(
	db persistence.TxBeginner,
	employeeRepo employee.Repository,
	policyRepo policy.Repository,
	balanceRepo balance.Repository,
	aggregateRepo balance.AggregateRepository,
	requestRepo request.Repository,
	logger *slog.Logger,
) LedgerService {
	return &LedgerServiceImpl{
		db:            db,
		employeeRepo:  employeeRepo,
		policyRepo:    policyRepo,
		balanceRepo:   balanceRepo,
		aggregateRepo: aggregateRepo,
		requestRepo:   requestRepo,
		logger:        logger,
	}
}

// Initialize creates the per-type and aggregate rows for an employee's leave
// year. Allocations are seeded with the entitlement accrued to date and taken
// is synced from requests already approved for that year, so a mid-year
// onboarding starts from a correct ledger. A no-op when rows already exist.
func (s *LedgerServiceImpl) Initialize(ctx context.Context, employeeID int64, leaveYear int) error {
	logger := s.logger.With("employee_id", employeeID, "leave_year", leaveYear)

	if leaveYear <= 0 {
		return balance.ErrInvalidLeaveYear{LeaveYear: leaveYear}
	}

	existing, err := s.balanceRepo.GetForYear(ctx, employeeID, leaveYear)
	if err != nil {
		logger.Error("Failed to check existing balance rows", "error", err)
		return err
	}
	if len(existing) > 0 {
		logger.Info("Balance rows already exist, skipping initialize")
		return nil
	}

	emp, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		logger.Error("Failed to load employee for initialize", "error", err)
		return err
	}

	policies, err := s.policyRepo.GetAll(ctx)
	if err != nil {
		logger.Error("Failed to load leave type policies", "error", err)
		return err
	}

	serviceMonths := completedMonths(leaveYear, emp.HireDate, time.Now())

	var tx pgx.Tx
	tx, err = s.db.Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "error", err)
		return fmt.Errorf("failed to begin DB transaction for employee %d initialize: %w", employeeID, err)
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

	approved, err := s.requestRepo.WithTx(tx).ApprovedDaysByType(ctx, employeeID, leaveYear)
	if err != nil {
		logger.Error("Failed to load approved request history", "error", err)
		return err
	}

	rows := make([]*balance.LeaveTypeBalance, 0, len(policies))
	for _, p := range policies {
		row := balance.NewLeaveTypeBalance(employeeID, leaveYear, p.LeaveType, p.AccruedAt(serviceMonths))
		if days, ok := approved[p.LeaveType]; ok && days.IsPositive() {
			row.SetTaken(days)
		}
		if err = balanceRepo.Create(ctx, row); err != nil {
			logger.Error("Failed to create balance row", "leave_type", p.LeaveType, "error", err)
			return err
		}
		rows = append(rows, row)
	}

	agg := balance.AggregateOf(employeeID, leaveYear, rows)
	if err = s.aggregateRepo.WithTx(tx).Upsert(ctx, agg); err != nil {
		logger.Error("Failed to upsert aggregate balance", "error", err)
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit initialize transaction", "error", err)
		return fmt.Errorf("failed to commit initialize transaction for employee %d: %w", employeeID, err)
	}

	logger.Info("Initialized leave ledger", "service_months", serviceMonths, "leave_types", len(rows))
	return nil
}

// Recompute re-derives every allocation from current policy, holding taken
// fixed. Used after a policy change.
func (s *LedgerServiceImpl) Recompute(ctx context.Context, employeeID int64, leaveYear int) error {
	logger := s.logger.With("employee_id", employeeID, "leave_year", leaveYear)

	emp, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		logger.Error("Failed to load employee for recompute", "error", err)
		return err
	}

	policies, err := s.policyRepo.GetAll(ctx)
	if err != nil {
		logger.Error("Failed to load leave type policies", "error", err)
		return err
	}

	byType := make(map[string]*policy.LeaveTypePolicy, len(policies))
	for _, p := range policies {
		byType[p.LeaveType] = p
	}

	serviceMonths := completedMonths(leaveYear, emp.HireDate, time.Now())

	var tx pgx.Tx
	tx, err = s.db.Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "error", err)
		return fmt.Errorf("failed to begin DB transaction for employee %d recompute: %w", employeeID, err)
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

	rows, err := balanceRepo.LockAllForUpdate(ctx, employeeID, leaveYear)
	if err != nil {
		logger.Error("Failed to lock balance rows", "error", err)
		return err
	}
	if len(rows) == 0 {
		err = balance.ErrBalanceNotFound{EmployeeID: employeeID, LeaveYear: leaveYear}
		return err
	}

	for _, row := range rows {
		p, ok := byType[row.LeaveType]
		if !ok {
			err = policy.ErrUnknownLeaveType{LeaveType: row.LeaveType}
			return err
		}
		row.Reallocate(p.AccruedAt(serviceMonths))
		if err = balanceRepo.Update(ctx, row); err != nil {
			logger.Error("Failed to update balance row", "leave_type", row.LeaveType, "error", err)
			return err
		}
	}

	agg := balance.AggregateOf(employeeID, leaveYear, rows)
	if err = s.aggregateRepo.WithTx(tx).Upsert(ctx, agg); err != nil {
		logger.Error("Failed to upsert aggregate balance", "error", err)
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit recompute transaction", "error", err)
		return fmt.Errorf("failed to commit recompute transaction for employee %d: %w", employeeID, err)
	}

	logger.Info("Recomputed allocations", "service_months", serviceMonths, "leave_types", len(rows))
	return nil
}

// completedMonths returns the service months to allocate for within the given
// leave year as of asOf. A past year counts in full, a future year not at all.
func completedMonths(year int, hireDate, asOf time.Time) int {
	if asOf.Before(leaveyear.Start(year)) {
		return 0
	}
	anchor := asOf
	if end := leaveyear.End(year); asOf.After(end) {
		anchor = end
	}
	return leaveyear.ServiceMonthIndex(hireDate, anchor)
}
