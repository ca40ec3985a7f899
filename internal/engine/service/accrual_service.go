package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hr-leave-ledger/internal/domain/accrual"
	"github.com/hr-leave-ledger/internal/domain/balance"
	"github.com/hr-leave-ledger/internal/domain/employee"
	"github.com/hr-leave-ledger/internal/domain/leaveyear"
	"github.com/hr-leave-ledger/internal/domain/policy"
	"github.com/hr-leave-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

type AccrualServiceImpl struct {
	db            persistence.TxBeginner
	employeeRepo  employee.Repository
	policyRepo    policy.Repository
	accrualRepo   accrual.Repository
	balanceRepo   balance.Repository
	aggregateRepo balance.AggregateRepository
	runner        BatchRunner
	logger        *slog.Logger
}

func NewAccrualService(
	db persistence.TxBeginner,
	employeeRepo employee.Repository,
	policyRepo policy.Repository,
	accrualRepo accrual.Repository,
	balanceRepo balance.Repository,
	aggregateRepo balance.AggregateRepository,
	runner BatchRunner,
	logger *slog.Logger,
) AccrualService {
	return &AccrualServiceImpl{
		db:            db,
		employeeRepo:  employeeRepo,
		policyRepo:    policyRepo,
		accrualRepo:   accrualRepo,
		balanceRepo:   balanceRepo,
		aggregateRepo: aggregateRepo,
		runner:        runner,
		logger:        logger,
	}
}

// AccrueMonth writes every accrual row the employee should have as of asOf and
// brings allocations in line, in one transaction. Closed months are written
// with conflict-no-op upserts so a re-run changes nothing; only the current
// open month is overwritten.
func (s *AccrualServiceImpl) AccrueMonth(ctx context.Context, employeeID int64, asOf time.Time) error {
	logger := s.logger.With("employee_id", employeeID)

	emp, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		logger.Error("Failed to load employee for accrual run", "error", err)
		return err
	}

	year := leaveyear.YearOf(asOf)
	months := leaveyear.AccrualMonths(year, emp.HireDate, asOf)
	if len(months) == 0 {
		logger.Info("No accrual months open for employee", "leave_year", year)
		return nil
	}

	policies, err := s.policyRepo.GetAll(ctx)
	if err != nil {
		logger.Error("Failed to load leave type policies", "error", err)
		return err
	}

	var tx pgx.Tx
	tx, err = s.db.Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "error", err)
		return fmt.Errorf("failed to begin DB transaction for employee %d accrual: %w", employeeID, err)
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

	accrualRepo := s.accrualRepo.WithTx(tx)
	openMonth := asOf.Month()

	for _, p := range policies {
		for i, m := range months {
			serviceMonth := i + 1
			row := &accrual.MonthlyAccrual{
				EmployeeID: employeeID,
				LeaveYear:  year,
				Month:      m,
				LeaveType:  p.LeaveType,
				Accrued:    p.MonthlyAccrued(serviceMonth),
				Cumulative: p.AccruedAt(serviceMonth),
				CreatedAt:  time.Now(),
				UpdatedAt:  time.Now(),
			}

			if m == openMonth {
				err = accrualRepo.UpsertOpen(ctx, row)
			} else {
				err = accrualRepo.UpsertClosed(ctx, row)
			}
			if err != nil {
				logger.Error("Failed to upsert monthly accrual",
					"leave_type", p.LeaveType, "month", int(m), "error", err)
				return err
			}
		}
	}

	if err = s.reallocateBalances(ctx, tx, employeeID, year, policies, len(months)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit accrual transaction", "leave_year", year, "error", err)
		return fmt.Errorf("failed to commit accrual transaction for employee %d: %w", employeeID, err)
	}

	logger.Info("Accrual run complete", "leave_year", year, "months", len(months))
	return nil
}

// reallocateBalances replaces each balance row's allocation with the policy's
// cumulative entitlement, holding taken fixed, and refreshes the aggregate.
// Missing rows are created so a first accrual run needs no prior initialize.
func (s *AccrualServiceImpl) reallocateBalances(
	ctx context.Context,
	tx pgx.Tx,
	employeeID int64,
	year int,
	policies []*policy.LeaveTypePolicy,
	serviceMonths int,
) error {
	balanceRepo := s.balanceRepo.WithTx(tx)

	rows, err := balanceRepo.LockAllForUpdate(ctx, employeeID, year)
	if err != nil {
		return fmt.Errorf("failed to lock balance rows for employee %d: %w", employeeID, err)
	}

	byType := make(map[string]*balance.LeaveTypeBalance, len(rows))
	for _, row := range rows {
		byType[row.LeaveType] = row
	}

	for _, p := range policies {
		allocated := p.AccruedAt(serviceMonths)

		row, ok := byType[p.LeaveType]
		if !ok {
			row = balance.NewLeaveTypeBalance(employeeID, year, p.LeaveType, allocated)
			if err := balanceRepo.Create(ctx, row); err != nil {
				return fmt.Errorf("failed to create %s balance for employee %d: %w", p.LeaveType, employeeID, err)
			}
			rows = append(rows, row)
			continue
		}

		row.Reallocate(allocated)
		if err := balanceRepo.Update(ctx, row); err != nil {
			return fmt.Errorf("failed to update %s balance for employee %d: %w", p.LeaveType, employeeID, err)
		}
	}

	agg := balance.AggregateOf(employeeID, year, rows)
	if err := s.aggregateRepo.WithTx(tx).Upsert(ctx, agg); err != nil {
		return fmt.Errorf("failed to upsert aggregate balance for employee %d: %w", employeeID, err)
	}
	return nil
}

// AccrueAll runs AccrueMonth for every active employee through the worker
// pool. Per-employee failures are collected into the report, never aborting
// the batch.
func (s *AccrualServiceImpl) AccrueAll(ctx context.Context, asOf time.Time) (*BatchReport, error) {
	employees, err := s.employeeRepo.GetActive(ctx)
	if err != nil {
		s.logger.Error("Failed to list active employees for accrual batch", "error", err)
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}

	s.logger.Info("Starting accrual batch", "employees", len(employees), "as_of", asOf.Format(time.DateOnly))

	report := s.runner.Run(ctx, employees, func(ctx context.Context, emp *employee.Employee) error {
		return s.AccrueMonth(ctx, emp.ID, asOf)
	})
	return report, nil
}
