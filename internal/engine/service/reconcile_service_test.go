package service

import (
	"context"
	"errors"
	"testing"

	"github.com/hr-leave-ledger/internal/domain/audit"
	"github.com/hr-leave-ledger/internal/domain/balance"
	"github.com/hr-leave-ledger/internal/domain/employee"
	"github.com/hr-leave-ledger/internal/domain/policy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type reconcileServiceFixture struct {
	db            *MockTxBeginner
	tx            *MockTx
	employeeRepo  *MockEmployeeRepository
	balanceRepo   *MockBalanceRepository
	aggregateRepo *MockAggregateRepository
	requestRepo   *MockRequestRepository
	outboxRepo    *MockOutboxRepository
	svc           ReconciliationService
}

func newReconcileServiceFixture(t *testing.T) *reconcileServiceFixture {
	t.Helper()
	f := &reconcileServiceFixture{
		db:            new(MockTxBeginner),
		tx:            new(MockTx),
		employeeRepo:  new(MockEmployeeRepository),
		balanceRepo:   new(MockBalanceRepository),
		aggregateRepo: new(MockAggregateRepository),
		requestRepo:   new(MockRequestRepository),
		outboxRepo:    new(MockOutboxRepository),
	}

	runner, err := NewWorkerPoolBatchRunner(WorkerPoolConfig{Size: 2}, newTestLogger())
	require.NoError(t, err)
	t.Cleanup(runner.Shutdown)

	f.svc = NewReconciliationService(
		f.db, f.employeeRepo, f.balanceRepo, f.aggregateRepo,
		f.requestRepo, f.outboxRepo, runner, newTestLogger(),
	)
	return f
}

func TestReconciliationService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("repairs drift from approved history", func(t *testing.T) {
		f := newReconcileServiceFixture(t)

		// The per-type row lost an update; the aggregate says three days taken
		earnedRow := &balance.LeaveTypeBalance{
			ID: 1, EmployeeID: 7, LeaveYear: 2025, LeaveType: policy.LeaveTypeEarned,
			Allocated: d(t, "6.25"), Taken: d(t, "1"), Remaining: d(t, "5.25"), Version: 2,
		}
		agg := &balance.AggregateBalance{
			ID: 1, EmployeeID: 7, LeaveYear: 2025,
			TotalAllocated: d(t, "6.25"), TotalTaken: d(t, "3"), TotalRemaining: d(t, "3.25"), Version: 3,
		}

		f.db.On("Begin", ctx).Return(f.tx, nil)
		f.tx.On("Commit", ctx).Return(nil)
		f.balanceRepo.On("LockAllForUpdate", ctx, int64(7), 2025).
			Return([]*balance.LeaveTypeBalance{earnedRow}, nil)
		f.aggregateRepo.On("LockForUpdate", ctx, int64(7), 2025).Return(agg, nil)
		f.requestRepo.On("ApprovedDaysByType", ctx, int64(7), 2025).
			Return(map[string]decimal.Decimal{policy.LeaveTypeEarned: d(t, "3")}, nil)
		f.balanceRepo.On("Update", ctx, earnedRow).Return(nil)
		f.aggregateRepo.On("Update", ctx, agg).Return(nil)

		var staged *audit.OutboxMessage
		f.outboxRepo.On("Create", ctx, mock.AnythingOfType("*audit.OutboxMessage")).
			Run(func(args mock.Arguments) {
				staged = args.Get(1).(*audit.OutboxMessage)
			}).Return(nil)

		report, err := f.svc.Reconcile(ctx, 7, 2025)
		require.NoError(t, err)
		require.NotNil(t, report)

		assert.Equal(t, int64(7), report.EmployeeID)
		assert.Equal(t, 2025, report.LeaveYear)
		assert.True(t, report.DriftBefore.Equal(d(t, "2")))
		assert.True(t, report.Corrected)

		// History is authoritative for taken
		assert.True(t, earnedRow.Taken.Equal(d(t, "3")))
		assert.True(t, earnedRow.Remaining.Equal(d(t, "3.25")))
		assert.True(t, agg.TotalTaken.Equal(d(t, "3")))
		assert.True(t, agg.TotalRemaining.Equal(d(t, "3.25")))

		require.NotNil(t, staged)
		assert.Equal(t, audit.EventDriftReport, staged.EventType)
		persisted, perr := staged.DriftReportPayload()
		require.NoError(t, perr)
		assert.True(t, persisted.Corrected)

		f.tx.AssertExpectations(t)
	})

	t.Run("second run over repaired rows reports zero drift", func(t *testing.T) {
		f := newReconcileServiceFixture(t)

		earnedRow := &balance.LeaveTypeBalance{
			ID: 1, EmployeeID: 7, LeaveYear: 2025, LeaveType: policy.LeaveTypeEarned,
			Allocated: d(t, "6.25"), Taken: d(t, "3"), Remaining: d(t, "3.25"), Version: 3,
		}
		agg := &balance.AggregateBalance{
			ID: 1, EmployeeID: 7, LeaveYear: 2025,
			TotalAllocated: d(t, "6.25"), TotalTaken: d(t, "3"), TotalRemaining: d(t, "3.25"), Version: 4,
		}

		f.db.On("Begin", ctx).Return(f.tx, nil)
		f.tx.On("Commit", ctx).Return(nil)
		f.balanceRepo.On("LockAllForUpdate", ctx, int64(7), 2025).
			Return([]*balance.LeaveTypeBalance{earnedRow}, nil)
		f.aggregateRepo.On("LockForUpdate", ctx, int64(7), 2025).Return(agg, nil)
		f.outboxRepo.On("Create", ctx, mock.Anything).Return(nil)

		report, err := f.svc.Reconcile(ctx, 7, 2025)
		require.NoError(t, err)

		assert.True(t, report.DriftBefore.IsZero())
		assert.False(t, report.Corrected)

		f.requestRepo.AssertNotCalled(t, "ApprovedDaysByType", ctx, int64(7), 2025)
		f.balanceRepo.AssertNotCalled(t, "Update", ctx, earnedRow)
	})

	t.Run("rounding noise below the tolerance is left alone", func(t *testing.T) {
		f := newReconcileServiceFixture(t)

		earnedRow := &balance.LeaveTypeBalance{
			ID: 1, EmployeeID: 7, LeaveYear: 2025, LeaveType: policy.LeaveTypeEarned,
			Allocated: d(t, "6.25"), Taken: d(t, "3"), Remaining: d(t, "3.25"), Version: 3,
		}
		agg := &balance.AggregateBalance{
			ID: 1, EmployeeID: 7, LeaveYear: 2025,
			TotalAllocated: d(t, "6.25"), TotalTaken: d(t, "3.01"), TotalRemaining: d(t, "3.24"), Version: 4,
		}

		f.db.On("Begin", ctx).Return(f.tx, nil)
		f.tx.On("Commit", ctx).Return(nil)
		f.balanceRepo.On("LockAllForUpdate", ctx, int64(7), 2025).
			Return([]*balance.LeaveTypeBalance{earnedRow}, nil)
		f.aggregateRepo.On("LockForUpdate", ctx, int64(7), 2025).Return(agg, nil)
		f.outboxRepo.On("Create", ctx, mock.Anything).Return(nil)

		report, err := f.svc.Reconcile(ctx, 7, 2025)
		require.NoError(t, err)

		assert.True(t, report.DriftBefore.Equal(d(t, "0.01")))
		assert.False(t, report.Corrected)
	})

	t.Run("missing ledger", func(t *testing.T) {
		f := newReconcileServiceFixture(t)

		f.db.On("Begin", ctx).Return(f.tx, nil)
		f.tx.On("Rollback", ctx).Return(nil)
		f.balanceRepo.On("LockAllForUpdate", ctx, int64(7), 2025).
			Return([]*balance.LeaveTypeBalance{}, nil)

		_, err := f.svc.Reconcile(ctx, 7, 2025)
		assert.ErrorIs(t, err, balance.ErrBalanceNotFound{})
		f.tx.AssertExpectations(t)
	})

	t.Run("history load failure rolls back", func(t *testing.T) {
		f := newReconcileServiceFixture(t)

		earnedRow := &balance.LeaveTypeBalance{
			ID: 1, EmployeeID: 7, LeaveYear: 2025, LeaveType: policy.LeaveTypeEarned,
			Allocated: d(t, "6.25"), Taken: d(t, "1"), Remaining: d(t, "5.25"), Version: 2,
		}
		agg := &balance.AggregateBalance{
			ID: 1, EmployeeID: 7, LeaveYear: 2025,
			TotalAllocated: d(t, "6.25"), TotalTaken: d(t, "3"), TotalRemaining: d(t, "3.25"), Version: 3,
		}

		f.db.On("Begin", ctx).Return(f.tx, nil)
		f.tx.On("Rollback", ctx).Return(nil)
		f.balanceRepo.On("LockAllForUpdate", ctx, int64(7), 2025).
			Return([]*balance.LeaveTypeBalance{earnedRow}, nil)
		f.aggregateRepo.On("LockForUpdate", ctx, int64(7), 2025).Return(agg, nil)
		f.requestRepo.On("ApprovedDaysByType", ctx, int64(7), 2025).
			Return(nil, errors.New("connection reset"))

		_, err := f.svc.Reconcile(ctx, 7, 2025)
		assert.Error(t, err)
		f.tx.AssertExpectations(t)
	})
}

func TestReconciliationService_ReconcileAll(t *testing.T) {
	ctx := context.Background()

	t.Run("uninitialized employees are skipped, failures recorded", func(t *testing.T) {
		f := newReconcileServiceFixture(t)

		active := []*employee.Employee{
			{ID: 1, Status: employee.StatusActive},
			{ID: 2, Status: employee.StatusActive},
		}
		f.employeeRepo.On("GetActive", ctx).Return(active, nil)
		f.db.On("Begin", ctx).Return(f.tx, nil)
		f.tx.On("Rollback", ctx).Return(nil)

		// Employee 1 has no ledger for the year, employee 2 hits a real error
		f.balanceRepo.On("LockAllForUpdate", ctx, int64(1), 2025).
			Return([]*balance.LeaveTypeBalance{}, nil)
		f.balanceRepo.On("LockAllForUpdate", ctx, int64(2), 2025).
			Return(nil, errors.New("connection reset"))

		report, err := f.svc.ReconcileAll(ctx, 2025)
		require.NoError(t, err)

		assert.Equal(t, 2, report.Total)
		assert.Equal(t, 1, report.Succeeded)
		assert.Equal(t, 1, report.Failed)
		require.Len(t, report.Failures, 1)
		assert.Equal(t, int64(2), report.Failures[0].EmployeeID)
	})

	t.Run("listing failure aborts", func(t *testing.T) {
		f := newReconcileServiceFixture(t)

		f.employeeRepo.On("GetActive", ctx).Return(nil, errors.New("connection reset"))

		_, err := f.svc.ReconcileAll(ctx, 2025)
		assert.Error(t, err)
	})
}
