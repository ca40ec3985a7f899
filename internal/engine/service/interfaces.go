package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hr-leave-ledger/internal/domain/audit"
	"github.com/hr-leave-ledger/internal/domain/employee"
)

// AccrualService generates monthly accrual rows and keeps allocations current.
type AccrualService interface {
	// AccrueMonth writes every accrual row an employee should have as of asOf
	// and reallocates the balance rows, all in one transaction. Safe to re-run.
	AccrueMonth(ctx context.Context, employeeID int64, asOf time.Time) error

	// AccrueAll runs AccrueMonth for every active employee. One employee's
	// failure never aborts the run.
	AccrueAll(ctx context.Context, asOf time.Time) (*BatchReport, error)
}

// LedgerService creates and recomputes balance rows for a leave year.
type LedgerService interface {
	// Initialize creates the per-type and aggregate rows for an employee's
	// leave year, seeding taken from already-approved requests. A no-op when
	// rows already exist.
	Initialize(ctx context.Context, employeeID int64, leaveYear int) error

	// Recompute re-derives allocated from policy, holding taken fixed.
	Recompute(ctx context.Context, employeeID int64, leaveYear int) error
}

// SettlementService applies leave request status transitions to the ledger.
type SettlementService interface {
	Settle(ctx context.Context, requestID uuid.UUID, opts SettleOptions) error
}

// SettleOptions tunes a single settlement call.
type SettleOptions struct {
	// AllowNegativeBalance permits the settlement to drive remaining below
	// zero, for HR overrides.
	AllowNegativeBalance bool

	CorrelationID string
}

// ReconciliationService detects and repairs aggregate/per-type drift.
type ReconciliationService interface {
	// Reconcile checks one employee's leave year and, when drift exceeds the
	// tolerance, rebuilds taken from the approved request history.
	Reconcile(ctx context.Context, employeeID int64, leaveYear int) (*audit.DriftReport, error)

	// ReconcileAll runs Reconcile for every active employee.
	ReconcileAll(ctx context.Context, leaveYear int) (*BatchReport, error)
}

// BatchRunner fans per-employee tasks out to a bounded worker pool.
type BatchRunner interface {
	Run(ctx context.Context, employees []*employee.Employee, task EmployeeTask) *BatchReport
	Shutdown()
}

// EmployeeTask is one unit of batch work.
type EmployeeTask func(ctx context.Context, emp *employee.Employee) error

// BatchReport summarizes a batch run. Failures carry enough to retry the
// affected employees individually.
type BatchReport struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}

// BatchFailure records one employee's failure within a batch run.
type BatchFailure struct {
	EmployeeID int64  `json:"employee_id"`
	Error      string `json:"error"`
}
