// Package request is the read model for leave requests owned by the external
// workflow module, plus the engine's own settlement bookkeeping. The engine
// never mutates a request; it only reacts to status transitions.
package request

import (
	"time"

	"github.com/google/uuid"
	"github.com/hr-leave-ledger/internal/domain/leaveyear"
	"github.com/shopspring/decimal"
)

// Status is the workflow state of a leave request as consumed by the ledger.
// Only Approved ever has settlement applied; Rejected, Cancelled, and a
// request that never leaves Pending are terminal for the ledger.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a status this engine understands
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// LeaveRequest mirrors the workflow row the engine is allowed to read.
// ToDate is nil for single-day leave.
type LeaveRequest struct {
	ID         uuid.UUID       `json:"id"`
	EmployeeID int64           `json:"employee_id"`
	LeaveType  string          `json:"leave_type"`
	FromDate   time.Time       `json:"from_date"`
	ToDate     *time.Time      `json:"to_date,omitempty"`
	TotalDays  decimal.Decimal `json:"total_days"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// LeaveYear returns the leave year the request settles against: the year
// containing the leave dates themselves, not the request's creation
// timestamp. A request created in March for leave taken in April belongs to
// the new year's ledger.
func (r *LeaveRequest) LeaveYear() int {
	return leaveyear.YearOf(r.FromDate)
}
