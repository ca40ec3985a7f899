package request

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementState tracks what the ledger has done with a request
type SettlementState string

const (
	SettlementApplied  SettlementState = "APPLIED"
	SettlementReversed SettlementState = "REVERSED"
)

// Settlement is the engine-owned record guaranteeing settlement idempotence:
// one row per request id, created when an approval is first applied to the
// ledger. Re-settling an applied request is a no-op; cancelling reverses the
// recorded days, not whatever the request happens to say now.
type Settlement struct {
	RequestID  uuid.UUID       `json:"request_id"`
	EmployeeID int64           `json:"employee_id"`
	LeaveYear  int             `json:"leave_year"`
	LeaveType  string          `json:"leave_type"`
	Days       decimal.Decimal `json:"days"`
	State      SettlementState `json:"state"`
	AppliedAt  time.Time       `json:"applied_at"`
	ReversedAt *time.Time      `json:"reversed_at,omitempty"`
}

// NewSettlement records a freshly applied approval
func NewSettlement(r *LeaveRequest) *Settlement {
	return &Settlement{
		RequestID:  r.ID,
		EmployeeID: r.EmployeeID,
		LeaveYear:  r.LeaveYear(),
		LeaveType:  r.LeaveType,
		Days:       r.TotalDays,
		State:      SettlementApplied,
		AppliedAt:  time.Now(),
	}
}

// MarkReversed flips the record after a cancellation has been applied
func (s *Settlement) MarkReversed() {
	s.State = SettlementReversed
	now := time.Now()
	s.ReversedAt = &now
}
