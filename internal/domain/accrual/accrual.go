// Package accrual defines the monthly accrual row: one record per
// (employee, leave year, month, leave type), written idempotently by the
// accrual generator and never mutated once the month has closed.
package accrual

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyAccrual records the entitlement earned in one month of a leave year.
// Accrued is the increment for the month; Cumulative is the running total
// through that month, capped by policy.
type MonthlyAccrual struct {
	ID         int64           `json:"id"`
	EmployeeID int64           `json:"employee_id"`
	LeaveYear  int             `json:"leave_year"`
	Month      time.Month      `json:"month"`
	LeaveType  string          `json:"leave_type"`
	Accrued    decimal.Decimal `json:"accrued"`
	Cumulative decimal.Decimal `json:"cumulative"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
