// Package policy defines per-leave-type accrual configuration. Rates and caps
// are data rows, not code, so a policy change never requires a redeploy.
package policy

import (
	"time"

	"github.com/shopspring/decimal"
)

// Well-known leave types seeded by the initial migration.
const (
	LeaveTypeEarned = "Earned/Annual Leave"
	LeaveTypeSick   = "Sick Leave"
	LeaveTypeCasual = "Casual Leave"
)

// LeaveTypePolicy configures how one leave type accrues: MonthlyRate days per
// completed service month, capped at AnnualCap for the leave year.
type LeaveTypePolicy struct {
	LeaveType      string          `json:"leave_type"`
	MonthlyRate    decimal.Decimal `json:"monthly_rate"`
	AnnualCap      decimal.Decimal `json:"annual_cap"`
	YearStartMonth time.Month      `json:"year_start_month"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AccruedAt returns the cumulative entitlement after the given number of
// completed service months, capped at the annual cap.
func (p *LeaveTypePolicy) AccruedAt(serviceMonths int) decimal.Decimal {
	accrued := p.MonthlyRate.Mul(decimal.NewFromInt(int64(serviceMonths)))
	if accrued.GreaterThan(p.AnnualCap) {
		return p.AnnualCap
	}
	return accrued
}

// MonthlyAccrued returns the increment earned in service month n, i.e. the
// difference between consecutive cumulative entitlements. Zero once capped.
func (p *LeaveTypePolicy) MonthlyAccrued(serviceMonth int) decimal.Decimal {
	if serviceMonth <= 0 {
		return decimal.Zero
	}
	return p.AccruedAt(serviceMonth).Sub(p.AccruedAt(serviceMonth - 1))
}
