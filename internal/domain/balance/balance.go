// Package balance owns the per-type leave ledger and its aggregate view.
// The invariant every write path must hold: remaining == allocated - taken,
// and the aggregate row always equals the sum of the per-type rows.
package balance

import (
	"time"

	"github.com/shopspring/decimal"
)

// DriftEpsilon is the tolerance below which an aggregate/per-type mismatch is
// treated as rounding noise rather than drift.
var DriftEpsilon = decimal.RequireFromString("0.01")

// LeaveTypeBalance is one ledger row: the entitlement state of a single leave
// type for one employee in one leave year.
type LeaveTypeBalance struct {
	ID         int64           `json:"id"`
	EmployeeID int64           `json:"employee_id"`
	LeaveYear  int             `json:"leave_year"`
	LeaveType  string          `json:"leave_type"`
	Allocated  decimal.Decimal `json:"allocated"`
	Taken      decimal.Decimal `json:"taken"`
	Remaining  decimal.Decimal `json:"remaining"`
	Version    int             `json:"version"` // For optimistic locking
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewLeaveTypeBalance creates a fresh ledger row with nothing taken.
func NewLeaveTypeBalance(employeeID int64, leaveYear int, leaveType string, allocated decimal.Decimal) *LeaveTypeBalance {
	now := time.Now()
	return &LeaveTypeBalance{
		EmployeeID: employeeID,
		LeaveYear:  leaveYear,
		LeaveType:  leaveType,
		Allocated:  allocated,
		Taken:      decimal.Zero,
		Remaining:  allocated,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Apply consumes days from the balance. Without allowNegative it refuses to
// drive remaining below zero.
func (b *LeaveTypeBalance) Apply(days decimal.Decimal, allowNegative bool) error {
	if !days.IsPositive() {
		return ErrInvalidDayCount{Days: days}
	}
	if !allowNegative && days.GreaterThan(b.Remaining) {
		return ErrBalanceExceeded{
			EmployeeID: b.EmployeeID,
			LeaveYear:  b.LeaveYear,
			LeaveType:  b.LeaveType,
			Remaining:  b.Remaining,
			Requested:  days,
		}
	}

	b.Taken = b.Taken.Add(days)
	b.Remaining = b.Allocated.Sub(b.Taken)
	b.touch()
	return nil
}

// Reverse undoes a previously applied consumption.
func (b *LeaveTypeBalance) Reverse(days decimal.Decimal) error {
	if !days.IsPositive() {
		return ErrInvalidDayCount{Days: days}
	}

	b.Taken = b.Taken.Sub(days)
	b.Remaining = b.Allocated.Sub(b.Taken)
	b.touch()
	return nil
}

// Reallocate replaces the allocation, holding taken fixed. Used after a
// policy change or a fresh accrual run.
func (b *LeaveTypeBalance) Reallocate(allocated decimal.Decimal) {
	b.Allocated = allocated
	b.Remaining = allocated.Sub(b.Taken)
	b.touch()
}

// SetTaken overwrites taken from an authoritative recomputation,
// re-deriving remaining.
func (b *LeaveTypeBalance) SetTaken(taken decimal.Decimal) {
	b.Taken = taken
	b.Remaining = b.Allocated.Sub(taken)
	b.touch()
}

func (b *LeaveTypeBalance) touch() {
	b.Version++
	b.UpdatedAt = time.Now()
}

// AggregateBalance is the single summary row per employee and leave year.
// Its totals must always equal the sums across the per-type rows.
type AggregateBalance struct {
	ID             int64           `json:"id"`
	EmployeeID     int64           `json:"employee_id"`
	LeaveYear      int             `json:"leave_year"`
	TotalAllocated decimal.Decimal `json:"total_allocated"`
	TotalTaken     decimal.Decimal `json:"total_taken"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AggregateOf sums a set of per-type rows into the summary they must match.
func AggregateOf(employeeID int64, leaveYear int, rows []*LeaveTypeBalance) *AggregateBalance {
	agg := &AggregateBalance{
		EmployeeID:     employeeID,
		LeaveYear:      leaveYear,
		TotalAllocated: decimal.Zero,
		TotalTaken:     decimal.Zero,
		TotalRemaining: decimal.Zero,
		Version:        1,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	for _, b := range rows {
		agg.TotalAllocated = agg.TotalAllocated.Add(b.Allocated)
		agg.TotalTaken = agg.TotalTaken.Add(b.Taken)
		agg.TotalRemaining = agg.TotalRemaining.Add(b.Remaining)
	}
	return agg
}

// Apply mirrors a per-type consumption onto the totals.
func (a *AggregateBalance) Apply(days decimal.Decimal) {
	a.TotalTaken = a.TotalTaken.Add(days)
	a.TotalRemaining = a.TotalAllocated.Sub(a.TotalTaken)
	a.touch()
}

// Reverse mirrors a per-type reversal onto the totals.
func (a *AggregateBalance) Reverse(days decimal.Decimal) {
	a.TotalTaken = a.TotalTaken.Sub(days)
	a.TotalRemaining = a.TotalAllocated.Sub(a.TotalTaken)
	a.touch()
}

// Rebuild replaces the totals with the sums of the given per-type rows.
// Used by reconciliation after the per-type rows have been corrected.
func (a *AggregateBalance) Rebuild(rows []*LeaveTypeBalance) {
	a.TotalAllocated = decimal.Zero
	a.TotalTaken = decimal.Zero
	a.TotalRemaining = decimal.Zero
	for _, b := range rows {
		a.TotalAllocated = a.TotalAllocated.Add(b.Allocated)
		a.TotalTaken = a.TotalTaken.Add(b.Taken)
		a.TotalRemaining = a.TotalRemaining.Add(b.Remaining)
	}
	a.touch()
}

func (a *AggregateBalance) touch() {
	a.Version++
	a.UpdatedAt = time.Now()
}

// Drift returns the absolute difference between the aggregate's taken total
// and the per-type sum.
func (a *AggregateBalance) Drift(rows []*LeaveTypeBalance) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range rows {
		sum = sum.Add(b.Taken)
	}
	return a.TotalTaken.Sub(sum).Abs()
}

// HasDrift reports whether the mismatch exceeds the tolerance.
func (a *AggregateBalance) HasDrift(rows []*LeaveTypeBalance) bool {
	return a.Drift(rows).GreaterThan(DriftEpsilon)
}
