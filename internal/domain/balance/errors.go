package balance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrBalanceNotFound indicates a missing ledger row where one was expected;
// initialize was not called first.
type ErrBalanceNotFound struct {
	EmployeeID int64
	LeaveYear  int
	LeaveType  string
}

func (e ErrBalanceNotFound) Error() string {
	if e.LeaveType == "" {
		return fmt.Sprintf("no leave balance for employee %d in leave year %d", e.EmployeeID, e.LeaveYear)
	}
	return fmt.Sprintf("no %s balance for employee %d in leave year %d", e.LeaveType, e.EmployeeID, e.LeaveYear)
}

// Is matches any ErrBalanceNotFound when the target carries no key
func (e ErrBalanceNotFound) Is(target error) bool {
	t, ok := target.(ErrBalanceNotFound)
	if !ok {
		return false
	}
	if t.EmployeeID == 0 && t.LeaveYear == 0 && t.LeaveType == "" {
		return true
	}
	return t == e
}

// ErrBalanceExceeded indicates a settlement that would drive remaining
// negative without an explicit override.
type ErrBalanceExceeded struct {
	EmployeeID int64
	LeaveYear  int
	LeaveType  string
	Remaining  decimal.Decimal
	Requested  decimal.Decimal
}

func (e ErrBalanceExceeded) Error() string {
	return fmt.Sprintf("insufficient %s balance for employee %d in leave year %d: %s remaining, %s requested",
		e.LeaveType, e.EmployeeID, e.LeaveYear, e.Remaining.String(), e.Requested.String())
}

// Is matches any ErrBalanceExceeded when the target carries no key
func (e ErrBalanceExceeded) Is(target error) bool {
	t, ok := target.(ErrBalanceExceeded)
	if !ok {
		return false
	}
	if t.EmployeeID == 0 && t.LeaveType == "" {
		return true
	}
	return t.EmployeeID == e.EmployeeID && t.LeaveYear == e.LeaveYear && t.LeaveType == e.LeaveType
}

// ErrConcurrentModification indicates an optimistic lock failure or lock
// timeout; the operation is safe to retry.
type ErrConcurrentModification struct {
	EmployeeID int64
	LeaveYear  int
	LeaveType  string
}

func (e ErrConcurrentModification) Error() string {
	return fmt.Sprintf("concurrent modification detected for employee %d, leave year %d, type %q",
		e.EmployeeID, e.LeaveYear, e.LeaveType)
}

// Is matches any ErrConcurrentModification when the target carries no key
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	if t.EmployeeID == 0 {
		return true
	}
	return t == e
}

// ErrInvalidDayCount indicates a non-positive day count
type ErrInvalidDayCount struct {
	Days decimal.Decimal
}

func (e ErrInvalidDayCount) Error() string {
	return "day count must be positive: " + e.Days.String()
}

// ErrInvalidLeaveYear indicates a leave year outside the acceptable range
type ErrInvalidLeaveYear struct {
	LeaveYear int
}

func (e ErrInvalidLeaveYear) Error() string {
	return fmt.Sprintf("invalid leave year: %d", e.LeaveYear)
}
