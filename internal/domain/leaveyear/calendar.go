// Package leaveyear implements the fiscal leave-year calendar.
// A leave year Y runs from April 1 of Y through March 31 of Y+1, and every
// accrual, balance, and settlement bucket in the system is keyed by it.
// All functions here are pure; out-of-range inputs are clamped, never rejected.
package leaveyear

import "time"

// StartMonth is the first calendar month of a leave year.
const StartMonth = time.April

// MonthsPerYear is the number of accrual months in a full leave year.
const MonthsPerYear = 12

// YearOf returns the leave year containing the given date. Dates in
// January-March belong to the leave year that started the previous April.
func YearOf(d time.Time) int {
	if d.Month() >= StartMonth {
		return d.Year()
	}
	return d.Year() - 1
}

// Start returns the first day of the given leave year.
func Start(year int) time.Time {
	return time.Date(year, StartMonth, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the given leave year (March 31 of year+1).
func End(year int) time.Time {
	return Start(year + 1).AddDate(0, 0, -1)
}

// Contains reports whether the date falls within the given leave year.
func Contains(year int, d time.Time) bool {
	return YearOf(d) == year
}

// MonthIndex converts a calendar month to its 1-based position within the
// leave year (April=1 ... March=12).
func MonthIndex(m time.Month) int {
	if m >= StartMonth {
		return int(m) - int(StartMonth) + 1
	}
	return int(m) + MonthsPerYear - int(StartMonth) + 1
}

// ServiceMonthIndex returns the number of completed service months within the
// current leave year as of asOf, which is also the number of monthly accruals
// that should exist. An employee hired before the leave year started accrues
// from April; an employee hired mid-year accrues from the hire month. The
// result is clamped to [0, 12].
func ServiceMonthIndex(hireDate, asOf time.Time) int {
	year := YearOf(asOf)

	idx := MonthIndex(asOf.Month())
	if hireDate.After(End(year)) {
		return 0
	}
	if Contains(year, hireDate) {
		idx -= MonthIndex(hireDate.Month()) - 1
	}

	return clamp(idx, 0, MonthsPerYear)
}

// AccrualMonths lists the calendar months of the leave year that have opened
// as of asOf, in accrual order. Months before the hire month are excluded so
// backfills never write accruals an employee did not serve.
func AccrualMonths(year int, hireDate, asOf time.Time) []time.Month {
	if YearOf(asOf) != year || hireDate.After(End(year)) {
		return nil
	}

	first := 1
	if Contains(year, hireDate) {
		first = MonthIndex(hireDate.Month())
	}
	last := MonthIndex(asOf.Month())

	var months []time.Month
	for i := first; i <= last; i++ {
		months = append(months, monthAt(i))
	}
	return months
}

// monthAt is the inverse of MonthIndex for 1-based positions.
func monthAt(idx int) time.Month {
	m := int(StartMonth) + idx - 1
	if m > MonthsPerYear {
		m -= MonthsPerYear
	}
	return time.Month(m)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
