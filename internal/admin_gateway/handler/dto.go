package handler

// InitializeBalanceRequest opens an employee's ledger for one leave year
type InitializeBalanceRequest struct {
	LeaveYear int `json:"leave_year" binding:"required,min=2000,max=2100"`
}

// RecomputeBalanceRequest re-derives an employee's allocations for one leave
// year. An omitted leave_year means the current one.
type RecomputeBalanceRequest struct {
	LeaveYear int `json:"leave_year" binding:"omitempty,min=2000,max=2100"`
}

// SettleRequest carries settlement options for a leave request
type SettleRequest struct {
	AllowNegativeBalance bool `json:"allow_negative_balance"`
}

// RunAccrualRequest triggers an accrual run. Without an employee ID the run
// covers every active employee; as_of defaults to today.
type RunAccrualRequest struct {
	EmployeeID *int64 `json:"employee_id,omitempty"`
	AsOf       string `json:"as_of,omitempty"` // YYYY-MM-DD
}

// RunReconciliationRequest triggers a reconciliation run. Without an employee
// ID the run audits every active employee; leave_year defaults to the current
// leave year.
type RunReconciliationRequest struct {
	EmployeeID *int64 `json:"employee_id,omitempty"`
	LeaveYear  int    `json:"leave_year,omitempty" binding:"omitempty,min=2000,max=2100"`
}

// LeaveTypeBalanceResponse represents one ledger row in API responses
type LeaveTypeBalanceResponse struct {
	LeaveType string `json:"leave_type"`
	Allocated string `json:"allocated"`
	Taken     string `json:"taken"`
	Remaining string `json:"remaining"`
	UpdatedAt string `json:"updated_at"`
}

// AggregateBalanceResponse represents the summary row in API responses
type AggregateBalanceResponse struct {
	TotalAllocated string `json:"total_allocated"`
	TotalTaken     string `json:"total_taken"`
	TotalRemaining string `json:"total_remaining"`
}

// BalanceSheetResponse represents an employee's full leave-year ledger
type BalanceSheetResponse struct {
	EmployeeID int64                      `json:"employee_id"`
	LeaveYear  int                        `json:"leave_year"`
	Balances   []LeaveTypeBalanceResponse `json:"balances"`
	Aggregate  *AggregateBalanceResponse  `json:"aggregate,omitempty"`
}

// DriftReportResponse represents one reconciliation result
type DriftReportResponse struct {
	EmployeeID  int64  `json:"employee_id"`
	LeaveYear   int    `json:"leave_year"`
	DriftBefore string `json:"drift_before"`
	Corrected   bool   `json:"corrected"`
	CheckedAt   string `json:"checked_at"`
}
