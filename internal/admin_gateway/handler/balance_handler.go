package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hr-leave-ledger/internal/domain/balance"
	"github.com/hr-leave-ledger/internal/domain/employee"
	"github.com/hr-leave-ledger/internal/domain/leaveyear"
	"github.com/hr-leave-ledger/internal/engine/service"
)

// BalanceHandler handles HTTP requests for ledger reads and initialization
type BalanceHandler struct {
	ledgerService service.LedgerService
	balanceRepo   balance.Repository
	aggregateRepo balance.AggregateRepository
	logger        *slog.Logger
}

// NewBalanceHandler creates a new balance handler
func NewBalanceHandler(
	logger *slog.Logger,
	ledgerService service.LedgerService,
	balanceRepo balance.Repository,
	aggregateRepo balance.AggregateRepository,
) *BalanceHandler {
	return &BalanceHandler{
		ledgerService: ledgerService,
		balanceRepo:   balanceRepo,
		aggregateRepo: aggregateRepo,
		logger:        logger,
	}
}

// Initialize opens an employee's ledger for a leave year. Re-running against
// an already opened year is a no-op.
func (h *BalanceHandler) Initialize(c *gin.Context) {
	employeeID, ok := parseEmployeeID(c)
	if !ok {
		return
	}

	var req InitializeBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.ledgerService.Initialize(c.Request.Context(), employeeID, req.LeaveYear); err != nil {
		h.respondServiceError(c, err, "Failed to initialize balances")
		return
	}

	RespondCreated(c, gin.H{"employee_id": employeeID, "leave_year": req.LeaveYear})
}

// Recompute re-derives an employee's allocations from current policy, holding
// taken days fixed. Used after a policy change.
func (h *BalanceHandler) Recompute(c *gin.Context) {
	employeeID, ok := parseEmployeeID(c)
	if !ok {
		return
	}

	var req RecomputeBalanceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Error("Invalid request body", "error", err)
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}
	leaveYear := req.LeaveYear
	if leaveYear == 0 {
		leaveYear = leaveyear.YearOf(time.Now())
	}

	if err := h.ledgerService.Recompute(c.Request.Context(), employeeID, leaveYear); err != nil {
		h.respondServiceError(c, err, "Failed to recompute balances")
		return
	}

	RespondOK(c, gin.H{"employee_id": employeeID, "leave_year": leaveYear})
}

// GetByEmployee returns an employee's full ledger for a leave year, defaulting
// to the current one.
func (h *BalanceHandler) GetByEmployee(c *gin.Context) {
	employeeID, ok := parseEmployeeID(c)
	if !ok {
		return
	}

	leaveYear := leaveyear.YearOf(time.Now())
	if raw := c.Query("leave_year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			RespondBadRequest(c, "Invalid leave_year")
			return
		}
		leaveYear = parsed
	}

	rows, err := h.balanceRepo.GetForYear(c.Request.Context(), employeeID, leaveYear)
	if err != nil {
		h.logger.Error("Failed to load balances", "employee_id", employeeID, "leave_year", leaveYear, "error", err)
		RespondInternalError(c)
		return
	}
	if len(rows) == 0 {
		RespondNotFound(c, "No balances for this employee and leave year")
		return
	}

	response := BalanceSheetResponse{
		EmployeeID: employeeID,
		LeaveYear:  leaveYear,
		Balances:   make([]LeaveTypeBalanceResponse, 0, len(rows)),
	}
	for _, row := range rows {
		response.Balances = append(response.Balances, LeaveTypeBalanceResponse{
			LeaveType: row.LeaveType,
			Allocated: row.Allocated.String(),
			Taken:     row.Taken.String(),
			Remaining: row.Remaining.String(),
			UpdatedAt: row.UpdatedAt.Format(time.RFC3339),
		})
	}

	agg, err := h.aggregateRepo.Get(c.Request.Context(), employeeID, leaveYear)
	if err != nil {
		if !errors.Is(err, balance.ErrBalanceNotFound{}) {
			h.logger.Error("Failed to load aggregate balance", "employee_id", employeeID, "leave_year", leaveYear, "error", err)
			RespondInternalError(c)
			return
		}
	} else {
		response.Aggregate = &AggregateBalanceResponse{
			TotalAllocated: agg.TotalAllocated.String(),
			TotalTaken:     agg.TotalTaken.String(),
			TotalRemaining: agg.TotalRemaining.String(),
		}
	}

	RespondOK(c, response)
}

func (h *BalanceHandler) respondServiceError(c *gin.Context, err error, logMsg string) {
	var invalidYear balance.ErrInvalidLeaveYear
	switch {
	case errors.Is(err, employee.ErrEmployeeNotFound{}):
		RespondNotFound(c, "Employee not found")
	case errors.Is(err, balance.ErrBalanceNotFound{}):
		RespondNotFound(c, "No balances for this employee and leave year")
	case errors.As(err, &invalidYear):
		RespondBadRequest(c, err.Error())
	default:
		h.logger.Error(logMsg, "error", err)
		RespondInternalError(c)
	}
}

// parseEmployeeID reads the employeeID path parameter, responding 400 itself
// on a malformed value.
func parseEmployeeID(c *gin.Context) (int64, bool) {
	idParam := c.Param("employeeID")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(c, "Invalid employee ID")
		return 0, false
	}
	return id, true
}
