package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hr-leave-ledger/internal/admin_gateway/middleware"
	"github.com/hr-leave-ledger/internal/domain/balance"
	"github.com/hr-leave-ledger/internal/domain/employee"
	"github.com/hr-leave-ledger/internal/domain/leaveyear"
	"github.com/hr-leave-ledger/internal/domain/request"
	"github.com/hr-leave-ledger/internal/engine/service"
)

// EngineHandler exposes the engine's accrual, settlement and reconciliation
// operations to schedulers and admin tooling
type EngineHandler struct {
	accrualService    service.AccrualService
	settlementSvc     service.SettlementService
	reconciliationSvc service.ReconciliationService
	logger            *slog.Logger
}

// NewEngineHandler creates a new engine handler
func NewEngineHandler(
	logger *slog.Logger,
	accrualService service.AccrualService,
	settlementSvc service.SettlementService,
	reconciliationSvc service.ReconciliationService,
) *EngineHandler {
	return &EngineHandler{
		accrualService:    accrualService,
		settlementSvc:     settlementSvc,
		reconciliationSvc: reconciliationSvc,
		logger:            logger,
	}
}

// RunAccrual triggers an accrual run, for one employee or for all active ones
func (h *EngineHandler) RunAccrual(c *gin.Context) {
	req := RunAccrualRequest{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Error("Invalid request body", "error", err)
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	asOf := time.Now()
	if req.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			RespondBadRequest(c, "Invalid as_of date, expected YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	if req.EmployeeID != nil {
		if err := h.accrualService.AccrueMonth(c.Request.Context(), *req.EmployeeID, asOf); err != nil {
			if errors.Is(err, employee.ErrEmployeeNotFound{}) {
				RespondNotFound(c, "Employee not found")
				return
			}
			h.logger.Error("Failed to accrue for employee", "employee_id", *req.EmployeeID, "error", err)
			RespondInternalError(c)
			return
		}
		RespondOK(c, gin.H{"employee_id": *req.EmployeeID, "as_of": asOf.Format("2006-01-02")})
		return
	}

	report, err := h.accrualService.AccrueAll(c.Request.Context(), asOf)
	if err != nil {
		h.logger.Error("Failed to run batch accrual", "error", err)
		RespondInternalError(c)
		return
	}
	RespondOK(c, report)
}

// Settle applies, refuses or reverses the settlement for one leave request
func (h *EngineHandler) Settle(c *gin.Context) {
	idParam := c.Param("requestID")
	requestID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid request ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid request ID")
		return
	}

	req := SettleRequest{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Error("Invalid request body", "error", err)
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	opts := service.SettleOptions{
		AllowNegativeBalance: req.AllowNegativeBalance,
		CorrelationID:        middleware.GetCorrelationID(c),
	}

	if err := h.settlementSvc.Settle(c.Request.Context(), requestID, opts); err != nil {
		h.respondSettlementError(c, requestID, err)
		return
	}

	RespondOK(c, gin.H{"request_id": requestID.String()})
}

// RunReconciliation audits one employee's ledger or every active employee's
func (h *EngineHandler) RunReconciliation(c *gin.Context) {
	req := RunReconciliationRequest{}
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

	if req.EmployeeID != nil {
		report, err := h.reconciliationSvc.Reconcile(c.Request.Context(), *req.EmployeeID, leaveYear)
		if err != nil {
			if errors.Is(err, balance.ErrBalanceNotFound{}) {
				RespondNotFound(c, "No balances for this employee and leave year")
				return
			}
			h.logger.Error("Failed to reconcile employee", "employee_id", *req.EmployeeID, "leave_year", leaveYear, "error", err)
			RespondInternalError(c)
			return
		}
		RespondOK(c, DriftReportResponse{
			EmployeeID:  report.EmployeeID,
			LeaveYear:   report.LeaveYear,
			DriftBefore: report.DriftBefore.String(),
			Corrected:   report.Corrected,
			CheckedAt:   report.CheckedAt.Format(time.RFC3339),
		})
		return
	}

	report, err := h.reconciliationSvc.ReconcileAll(c.Request.Context(), leaveYear)
	if err != nil {
		h.logger.Error("Failed to run batch reconciliation", "leave_year", leaveYear, "error", err)
		RespondInternalError(c)
		return
	}
	RespondOK(c, report)
}

func (h *EngineHandler) respondSettlementError(c *gin.Context, requestID uuid.UUID, err error) {
	var invalidStatus request.ErrInvalidStatus
	var invalidDays balance.ErrInvalidDayCount
	switch {
	case errors.Is(err, request.ErrRequestNotFound{}):
		RespondNotFound(c, "Leave request not found")
	case errors.Is(err, balance.ErrBalanceNotFound{}):
		RespondNotFound(c, "No balances for this employee and leave year")
	case errors.As(err, &invalidStatus), errors.As(err, &invalidDays):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, balance.ErrBalanceExceeded{}):
		h.logger.Warn("Settlement refused: insufficient balance", "request_id", requestID, "error", err)
		RespondConflict(c, "BALANCE_EXCEEDED", err.Error())
	case errors.Is(err, balance.ErrConcurrentModification{}):
		RespondConflict(c, "CONCURRENT_MODIFICATION", "The ledger is being modified concurrently, retry the request")
	default:
		h.logger.Error("Failed to settle leave request", "request_id", requestID, "error", err)
		RespondInternalError(c)
	}
}
