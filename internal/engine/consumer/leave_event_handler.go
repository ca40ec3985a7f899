// Package consumer reacts to leave request status transitions published by
// the workflow module.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hr-leave-ledger/internal/domain/balance"
	"github.com/hr-leave-ledger/internal/domain/request"
	"github.com/hr-leave-ledger/internal/engine/service"
	"github.com/hr-leave-ledger/internal/platform/messaging/producers"
	"github.com/shopspring/decimal"
)

// LeaveStatusEvent is the wire form of one status transition.
type LeaveStatusEvent struct {
	RequestID     uuid.UUID       `json:"request_id"`
	EmployeeID    int64           `json:"employee_id"`
	LeaveType     string          `json:"leave_type"`
	Status        string          `json:"status"`
	TotalDays     decimal.Decimal `json:"total_days"`
	FromDate      time.Time       `json:"from_date"`
	ToDate        *time.Time      `json:"to_date,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// LeaveEventHandler handles incoming leave status messages from Kafka
type LeaveEventHandler struct {
	settlementService service.SettlementService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewLeaveEventHandler creates a new handler
func NewLeaveEventHandler(
	logger *slog.Logger,
	settlementService service.SettlementService,
	producer producers.DeadLetterPublisher,
) *LeaveEventHandler {
	return &LeaveEventHandler{
		settlementService: settlementService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages. A nil return commits the offset;
// unparseable payloads are shunted to the DLQ, business refusals are logged
// and acknowledged, and infrastructure errors propagate for redelivery.
func (h *LeaveEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event LeaveStatusEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal leave status event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received leave status event for settlement",
		"request_id", event.RequestID.String(),
		"employee_id", event.EmployeeID,
		"leave_type", event.LeaveType,
		"status", event.Status,
	)

	opts := service.SettleOptions{CorrelationID: event.CorrelationID}
	if err := h.settlementService.Settle(ctx, event.RequestID, opts); err != nil {
		if isBusinessRefusal(err) {
			// The ledger said no; redelivery would say no again
			logger.Warn("Settlement refused, acknowledging event",
				"request_id", event.RequestID.String(),
				"error", err,
			)
			return nil
		}

		logger.Error("Failed to settle leave request",
			"request_id", event.RequestID.String(),
			"error", err,
		)
		return fmt.Errorf("settling request %s failed: %w", event.RequestID.String(), err)
	}

	logger.Info("Successfully settled leave request", "request_id", event.RequestID.String())
	return nil // Success, commit offset
}

// isBusinessRefusal separates deterministic refusals from infrastructure
// failures worth redelivering. Concurrent modification is retryable and
// deliberately not listed.
func isBusinessRefusal(err error) bool {
	var invalidStatus request.ErrInvalidStatus
	var invalidDays balance.ErrInvalidDayCount
	return errors.Is(err, balance.ErrBalanceExceeded{}) ||
		errors.Is(err, balance.ErrBalanceNotFound{}) ||
		errors.Is(err, request.ErrRequestNotFound{}) ||
		errors.As(err, &invalidStatus) ||
		errors.As(err, &invalidDays)
}
