// Package audit defines the engine's audit trail: drift reports produced by
// reconciliation and settlement events, staged through a transactional outbox
// and published to the history store.
package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType classifies audit events
type EventType string

const (
	EventSettlementApplied  EventType = "SETTLEMENT_APPLIED"
	EventSettlementReversed EventType = "SETTLEMENT_REVERSED"
	EventDriftReport        EventType = "DRIFT_REPORT"
)

// DriftReport is the structured result of one reconciliation run. Returned to
// the caller and persisted to history; never only logged.
type DriftReport struct {
	EmployeeID  int64           `json:"employee_id"`
	LeaveYear   int             `json:"leave_year"`
	DriftBefore decimal.Decimal `json:"drift_before"`
	Corrected   bool            `json:"corrected"`
	CheckedAt   time.Time       `json:"checked_at"`
}

// SettlementEvent records one ledger mutation made on behalf of a request
type SettlementEvent struct {
	RequestID     uuid.UUID       `json:"request_id"`
	EmployeeID    int64           `json:"employee_id"`
	LeaveYear     int             `json:"leave_year"`
	LeaveType     string          `json:"leave_type"`
	Days          decimal.Decimal `json:"days"`
	Type          EventType       `json:"type"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
