package audit

import (
	"encoding/json"
	"time"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// OutboxMessage stages an audit event in the same database transaction that
// mutated the ledger, so history publishing cannot lose or invent events.
type OutboxMessage struct {
	ID            int64           `json:"id"`
	EmployeeID    int64           `json:"employee_id"`
	LeaveYear     int             `json:"leave_year"`
	EventType     EventType       `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	Status        OutboxStatus    `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewSettlementMessage stages a settlement event
func NewSettlementMessage(ev *SettlementEvent) (*OutboxMessage, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &OutboxMessage{
		EmployeeID: ev.EmployeeID,
		LeaveYear:  ev.LeaveYear,
		EventType:  ev.Type,
		Payload:    payload,
		Status:     OutboxStatusPending,
		CreatedAt:  time.Now(),
	}, nil
}

// NewDriftReportMessage stages a reconciliation report
func NewDriftReportMessage(report *DriftReport) (*OutboxMessage, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	return &OutboxMessage{
		EmployeeID: report.EmployeeID,
		LeaveYear:  report.LeaveYear,
		EventType:  EventDriftReport,
		Payload:    payload,
		Status:     OutboxStatusPending,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *OutboxMessage) MarkAsProcessed() {
	m.Status = OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *OutboxMessage) MarkAsFailed() {
	m.Status = OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// DriftReportPayload extracts a drift report from the payload
func (m *OutboxMessage) DriftReportPayload() (*DriftReport, error) {
	var report DriftReport
	if err := json.Unmarshal(m.Payload, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// SettlementPayload extracts a settlement event from the payload
func (m *OutboxMessage) SettlementPayload() (*SettlementEvent, error) {
	var ev SettlementEvent
	if err := json.Unmarshal(m.Payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
