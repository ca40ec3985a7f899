package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementMessageRoundTrip(t *testing.T) {
	ev := &SettlementEvent{
		RequestID:     uuid.New(),
		EmployeeID:    7,
		LeaveYear:     2025,
		LeaveType:     "Earned/Annual Leave",
		Days:          decimal.RequireFromString("3"),
		Type:          EventSettlementApplied,
		CorrelationID: "corr-1",
		OccurredAt:    time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC),
	}

	msg, err := NewSettlementMessage(ev)
	require.NoError(t, err)

	assert.Equal(t, int64(7), msg.EmployeeID)
	assert.Equal(t, 2025, msg.LeaveYear)
	assert.Equal(t, EventSettlementApplied, msg.EventType)
	assert.Equal(t, OutboxStatusPending, msg.Status)
	assert.Zero(t, msg.Attempts)

	decoded, err := msg.SettlementPayload()
	require.NoError(t, err)
	assert.Equal(t, ev.RequestID, decoded.RequestID)
	assert.True(t, decoded.Days.Equal(ev.Days))
	assert.Equal(t, "corr-1", decoded.CorrelationID)
}

func TestDriftReportMessageRoundTrip(t *testing.T) {
	report := &DriftReport{
		EmployeeID:  7,
		LeaveYear:   2025,
		DriftBefore: decimal.RequireFromString("2"),
		Corrected:   true,
		CheckedAt:   time.Date(2025, time.July, 1, 3, 0, 0, 0, time.UTC),
	}

	msg, err := NewDriftReportMessage(report)
	require.NoError(t, err)

	assert.Equal(t, EventDriftReport, msg.EventType)
	assert.Equal(t, OutboxStatusPending, msg.Status)

	decoded, err := msg.DriftReportPayload()
	require.NoError(t, err)
	assert.True(t, decoded.DriftBefore.Equal(report.DriftBefore))
	assert.True(t, decoded.Corrected)
}

func TestPayloadDecodeErrors(t *testing.T) {
	msg := &OutboxMessage{Payload: []byte("not json")}

	_, err := msg.DriftReportPayload()
	assert.Error(t, err)

	_, err = msg.SettlementPayload()
	assert.Error(t, err)
}

func TestStatusTransitions(t *testing.T) {
	msg := &OutboxMessage{Status: OutboxStatusPending}

	msg.MarkAsProcessed()
	assert.Equal(t, OutboxStatusProcessed, msg.Status)
	require.NotNil(t, msg.LastAttemptAt)

	msg.MarkAsFailed()
	assert.Equal(t, OutboxStatusFailedToPublish, msg.Status)
}
