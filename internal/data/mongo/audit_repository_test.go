package mongo

import (
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/hr-leave-ledger/internal/domain/audit"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestNewAuditRepository(t *testing.T) {
	db := &mongo.Database{}
	logger := slog.Default()

	repo := NewAuditRepository(logger, db)

	assert.NotNil(t, repo)
	assert.IsType(t, &AuditRepository{}, repo)
}

func TestDriftReportDoc_RoundTrip(t *testing.T) {
	report := &audit.DriftReport{
		EmployeeID:  101,
		LeaveYear:   2024,
		DriftBefore: decimal.RequireFromString("2.00"),
		Corrected:   true,
		CheckedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}

	doc := newDriftReportDoc(report)
	assert.Equal(t, "2", doc.DriftBefore)

	back, err := doc.toDomain()
	require.NoError(t, err)
	assert.Equal(t, report.EmployeeID, back.EmployeeID)
	assert.Equal(t, report.LeaveYear, back.LeaveYear)
	assert.True(t, back.DriftBefore.Equal(report.DriftBefore))
	assert.Equal(t, report.Corrected, back.Corrected)
	assert.Equal(t, report.CheckedAt, back.CheckedAt)
}

func TestDriftReportDoc_ToDomainRejectsBadDrift(t *testing.T) {
	doc := &driftReportDoc{
		EmployeeID:  101,
		LeaveYear:   2024,
		DriftBefore: "not-a-number",
	}

	report, err := doc.toDomain()
	assert.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "invalid drift value")
}

func TestSettlementEventDoc(t *testing.T) {
	ev := &audit.SettlementEvent{
		RequestID:     uuid.New(),
		EmployeeID:    101,
		LeaveYear:     2024,
		LeaveType:     "Sick Leave",
		Days:          decimal.RequireFromString("1.5"),
		Type:          audit.EventSettlementApplied,
		CorrelationID: "corr1",
		OccurredAt:    time.Now(),
	}

	doc := newSettlementEventDoc(ev)
	assert.Equal(t, ev.RequestID.String(), doc.RequestID)
	assert.Equal(t, "1.5", doc.Days)
	assert.Equal(t, string(audit.EventSettlementApplied), doc.Type)
	assert.Equal(t, "corr1", doc.CorrelationID)
}
