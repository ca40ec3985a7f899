// Package mongo provides the MongoDB implementation of the audit history
// store: drift reports and settlement events published from the outbox.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hr-leave-ledger/internal/domain/audit"
)

const (
	// DriftReportCollectionName is the name of the drift report collection in MongoDB
	DriftReportCollectionName = "drift_reports"
	// SettlementEventCollectionName is the name of the settlement event collection in MongoDB
	SettlementEventCollectionName = "settlement_events"
)

// AuditRepository implements the audit.HistoryRepository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// driftReportDoc is the stored form of a drift report. Decimal quantities are
// kept as strings; the bson codec cannot round-trip decimal.Decimal.
type driftReportDoc struct {
	EmployeeID  int64     `bson:"employee_id"`
	LeaveYear   int       `bson:"leave_year"`
	DriftBefore string    `bson:"drift_before"`
	Corrected   bool      `bson:"corrected"`
	CheckedAt   time.Time `bson:"checked_at"`
}

func newDriftReportDoc(report *audit.DriftReport) *driftReportDoc {
	return &driftReportDoc{
		EmployeeID:  report.EmployeeID,
		LeaveYear:   report.LeaveYear,
		DriftBefore: report.DriftBefore.String(),
		Corrected:   report.Corrected,
		CheckedAt:   report.CheckedAt,
	}
}

func (d *driftReportDoc) toDomain() (*audit.DriftReport, error) {
	drift, err := decimal.NewFromString(d.DriftBefore)
	if err != nil {
		return nil, fmt.Errorf("invalid drift value %q: %w", d.DriftBefore, err)
	}
	return &audit.DriftReport{
		EmployeeID:  d.EmployeeID,
		LeaveYear:   d.LeaveYear,
		DriftBefore: drift,
		Corrected:   d.Corrected,
		CheckedAt:   d.CheckedAt,
	}, nil
}

// settlementEventDoc is the stored form of a settlement event
type settlementEventDoc struct {
	RequestID     string    `bson:"request_id"`
	EmployeeID    int64     `bson:"employee_id"`
	LeaveYear     int       `bson:"leave_year"`
	LeaveType     string    `bson:"leave_type"`
	Days          string    `bson:"days"`
	Type          string    `bson:"type"`
	CorrelationID string    `bson:"correlation_id,omitempty"`
	OccurredAt    time.Time `bson:"occurred_at"`
}

func newSettlementEventDoc(ev *audit.SettlementEvent) *settlementEventDoc {
	return &settlementEventDoc{
		RequestID:     ev.RequestID.String(),
		EmployeeID:    ev.EmployeeID,
		LeaveYear:     ev.LeaveYear,
		LeaveType:     ev.LeaveType,
		Days:          ev.Days.String(),
		Type:          string(ev.Type),
		CorrelationID: ev.CorrelationID,
		OccurredAt:    ev.OccurredAt,
	}
}

// NewAuditRepository creates a new MongoDB audit history repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.HistoryRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// InsertDriftReport appends a reconciliation report to the history store
func (r *AuditRepository) InsertDriftReport(ctx context.Context, report *audit.DriftReport) error {
	collection := r.db.Collection(DriftReportCollectionName)

	_, err := collection.InsertOne(ctx, newDriftReportDoc(report))
	if err != nil {
		r.logger.Error("Failed to insert drift report",
			"employee_id", report.EmployeeID,
			"leave_year", report.LeaveYear,
			"error", err)
		return fmt.Errorf("failed to insert drift report: %w", err)
	}

	return nil
}

// InsertSettlementEvent appends a settlement event to the history store
func (r *AuditRepository) InsertSettlementEvent(ctx context.Context, ev *audit.SettlementEvent) error {
	collection := r.db.Collection(SettlementEventCollectionName)

	_, err := collection.InsertOne(ctx, newSettlementEventDoc(ev))
	if err != nil {
		r.logger.Error("Failed to insert settlement event",
			"request_id", ev.RequestID.String(),
			"employee_id", ev.EmployeeID,
			"error", err)
		return fmt.Errorf("failed to insert settlement event: %w", err)
	}

	return nil
}

// DriftReportsForEmployee retrieves paginated drift reports for an employee's
// leave year. Results are sorted by check time in descending order (newest first).
func (r *AuditRepository) DriftReportsForEmployee(ctx context.Context, employeeID int64, leaveYear int, limit, offset int) ([]*audit.DriftReport, error) {
	collection := r.db.Collection(DriftReportCollectionName)

	filter := bson.M{
		"employee_id": employeeID,
		"leave_year":  leaveYear,
	}
	opts := options.Find().
		SetSort(bson.M{"checked_at": -1}). // Sort by checked_at in descending order
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get drift reports",
			"employee_id", employeeID,
			"leave_year", leaveYear,
			"error", err)
		return nil, fmt.Errorf("failed to get drift reports: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*driftReportDoc
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode drift reports",
			"employee_id", employeeID,
			"leave_year", leaveYear,
			"error", err)
		return nil, fmt.Errorf("failed to decode drift reports: %w", err)
	}

	reports := make([]*audit.DriftReport, 0, len(docs))
	for _, doc := range docs {
		report, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	return reports, nil
}
