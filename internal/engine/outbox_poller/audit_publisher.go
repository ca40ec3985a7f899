package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hr-leave-ledger/internal/domain/audit"
)

// AuditPublisher publishes outbox messages to the history store
type AuditPublisher interface {
	PublishToHistory(ctx context.Context, message *audit.OutboxMessage) error
}

// AuditPublisherImpl implements AuditPublisher
type AuditPublisherImpl struct {
	outboxRepo  audit.OutboxRepository
	historyRepo audit.HistoryRepository
	logger      *slog.Logger
}

// NewAuditPublisher creates a new publisher
func NewAuditPublisher(
	outboxRepo audit.OutboxRepository,
	historyRepo audit.HistoryRepository,
	logger *slog.Logger,
) AuditPublisher {
	return &AuditPublisherImpl{
		outboxRepo:  outboxRepo,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// PublishToHistory writes one staged audit event to the history store and
// marks the outbox row processed. A payload that cannot be decoded is
// permanently failed; retrying it would fail identically.
func (p *AuditPublisherImpl) PublishToHistory(ctx context.Context, message *audit.OutboxMessage) error {
	logger := p.logger.With("outbox_id", message.ID, "event_type", string(message.EventType))

	switch message.EventType {
	case audit.EventDriftReport:
		report, err := message.DriftReportPayload()
		if err != nil {
			return p.failPermanently(ctx, logger, message, err)
		}
		if err := p.historyRepo.InsertDriftReport(ctx, report); err != nil {
			logger.Error("Failed to insert drift report into history store", "error", err)
			return fmt.Errorf("failed to insert drift report for outbox %d: %w", message.ID, err)
		}

	case audit.EventSettlementApplied, audit.EventSettlementReversed:
		ev, err := message.SettlementPayload()
		if err != nil {
			return p.failPermanently(ctx, logger, message, err)
		}
		if ev.CorrelationID != "" {
			logger = logger.With("correlation_id", ev.CorrelationID)
		}
		if err := p.historyRepo.InsertSettlementEvent(ctx, ev); err != nil {
			logger.Error("Failed to insert settlement event into history store", "error", err)
			return fmt.Errorf("failed to insert settlement event for outbox %d: %w", message.ID, err)
		}

	default:
		return p.failPermanently(ctx, logger, message,
			fmt.Errorf("unknown audit event type %q", message.EventType))
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, audit.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to mark outbox message as PROCESSED", "error", err)
		return fmt.Errorf("failed to mark outbox %d processed: %w", message.ID, err)
	}

	logger.Info("Published audit event to history store")
	return nil
}

func (p *AuditPublisherImpl) failPermanently(ctx context.Context, logger *slog.Logger, message *audit.OutboxMessage, cause error) error {
	logger.Error("Failed to decode outbox payload", "error", cause)
	if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, audit.OutboxStatusFailedToPublish); updateErr != nil {
		logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after decode error", "update_error", updateErr)
	}
	return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, cause)
}
