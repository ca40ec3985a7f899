package outbox_poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/hr-leave-ledger/internal/config"
	"github.com/hr-leave-ledger/internal/domain/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockAuditPublisher for testing
type MockAuditPublisher struct {
	mock.Mock
}

func (m *MockAuditPublisher) PublishToHistory(ctx context.Context, message *audit.OutboxMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func TestPoller_ProcessPendingMessages(t *testing.T) {
	logger := slog.Default()

	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	message1 := &audit.OutboxMessage{
		ID:        1,
		EventType: audit.EventDriftReport,
		Payload:   []byte(`{"employee_id":7,"leave_year":2025}`),
		Status:    audit.OutboxStatusPending,
		Attempts:  0,
		CreatedAt: time.Now(),
	}

	message2 := &audit.OutboxMessage{
		ID:        2,
		EventType: audit.EventSettlementApplied,
		Payload:   []byte(`{"employee_id":8,"leave_year":2025}`),
		Status:    audit.OutboxStatusPending,
		Attempts:  0,
		CreatedAt: time.Now(),
	}

	tests := []struct {
		name          string
		setupMocks    func(outboxRepo *MockOutboxRepo, publisher *MockAuditPublisher)
		expectedError error
	}{
		{
			name: "successful processing of pending messages",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockAuditPublisher) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*audit.OutboxMessage{message1, message2}, nil).Once()

				publisher.On("PublishToHistory", mock.Anything, message1).Return(nil).Once()
				publisher.On("PublishToHistory", mock.Anything, message2).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error getting pending messages",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockAuditPublisher) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return(nil, errors.New("db error")).Once()
			},
			expectedError: errors.New("failed to get pending outbox messages"),
		},
		{
			name: "no pending messages",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockAuditPublisher) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*audit.OutboxMessage{}, nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error publishing one message",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockAuditPublisher) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*audit.OutboxMessage{message1, message2}, nil).Once()

				publisher.On("PublishToHistory", mock.Anything, message1).Return(errors.New("publish error")).Once()
				outboxRepo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()

				publisher.On("PublishToHistory", mock.Anything, message2).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "max retry attempts reached",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockAuditPublisher) {
				maxAttemptsMessage := &audit.OutboxMessage{
					ID:        3,
					EventType: audit.EventDriftReport,
					Payload:   []byte(`{}`),
					Status:    audit.OutboxStatusPending,
					Attempts:  2,
					CreatedAt: time.Now(),
				}

				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*audit.OutboxMessage{maxAttemptsMessage}, nil).Once()

				publisher.On("PublishToHistory", mock.Anything, maxAttemptsMessage).Return(errors.New("publish error")).Once()

				outboxRepo.On("IncrementAttempts", mock.Anything, int64(3)).Return(nil).Once()

				outboxRepo.On("UpdateStatus", mock.Anything, int64(3), audit.OutboxStatusFailedToPublish).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "increment failure skips the status update",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockAuditPublisher) {
				maxAttemptsMessage := &audit.OutboxMessage{
					ID:        4,
					EventType: audit.EventDriftReport,
					Payload:   []byte(`{}`),
					Status:    audit.OutboxStatusPending,
					Attempts:  2,
					CreatedAt: time.Now(),
				}

				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*audit.OutboxMessage{maxAttemptsMessage}, nil).Once()

				publisher.On("PublishToHistory", mock.Anything, maxAttemptsMessage).Return(errors.New("publish error")).Once()

				outboxRepo.On("IncrementAttempts", mock.Anything, int64(4)).Return(errors.New("db error")).Once()
			},
			expectedError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outboxRepo := &MockOutboxRepo{}
			publisher := &MockAuditPublisher{}
			poller := NewPoller(cfg, outboxRepo, publisher, logger)

			tt.setupMocks(outboxRepo, publisher)
			ctx := context.Background()

			err := poller.processPendingMessages(ctx)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			outboxRepo.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestPoller_Start(t *testing.T) {
	outboxRepo := &MockOutboxRepo{}
	publisher := &MockAuditPublisher{}
	logger := slog.Default()

	cfg := &config.OutboxConfig{
		PollingInterval:  10 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	poller := NewPoller(cfg, outboxRepo, publisher, logger)

	outboxRepo.On("GetPending", mock.Anything, 10).Return([]*audit.OutboxMessage{}, nil).Maybe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
