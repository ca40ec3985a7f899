package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hr-leave-ledger/internal/config"
	"github.com/hr-leave-ledger/internal/data/mongo"
	"github.com/hr-leave-ledger/internal/data/postgres"
	"github.com/hr-leave-ledger/internal/engine/components"
	"github.com/hr-leave-ledger/internal/engine/consumer"
	"github.com/hr-leave-ledger/internal/engine/outbox_poller"
	"github.com/hr-leave-ledger/internal/engine/scheduler"
	"github.com/hr-leave-ledger/internal/logger"
	"github.com/hr-leave-ledger/internal/platform/messaging/consumers"
	"github.com/hr-leave-ledger/internal/platform/messaging/producers"
	"github.com/hr-leave-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("leave_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Leave Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	repos := components.Repositories{
		Employee:   postgres.NewEmployeeRepository(log, postgresDB),
		Policy:     postgres.NewPolicyRepository(log, postgresDB),
		Accrual:    postgres.NewAccrualRepository(log, postgresDB),
		Balance:    postgres.NewBalanceRepository(log, postgresDB),
		Aggregate:  postgres.NewAggregateRepository(log, postgresDB),
		Request:    postgres.NewRequestRepository(log, postgresDB),
		Settlement: postgres.NewSettlementRepository(log, postgresDB),
		Outbox:     postgres.NewOutboxRepository(log, postgresDB),
	}
	historyRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer is nil when DLQTopic is not configured. The handler must
	// receive a nil interface in that case, not a typed nil.
	var deadLetterPublisher producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetterPublisher = dlqProducer
	}

	// Initialize engine services
	engine, err := components.CreateEngine(postgresDB, repos, log, cfg)
	if err != nil {
		log.Error("Failed to create engine", "error", err)
		os.Exit(1)
	}

	// Initialize leave status event handler
	leaveEventHandler := consumer.NewLeaveEventHandler(
		log,
		engine.Settlement,
		deadLetterPublisher,
	)

	// Initialize outbox poller
	auditPublisher := outbox_poller.NewAuditPublisher(
		repos.Outbox,
		historyRepo,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		repos.Outbox,
		auditPublisher,
		log,
	)

	// Initialize scheduler for periodic accrual and reconciliation runs
	engineScheduler := scheduler.NewScheduler(
		&cfg.Scheduler,
		engine.Accrual,
		engine.Reconciliation,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.LeaveStatusTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.LeaveStatusTopic, cfg.Kafka.ConsumerGroup, leaveEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Start scheduler in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		engineScheduler.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Release the batch worker pool
	engine.Shutdown()

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Leave Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Leave Processor shutdown completed with errors")
	} else {
		log.Info("Leave Processor shutdown completed successfully")
	}
}
