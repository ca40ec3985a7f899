package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hr-leave-ledger/internal/admin_gateway"
	"github.com/hr-leave-ledger/internal/config"
	"github.com/hr-leave-ledger/internal/data/postgres"
	"github.com/hr-leave-ledger/internal/engine/components"
	"github.com/hr-leave-ledger/internal/logger"
	"github.com/hr-leave-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("admin_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
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

	// Initialize engine services
	engine, err := components.CreateEngine(postgresDB, repos, log, cfg)
	if err != nil {
		log.Error("Failed to create engine", "error", err)
		os.Exit(1)
	}

	// Initialize REST server
	server := admin_gateway.NewServer(log, cfg, engine, repos.Balance, repos.Aggregate)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Release the batch worker pool
	engine.Shutdown()

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
