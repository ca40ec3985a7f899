// Package admin_gateway exposes the engine's operations over HTTP for
// schedulers and admin tooling.
package admin_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hr-leave-ledger/internal/admin_gateway/handler"
	"github.com/hr-leave-ledger/internal/config"
	"github.com/hr-leave-ledger/internal/domain/balance"
	"github.com/hr-leave-ledger/internal/engine/components"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server around the engine
func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	engine *components.Engine,
	balanceRepo balance.Repository,
	aggregateRepo balance.AggregateRepository,
) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	balanceHandler := handler.NewBalanceHandler(log, engine.Ledger, balanceRepo, aggregateRepo)
	engineHandler := handler.NewEngineHandler(log, engine.Accrual, engine.Settlement, engine.Reconciliation)

	setupRouter(log, httpRouter, balanceHandler, engineHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
