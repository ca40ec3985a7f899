// Package components wires the engine services from their repositories.
package components

import (
	"log/slog"

	"github.com/hr-leave-ledger/internal/config"
	"github.com/hr-leave-ledger/internal/domain/accrual"
	"github.com/hr-leave-ledger/internal/domain/audit"
	"github.com/hr-leave-ledger/internal/domain/balance"
	"github.com/hr-leave-ledger/internal/domain/employee"
	"github.com/hr-leave-ledger/internal/domain/policy"
	"github.com/hr-leave-ledger/internal/domain/request"
	"github.com/hr-leave-ledger/internal/engine/service"
	"github.com/hr-leave-ledger/internal/platform/persistence"
)

// Repositories bundles every repository the engine services depend on.
type Repositories struct {
	Employee   employee.Repository
	Policy     policy.Repository
	Accrual    accrual.Repository
	Balance    balance.Repository
	Aggregate  balance.AggregateRepository
	Request    request.Repository
	Settlement request.SettlementRepository
	Outbox     audit.OutboxRepository
}

// Engine groups the four services plus the worker pool behind them.
type Engine struct {
	Accrual        service.AccrualService
	Ledger         service.LedgerService
	Settlement     service.SettlementService
	Reconciliation service.ReconciliationService

	runner *service.WorkerPoolBatchRunner
}

// CreateEngine creates the engine services with all their dependencies.
// Batch operations share one worker pool sized from config.
func CreateEngine(
	pgDB *persistence.PostgresDB,
	repos Repositories,
	logger *slog.Logger,
	cfg *config.Config,
) (*Engine, error) {
	runner, err := service.NewWorkerPoolBatchRunner(
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create batch worker pool", "error", err)
		return nil, err
	}
	logger.Info("Created batch worker pool", "pool_size", cfg.WorkerPool.Size)

	db := pgDB.Pool()

	return &Engine{
		Accrual: service.NewAccrualService(
			db, repos.Employee, repos.Policy, repos.Accrual,
			repos.Balance, repos.Aggregate, runner, logger,
		),
		Ledger: service.NewLedgerService(
			db, repos.Employee, repos.Policy, repos.Balance,
			repos.Aggregate, repos.Request, logger,
		),
		Settlement: service.NewSettlementService(
			db, repos.Request, repos.Settlement, repos.Balance,
			repos.Aggregate, repos.Outbox, logger,
		),
		Reconciliation: service.NewReconciliationService(
			db, repos.Employee, repos.Balance, repos.Aggregate,
			repos.Request, repos.Outbox, runner, logger,
		),
		runner: runner,
	}, nil
}

// Shutdown releases the worker pool.
func (e *Engine) Shutdown() {
	e.runner.Shutdown()
}
