// Package scheduler drives the periodic accrual and reconciliation runs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/hr-leave-ledger/internal/config"
	"github.com/hr-leave-ledger/internal/domain/leaveyear"
	"github.com/hr-leave-ledger/internal/engine/service"
)

// Scheduler ticks the accrual batch and, when enabled, the reconciliation
// audit at their configured intervals.
type Scheduler struct {
	accrualService service.AccrualService
	reconService   service.ReconciliationService
	logger         *slog.Logger

	accrualInterval time.Duration
	auditInterval   time.Duration
	auditEnabled    bool

	// now is swapped out by tests
	now func() time.Time
}

func NewScheduler(
	cfg *config.SchedulerConfig,
	accrualService service.AccrualService,
	reconService service.ReconciliationService,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		accrualService:  accrualService,
		reconService:    reconService,
		logger:          logger,
		accrualInterval: cfg.AccrualInterval,
		auditInterval:   cfg.AuditInterval,
		auditEnabled:    cfg.AuditEnabled,
		now:             time.Now,
	}
}

// Start runs the tick loop until the context is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting engine scheduler",
		"accrual_interval", s.accrualInterval.String(),
		"audit_interval", s.auditInterval.String(),
		"audit_enabled", s.auditEnabled,
	)

	accrualTicker := time.NewTicker(s.accrualInterval)
	defer accrualTicker.Stop()

	var auditTick <-chan time.Time
	if s.auditEnabled {
		auditTicker := time.NewTicker(s.auditInterval)
		defer auditTicker.Stop()
		auditTick = auditTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Engine scheduler stopping due to context cancellation.")
			return
		case <-accrualTicker.C:
			s.runAccrual(ctx)
		case <-auditTick:
			s.runAudit(ctx)
		}
	}
}

// RunAccrualOnce triggers a single accrual batch outside the tick loop.
func (s *Scheduler) RunAccrualOnce(ctx context.Context) (*service.BatchReport, error) {
	return s.accrualService.AccrueAll(ctx, s.now())
}

func (s *Scheduler) runAccrual(ctx context.Context) {
	s.logger.Debug("Scheduler tick: running accrual batch")

	report, err := s.accrualService.AccrueAll(ctx, s.now())
	if err != nil {
		s.logger.Error("Scheduled accrual batch failed", "error", err)
		return
	}
	s.logger.Info("Scheduled accrual batch complete",
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
	)
}

func (s *Scheduler) runAudit(ctx context.Context) {
	year := leaveyear.YearOf(s.now())
	s.logger.Debug("Scheduler tick: running reconciliation audit", "leave_year", year)

	report, err := s.reconService.ReconcileAll(ctx, year)
	if err != nil {
		s.logger.Error("Scheduled reconciliation audit failed", "error", err)
		return
	}
	s.logger.Info("Scheduled reconciliation audit complete",
		"leave_year", year,
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
	)
}
