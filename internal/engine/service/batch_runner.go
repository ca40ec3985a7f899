package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hr-leave-ledger/internal/domain/employee"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolBatchRunner implements BatchRunner on a bounded ants pool.
type WorkerPoolBatchRunner struct {
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolBatchRunner(config WorkerPoolConfig, logger *slog.Logger) (*WorkerPoolBatchRunner, error) {
	// Create a new worker pool with the specified size
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolBatchRunner{
		pool:   pool,
		logger: logger,
	}, nil
}

// Run submits one task per employee to the worker pool and blocks until all
// complete. A failed task is recorded in the report and never stops the rest
// of the batch.
func (r *WorkerPoolBatchRunner) Run(ctx context.Context, employees []*employee.Employee, task EmployeeTask) *BatchReport {
	report := &BatchReport{Total: len(employees)}
	if len(employees) == 0 {
		return report
	}

	r.logger.Info("Submitting batch to worker pool", "employees", len(employees))

	var wg sync.WaitGroup
	// Protects the report while workers record their results
	var mu sync.Mutex

	for _, emp := range employees {
		emp := emp
		wg.Add(1)

		err := r.pool.Submit(func() {
			defer wg.Done()

			if taskErr := task(ctx, emp); taskErr != nil {
				r.logger.Error("Batch task failed for employee",
					"employee_id", emp.ID,
					"error", taskErr,
				)
				mu.Lock()
				report.Failures = append(report.Failures, BatchFailure{
					EmployeeID: emp.ID,
					Error:      taskErr.Error(),
				})
				mu.Unlock()
				return
			}

			mu.Lock()
			report.Succeeded++
			mu.Unlock()
		})

		if err != nil {
			// Submission itself failed; count it against the employee
			wg.Done()
			r.logger.Error("Failed to submit batch task to worker pool",
				"employee_id", emp.ID,
				"error", err,
			)
			mu.Lock()
			report.Failures = append(report.Failures, BatchFailure{
				EmployeeID: emp.ID,
				Error:      err.Error(),
			})
			mu.Unlock()
		}
	}

	wg.Wait()

	report.Failed = len(report.Failures)
	r.logger.Info("Batch run complete",
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
	)
	return report
}

// Shutdown gracefully shuts down the worker pool.
func (r *WorkerPoolBatchRunner) Shutdown() {
	r.logger.Info("Shutting down worker pool", "running_workers", r.pool.Running())
	r.pool.Release()
}

// Running returns the number of running workers in the pool.
func (r *WorkerPoolBatchRunner) Running() int {
	return r.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (r *WorkerPoolBatchRunner) Capacity() int {
	return r.pool.Cap()
}
