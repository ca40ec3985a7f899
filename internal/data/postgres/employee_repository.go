package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hr-leave-ledger/internal/domain/employee"
	"github.com/hr-leave-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// EmployeeRepository implements the employee.Repository interface for PostgreSQL.
// The employees table is a read model owned by the directory service; this
// repository never writes to it.
type EmployeeRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewEmployeeRepository creates a new PostgreSQL employee repository
func NewEmployeeRepository(logger *slog.Logger, db *persistence.PostgresDB) employee.Repository {
	return &EmployeeRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByID retrieves an employee by its ID
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*employee.Employee, error) {
	query := `
		SELECT id, employee_name, hire_date, status
		FROM employees
		WHERE id = $1
	`

	var e employee.Employee
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.Name,
		&e.HireDate,
		&e.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound{EmployeeID: id}
		}
		r.logger.Error("Failed to get employee", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return &e, nil
}

// GetActive retrieves every active employee, the population batch runs cover
func (r *EmployeeRepository) GetActive(ctx context.Context) ([]*employee.Employee, error) {
	query := `
		SELECT id, employee_name, hire_date, status
		FROM employees
		WHERE status = $1
		ORDER BY id ASC
	`

	rows, err := r.querier.Query(ctx, query, employee.StatusActive)
	if err != nil {
		r.logger.Error("Failed to get active employees", "error", err)
		return nil, fmt.Errorf("failed to get active employees: %w", err)
	}
	defer rows.Close()

	var employees []*employee.Employee
	for rows.Next() {
		var e employee.Employee
		err := rows.Scan(
			&e.ID,
			&e.Name,
			&e.HireDate,
			&e.Status,
		)
		if err != nil {
			r.logger.Error("Failed to scan employee", "error", err)
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, &e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over employees", "error", err)
		return nil, fmt.Errorf("error iterating over employees: %w", err)
	}

	return employees, nil
}
