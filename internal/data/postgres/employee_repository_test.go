package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hr-leave-ledger/internal/domain/employee"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmployeeRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EmployeeRepository{querier: mock, logger: logger}
	employeeID := int64(101)
	hireDate := time.Date(2023, time.November, 15, 0, 0, 0, 0, time.UTC)

	query := `
		SELECT id, employee_name, hire_date, status
		FROM employees
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "employee_name", "hire_date", "status"}).
			AddRow(employeeID, "Asha Pillai", hireDate, employee.StatusActive)

		mock.ExpectQuery(query).WithArgs(employeeID).WillReturnRows(rows)

		e, err := repo.GetByID(ctx, employeeID)
		assert.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, employeeID, e.ID)
		assert.True(t, e.IsActive())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(employeeID).WillReturnError(pgx.ErrNoRows)

		e, err := repo.GetByID(ctx, employeeID)
		assert.Error(t, err)
		assert.Nil(t, e)
		var notFoundErr employee.ErrEmployeeNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, employeeID, notFoundErr.EmployeeID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("employee db error")
		mock.ExpectQuery(query).WithArgs(employeeID).WillReturnError(dbErr)

		e, err := repo.GetByID(ctx, employeeID)
		assert.Error(t, err)
		assert.Nil(t, e)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEmployeeRepository_GetActive(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EmployeeRepository{querier: mock, logger: logger}

	query := `
		SELECT id, employee_name, hire_date, status
		FROM employees
		WHERE status = \$1
		ORDER BY id ASC
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "employee_name", "hire_date", "status"}).
			AddRow(int64(101), "Asha Pillai", time.Date(2023, time.November, 15, 0, 0, 0, 0, time.UTC), employee.StatusActive).
			AddRow(int64(102), "Rahul Nair", time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), employee.StatusActive)

		mock.ExpectQuery(query).WithArgs(employee.StatusActive).WillReturnRows(rows)

		employees, err := repo.GetActive(ctx)
		assert.NoError(t, err)
		require.Len(t, employees, 2)
		assert.Equal(t, int64(101), employees[0].ID)
		assert.Equal(t, int64(102), employees[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("active db error")
		mock.ExpectQuery(query).WithArgs(employee.StatusActive).WillReturnError(dbErr)

		employees, err := repo.GetActive(ctx)
		assert.Error(t, err)
		assert.Nil(t, employees)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
