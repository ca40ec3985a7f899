package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hr-leave-ledger/internal/domain/leaveyear"
	"github.com/hr-leave-ledger/internal/domain/request"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RequestRepository{querier: mock, logger: logger}
	reqID := uuid.New()
	now := time.Now()
	fromDate := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	toDate := time.Date(2024, time.June, 12, 0, 0, 0, 0, time.UTC)

	query := `
		SELECT id, employee_id, leave_type, from_date, to_date, total_days, status, created_at, updated_at
		FROM leave_requests
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "employee_id", "leave_type", "from_date", "to_date", "total_days", "status", "created_at", "updated_at"}).
			AddRow(reqID, int64(101), "Sick Leave", fromDate, &toDate, decimal.RequireFromString("3.0"), request.StatusApproved, now, now)

		mock.ExpectQuery(query).WithArgs(reqID).WillReturnRows(rows)

		req, err := repo.GetByID(ctx, reqID)
		assert.NoError(t, err)
		require.NotNil(t, req)
		assert.Equal(t, reqID, req.ID)
		assert.Equal(t, request.StatusApproved, req.Status)
		assert.Equal(t, 2024, req.LeaveYear())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(reqID).WillReturnError(pgx.ErrNoRows)

		req, err := repo.GetByID(ctx, reqID)
		assert.Error(t, err)
		assert.Nil(t, req)
		var notFoundErr request.ErrRequestNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, reqID, notFoundErr.RequestID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("request db error")
		mock.ExpectQuery(query).WithArgs(reqID).WillReturnError(dbErr)

		req, err := repo.GetByID(ctx, reqID)
		assert.Error(t, err)
		assert.Nil(t, req)
		assert.Contains(t, err.Error(), "failed to get leave request")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRequestRepository_ApprovedDaysByType(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RequestRepository{querier: mock, logger: logger}
	employeeID := int64(101)
	leaveYear := 2024
	yearStart := leaveyear.Start(leaveYear)
	yearEnd := leaveyear.End(leaveYear)

	query := `
		SELECT leave_type, COALESCE\(SUM\(total_days\), 0\)
		FROM leave_requests
		WHERE employee_id = \$1 AND status = \$2 AND from_date >= \$3 AND from_date <= \$4
		GROUP BY leave_type
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"leave_type", "sum"}).
			AddRow("Earned/Annual Leave", decimal.RequireFromString("4.0")).
			AddRow("Casual Leave", decimal.RequireFromString("1.5"))

		mock.ExpectQuery(query).WithArgs(employeeID, request.StatusApproved, yearStart, yearEnd).WillReturnRows(rows)

		taken, err := repo.ApprovedDaysByType(ctx, employeeID, leaveYear)
		assert.NoError(t, err)
		require.Len(t, taken, 2)
		assert.True(t, taken["Earned/Annual Leave"].Equal(decimal.RequireFromString("4.0")))
		assert.True(t, taken["Casual Leave"].Equal(decimal.RequireFromString("1.5")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no approved requests", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"leave_type", "sum"})
		mock.ExpectQuery(query).WithArgs(employeeID, request.StatusApproved, yearStart, yearEnd).WillReturnRows(rows)

		taken, err := repo.ApprovedDaysByType(ctx, employeeID, leaveYear)
		assert.NoError(t, err)
		assert.Empty(t, taken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("sum db error")
		mock.ExpectQuery(query).WithArgs(employeeID, request.StatusApproved, yearStart, yearEnd).WillReturnError(dbErr)

		taken, err := repo.ApprovedDaysByType(ctx, employeeID, leaveYear)
		assert.Error(t, err)
		assert.Nil(t, taken)
		assert.Contains(t, err.Error(), "failed to sum approved leave days")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
