package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hr-leave-ledger/internal/domain/accrual"
	"github.com/hr-leave-ledger/internal/domain/audit"
	"github.com/hr-leave-ledger/internal/domain/balance"
	"github.com/hr-leave-ledger/internal/domain/employee"
	"github.com/hr-leave-ledger/internal/domain/policy"
	"github.com/hr-leave-ledger/internal/domain/request"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return v
}

// Mock implementations of the repository dependencies. WithTx returns the
// mock itself so expectations set on it cover both sides.

type MockEmployeeRepository struct {
	mock.Mock
}

func (m *MockEmployeeRepository) GetByID(ctx context.Context, id int64) (*employee.Employee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*employee.Employee), args.Error(1)
}

func (m *MockEmployeeRepository) GetActive(ctx context.Context) ([]*employee.Employee, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*employee.Employee), args.Error(1)
}

type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) GetByLeaveType(ctx context.Context, leaveType string) (*policy.LeaveTypePolicy, error) {
	args := m.Called(ctx, leaveType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*policy.LeaveTypePolicy), args.Error(1)
}

func (m *MockPolicyRepository) GetAll(ctx context.Context) ([]*policy.LeaveTypePolicy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*policy.LeaveTypePolicy), args.Error(1)
}

func (m *MockPolicyRepository) WithTx(tx pgx.Tx) policy.Repository {
	return m
}

type MockAccrualRepository struct {
	mock.Mock
}

func (m *MockAccrualRepository) UpsertClosed(ctx context.Context, a *accrual.MonthlyAccrual) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAccrualRepository) UpsertOpen(ctx context.Context, a *accrual.MonthlyAccrual) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAccrualRepository) GetForYear(ctx context.Context, employeeID int64, leaveYear int) ([]*accrual.MonthlyAccrual, error) {
	args := m.Called(ctx, employeeID, leaveYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accrual.MonthlyAccrual), args.Error(1)
}

func (m *MockAccrualRepository) CumulativeAt(ctx context.Context, employeeID int64, leaveYear int, month time.Month) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, employeeID, leaveYear, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

func (m *MockAccrualRepository) WithTx(tx pgx.Tx) accrual.Repository {
	return m
}

type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) Create(ctx context.Context, b *balance.LeaveTypeBalance) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBalanceRepository) GetForYear(ctx context.Context, employeeID int64, leaveYear int) ([]*balance.LeaveTypeBalance, error) {
	args := m.Called(ctx, employeeID, leaveYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*balance.LeaveTypeBalance), args.Error(1)
}

func (m *MockBalanceRepository) Update(ctx context.Context, b *balance.LeaveTypeBalance) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBalanceRepository) LockForUpdate(ctx context.Context, employeeID int64, leaveYear int, leaveType string) (*balance.LeaveTypeBalance, error) {
	args := m.Called(ctx, employeeID, leaveYear, leaveType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.LeaveTypeBalance), args.Error(1)
}

func (m *MockBalanceRepository) LockAllForUpdate(ctx context.Context, employeeID int64, leaveYear int) ([]*balance.LeaveTypeBalance, error) {
	args := m.Called(ctx, employeeID, leaveYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*balance.LeaveTypeBalance), args.Error(1)
}

func (m *MockBalanceRepository) WithTx(tx pgx.Tx) balance.Repository {
	return m
}

type MockAggregateRepository struct {
	mock.Mock
}

func (m *MockAggregateRepository) Upsert(ctx context.Context, a *balance.AggregateBalance) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAggregateRepository) Get(ctx context.Context, employeeID int64, leaveYear int) (*balance.AggregateBalance, error) {
	args := m.Called(ctx, employeeID, leaveYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.AggregateBalance), args.Error(1)
}

func (m *MockAggregateRepository) LockForUpdate(ctx context.Context, employeeID int64, leaveYear int) (*balance.AggregateBalance, error) {
	args := m.Called(ctx, employeeID, leaveYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.AggregateBalance), args.Error(1)
}

func (m *MockAggregateRepository) Update(ctx context.Context, a *balance.AggregateBalance) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAggregateRepository) WithTx(tx pgx.Tx) balance.AggregateRepository {
	return m
}

type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*request.LeaveRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*request.LeaveRequest), args.Error(1)
}

func (m *MockRequestRepository) ApprovedDaysByType(ctx context.Context, employeeID int64, leaveYear int) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, employeeID, leaveYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

func (m *MockRequestRepository) WithTx(tx pgx.Tx) request.Repository {
	return m
}

type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) Create(ctx context.Context, s *request.Settlement) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSettlementRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*request.Settlement, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*request.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) Update(ctx context.Context, s *request.Settlement) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSettlementRepository) WithTx(tx pgx.Tx) request.SettlementRepository {
	return m
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *audit.OutboxMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*audit.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.OutboxMessage), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status audit.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) audit.OutboxRepository {
	return m
}

// MockTxBeginner hands out a MockTx in place of the pool
type MockTxBeginner struct {
	mock.Mock
}

func (m *MockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

// MockTx implements the pgx.Tx interface for testing
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, nil
}

func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *MockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *MockTx) Conn() *pgx.Conn {
	return nil
}
