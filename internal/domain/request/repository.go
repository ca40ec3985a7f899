package request

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines read-only access to the workflow's leave requests
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*LeaveRequest, error)

	// ApprovedDaysByType sums total days of currently-Approved requests whose
	// leave dates fall in the given leave year, grouped by leave type. This is
	// the authoritative history reconciliation rebuilds from.
	ApprovedDaysByType(ctx context.Context, employeeID int64, leaveYear int) (map[string]decimal.Decimal, error)

	WithTx(tx pgx.Tx) Repository
}

// SettlementRepository defines engine-owned settlement record persistence
type SettlementRepository interface {
	Create(ctx context.Context, s *Settlement) error
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*Settlement, error)
	Update(ctx context.Context, s *Settlement) error
	WithTx(tx pgx.Tx) SettlementRepository
}

// ErrRequestNotFound indicates an unknown leave request id
type ErrRequestNotFound struct {
	RequestID uuid.UUID
}

func (e ErrRequestNotFound) Error() string {
	return "leave request not found: " + e.RequestID.String()
}

// Is matches any ErrRequestNotFound when the target carries no id
func (e ErrRequestNotFound) Is(target error) bool {
	t, ok := target.(ErrRequestNotFound)
	if !ok {
		return false
	}
	return t.RequestID == uuid.Nil || t.RequestID == e.RequestID
}

// ErrInvalidStatus indicates a status value this engine does not understand
type ErrInvalidStatus struct {
	Status Status
}

func (e ErrInvalidStatus) Error() string {
	return "invalid leave request status: " + string(e.Status)
}
