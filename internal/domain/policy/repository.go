package policy

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines leave type policy persistence operations
type Repository interface {
	GetByLeaveType(ctx context.Context, leaveType string) (*LeaveTypePolicy, error)
	GetAll(ctx context.Context) ([]*LeaveTypePolicy, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrUnknownLeaveType indicates a leave type with no configured policy
type ErrUnknownLeaveType struct {
	LeaveType string
}

func (e ErrUnknownLeaveType) Error() string {
	return "no policy configured for leave type: " + e.LeaveType
}

// Is matches any ErrUnknownLeaveType when the target carries no leave type
func (e ErrUnknownLeaveType) Is(target error) bool {
	t, ok := target.(ErrUnknownLeaveType)
	if !ok {
		return false
	}
	return t.LeaveType == "" || t.LeaveType == e.LeaveType
}
