package employee

import (
	"context"
	"strconv"
)

// Repository defines read-only access to the employee directory
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Employee, error)
	GetActive(ctx context.Context) ([]*Employee, error)
}

// ErrEmployeeNotFound indicates a missing directory entry
type ErrEmployeeNotFound struct {
	EmployeeID int64
}

func (e ErrEmployeeNotFound) Error() string {
	return "employee not found: " + strconv.FormatInt(e.EmployeeID, 10)
}

// Is matches any ErrEmployeeNotFound when the target carries no id
func (e ErrEmployeeNotFound) Is(target error) bool {
	t, ok := target.(ErrEmployeeNotFound)
	if !ok {
		return false
	}
	return t.EmployeeID == 0 || t.EmployeeID == e.EmployeeID
}
