// Package employee is the read model for the externally-owned employee
// directory. The engine only consumes identity, hire date, and active status.
package employee

import "time"

const StatusActive = "active"

// Employee mirrors the directory row the engine is allowed to read
type Employee struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	HireDate time.Time `json:"hire_date"`
	Status   string    `json:"status"`
}

// IsActive reports whether the employee should be included in batch runs
func (e *Employee) IsActive() bool {
	return e.Status == StatusActive
}
