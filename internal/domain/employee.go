package domain

import "time"

// EmployeeProfile is the internal record mirroring an identity.
type EmployeeProfile struct {
	ID           string
	ExternalID   string
	Name         string
	Email        string
	Role         Role
	Position     string
	DepartmentID *string
	HireDate     time.Time
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
