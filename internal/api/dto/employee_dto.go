package dto

import (
	"time"

	"github.com/spec-kit/employee-service/internal/domain"
)

// SetupRequest payload for completing role setup.
type SetupRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Position     string  `json:"position" validate:"max=200"`
	DepartmentID *string `json:"department_id" validate:"omitempty,uuid"`
}

// SetupResponse returns the created profile.
type SetupResponse struct {
	Employee    EmployeeResponse            `json:"employee"`
	IsFirstUser bool                        `json:"is_first_user"`
	Created     bool                        `json:"created"`
	Warnings    []domain.TransitionWarning `json:"warnings"`
}

// UpdateEmployeeRequest edits profile details. Role is not editable here.
type UpdateEmployeeRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=200"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Position     *string `json:"position" validate:"omitempty,max=200"`
	DepartmentID *string `json:"department_id" validate:"omitempty"`
}

// EmployeeResponse is the wire form of an employee profile.
type EmployeeResponse struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"external_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	RoleName     string    `json:"role_name"`
	Rank         int       `json:"rank"`
	Position     string    `json:"position"`
	DepartmentID *string   `json:"department_id"`
	HireDate     string    `json:"hire_date"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewEmployeeResponse converts a profile.
func NewEmployeeResponse(emp *domain.EmployeeProfile) EmployeeResponse {
	resp := EmployeeResponse{
		ID:           emp.ID,
		ExternalID:   emp.ExternalID,
		Name:         emp.Name,
		Email:        emp.Email,
		Role:         emp.Role.String(),
		RoleName:     emp.Role.DisplayName(),
		Rank:         int(emp.Role),
		Position:     emp.Position,
		DepartmentID: emp.DepartmentID,
		Version:      emp.Version,
		CreatedAt:    emp.CreatedAt,
		UpdatedAt:    emp.UpdatedAt,
	}
	if !emp.HireDate.IsZero() {
		resp.HireDate = emp.HireDate.Format("2006-01-02")
	}
	return resp
}

// NewEmployeeListResponse converts a list of profiles.
func NewEmployeeListResponse(list []domain.EmployeeProfile) []EmployeeResponse {
	out := make([]EmployeeResponse, 0, len(list))
	for i := range list {
		out = append(out, NewEmployeeResponse(&list[i]))
	}
	return out
}
