package dto

import "github.com/spec-kit/employee-service/internal/domain"

// TransitionRequest optionally names the role to assign. Empty means the
// adjacent role.
type TransitionRequest struct {
	Role string `json:"role" validate:"omitempty,role"`
}

// TransitionResponse reports the outcome of a role change.
type TransitionResponse struct {
	Employee     EmployeeResponse            `json:"employee"`
	PreviousRole string                      `json:"previous_role"`
	NewRole      string                      `json:"new_role"`
	NoOp         bool                        `json:"no_op"`
	Warnings     []domain.TransitionWarning `json:"warnings"`
}

// NewTransitionResponse converts a transition result.
func NewTransitionResponse(result *domain.TransitionResult) TransitionResponse {
	warnings := result.Warnings
	if warnings == nil {
		warnings = []domain.TransitionWarning{}
	}
	return TransitionResponse{
		Employee:     NewEmployeeResponse(&result.Target),
		PreviousRole: result.PreviousRole.String(),
		NewRole:      result.NewRole.String(),
		NoOp:         result.NoOp,
		Warnings:     warnings,
	}
}
