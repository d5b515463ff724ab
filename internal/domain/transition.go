package domain

import "fmt"

// TransitionAction enumerates role changes.
type TransitionAction string

const (
	ActionPromote            TransitionAction = "promote"
	ActionDemote             TransitionAction = "demote"
	ActionTransferSuperAdmin TransitionAction = "transfer_super_admin"
)

// Direction returns the hierarchy direction for promote/demote.
func (a TransitionAction) Direction() (Direction, bool) {
	switch a {
	case ActionPromote:
		return DirectionUp, true
	case ActionDemote:
		return DirectionDown, true
	default:
		return 0, false
	}
}

// Valid reports whether a is a known action.
func (a TransitionAction) Valid() bool {
	switch a {
	case ActionPromote, ActionDemote, ActionTransferSuperAdmin:
		return true
	}
	return false
}

// TransitionRequest describes a single requested role change.
type TransitionRequest struct {
	ActingExternalID string
	TargetEmployeeID string
	Action           TransitionAction
	ExplicitNewRole  *Role
}

// TransitionWarning is a non-fatal failure of an advisory step.
type TransitionWarning struct {
	Code       string `json:"code"`
	EmployeeID string `json:"employee_id"`
	Message    string `json:"message"`
}

func (w TransitionWarning) String() string {
	return fmt.Sprintf("%s(%s): %s", w.Code, w.EmployeeID, w.Message)
}

// TransitionResult is returned by a successful transition.
type TransitionResult struct {
	Target       EmployeeProfile
	PreviousRole Role
	NewRole      Role
	NoOp         bool
	Warnings     []TransitionWarning
}
