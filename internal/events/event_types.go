package events

import (
	"time"

	"github.com/spec-kit/employee-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRoleChanged            EventType = "role_changed"
	EventSuperAdminTransferred  EventType = "super_admin_transferred"
	EventPartialTransferFailure EventType = "partial_transfer_failure"
	EventNotificationCreated    EventType = "notification_created"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	EmployeeID string      `json:"employee_id"`
	ActorID    string      `json:"actor_id,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// RoleChangedPayload payload.
type RoleChangedPayload struct {
	Action  domain.TransitionAction `json:"action"`
	OldRole domain.Role             `json:"old_role"`
	NewRole domain.Role             `json:"new_role"`
}

// SuperAdminTransferredPayload payload.
type SuperAdminTransferredPayload struct {
	PreviousHolderID string `json:"previous_holder_id"`
	NewHolderID      string `json:"new_holder_id"`
}

// PartialTransferFailurePayload describes a transfer that left no super administrator.
type PartialTransferFailurePayload struct {
	DemotedID string `json:"demoted_id"`
	TargetID  string `json:"target_id"`
	Error     string `json:"error"`
}

// NotificationCreatedPayload payload.
type NotificationCreatedPayload struct {
	NotificationID string                  `json:"notification_id"`
	Type           domain.NotificationType `json:"type"`
	Message        string                  `json:"message"`
	CreatedAt      time.Time               `json:"created_at"`
}
