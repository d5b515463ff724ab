package domain

import "time"

// NotificationType classifies notification records.
type NotificationType string

const (
	NotificationRolePromoted         NotificationType = "ROLE_PROMOTED"
	NotificationRoleDemoted          NotificationType = "ROLE_DEMOTED"
	NotificationRoleChangeConfirmed  NotificationType = "ROLE_CHANGE_CONFIRMED"
	NotificationSuperAdminGranted    NotificationType = "SUPER_ADMIN_GRANTED"
	NotificationSuperAdminRelinquish NotificationType = "SUPER_ADMIN_RELINQUISHED"
)

// NotificationRecord is a message addressed to one employee.
type NotificationRecord struct {
	ID          string
	RecipientID string
	Message     string
	Type        NotificationType
	Read        bool
	CreatedAt   time.Time
}
