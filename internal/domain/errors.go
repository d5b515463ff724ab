package domain

import "errors"

// Role transition errors. Callers match them with errors.Is.
var (
	ErrUnknownRole            = errors.New("unknown role")
	ErrActorNotFound          = errors.New("acting employee not found")
	ErrTargetNotFound         = errors.New("target employee not found")
	ErrNoFurtherTransition    = errors.New("no further role in that direction")
	ErrInvalidTransition      = errors.New("requested role does not match the transition direction")
	ErrInsufficientPermission = errors.New("insufficient permission for role transition")
	ErrTransitionConflict     = errors.New("employee role changed concurrently")
	ErrPartialTransferFailure = errors.New("super administrator transfer partially applied")
)

// Warning codes attached to successful transitions.
const (
	WarningMetadataMirrorFailed = "METADATA_MIRROR_FAILED"
	WarningNotificationFailed   = "NOTIFICATION_FAILED"
)
