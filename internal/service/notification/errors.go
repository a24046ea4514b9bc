package notification

import "errors"

var (
	// ErrDuplicateEvent is returned when a notification with the same event
	// id already exists. Nothing is written.
	ErrDuplicateEvent  = errors.New("notification for this event already exists")
	ErrNoAction        = errors.New("action is required")
	ErrMediumRequired  = errors.New("medium is required")
	ErrExpiresConflict = errors.New("set either expires or expires_in, not both")
)
