package notification

import "errors"

// Common notification errors
var (
	// ErrKindUnknown is returned for alerts whose kind is not in the closed set
	ErrKindUnknown = errors.New("notification: unknown alert kind")
	// ErrEmptyTitle is returned for alerts without a title
	ErrEmptyTitle = errors.New("notification: alert title is required")
	// ErrRegistrationNotFound is returned when a push registration does not exist
	ErrRegistrationNotFound = errors.New("notification: push registration not found")
	// ErrRegistrationGone is returned by a push sender when the endpoint no longer exists
	ErrRegistrationGone = errors.New("notification: push registration gone")
	// ErrPushNotConfigured is returned when push delivery has no VAPID keys
	ErrPushNotConfigured = errors.New("notification: push not configured")
)
