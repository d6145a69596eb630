package provision

import "errors"

var (
	// ErrUserNotFound is returned for an external id without a mapping store record.
	ErrUserNotFound = errors.New("user not found")
	// ErrPrincipalRequired is returned for a create event without a principal name.
	ErrPrincipalRequired = errors.New("principal name is required")
	// ErrPartial wraps failures that happened after the identity was written and recorded.
	// The returned Result is valid when an error matches ErrPartial.
	ErrPartial = errors.New("event partially applied")
)
