package groups

import "errors"

var (
	// ErrGroupNotFound is returned when no document carries the requested group name.
	ErrGroupNotFound = errors.New("group not found")
	// ErrAmbiguousGroup is returned when more than one document carries the same group name.
	ErrAmbiguousGroup = errors.New("group name is declared by more than one document")
	// ErrGroupFileExists is returned when a new group would overwrite a file owned by another group.
	ErrGroupFileExists = errors.New("group file already exists")
	// ErrNotMapping is returned when a group document is not a YAML mapping.
	ErrNotMapping = errors.New("group document is not a mapping")
	// ErrMultipleDocuments is returned when a group file holds more than one YAML document.
	ErrMultipleDocuments = errors.New("group file holds more than one document")
	// ErrEmptyGroupName is returned when a group document has no name.
	ErrEmptyGroupName = errors.New("group document has no name")
	// ErrEmptyMember is returned when the principal display name is blank.
	ErrEmptyMember = errors.New("member display name can not be empty")
)
