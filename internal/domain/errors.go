package domain

import "errors"

// Failures that abort a whole operation without side effects. Packages wrap
// them with context; callers test with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrLockTimeout     = errors.New("lock timeout")
	ErrVersionConflict = errors.New("version conflict")
	ErrInvalidArgument = errors.New("invalid argument")
)
