package source

import "errors"

var (
	// ErrTaskNotFound is returned when a task cannot be found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidConfig is returned when source configuration is invalid.
	ErrInvalidConfig = errors.New("invalid source configuration")

	// ErrUnavailable is returned when the task service cannot be reached.
	ErrUnavailable = errors.New("task service unavailable")
)
