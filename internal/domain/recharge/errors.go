package recharge

import "errors"

var (
	// ErrValidation marks malformed command arguments. Nothing is written.
	ErrValidation = errors.New("validation error")

	// ErrUnauthorized is returned when a non-admin runs an admin command.
	ErrUnauthorized = errors.New("not authorized")

	// ErrStorage wraps any store failure. It aborts the current event only.
	ErrStorage = errors.New("storage error")

	// ErrGateway wraps a failed credit call. The underlying *creditapi.Error
	// stays reachable through errors.As.
	ErrGateway = errors.New("credit gateway error")
)
