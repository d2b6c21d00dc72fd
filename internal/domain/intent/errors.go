package intent

import "errors"

var (
	ErrIntentNotFound = errors.New("pending intent not found")

	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	ErrInternal = errors.New("intent store error")
)
