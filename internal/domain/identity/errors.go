package identity

import "errors"

var (
	// ErrLinkNotFound is returned when a session never sent /start
	ErrLinkNotFound = errors.New("identity link not found")

	ErrInternal = errors.New("identity store error")
)
