package delivery

import "errors"

var (
	ErrInvalidConfig      = errors.New("invalid delivery configuration")
	ErrInvalidDestination = errors.New("invalid delivery destination")
	ErrSendFailed         = errors.New("failed to send code")
)
