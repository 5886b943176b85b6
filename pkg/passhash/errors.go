package passhash

import "errors"

var (
	ErrHashingFailed = errors.New("password hashing failed")
	ErrInvalidRecord = errors.New("invalid password record format")
)
