package envelope

import "errors"

var (
	ErrEncryptionFailed     = errors.New("encryption failed")
	ErrMalformedEnvelope    = errors.New("malformed envelope")
	ErrAuthenticationFailed = errors.New("authentication failed: tag mismatch or wrong scope")
	ErrInvalidPayload       = errors.New("invalid payload")
)
