package keyring

import "errors"

var (
	// Configuration errors, fatal at startup.
	ErrSourceFailed     = errors.New("failed to load master key from source")
	ErrInvalidMasterKey = errors.New("invalid master key: must be 32 bytes")

	// Derivation errors.
	ErrInvalidSalt         = errors.New("invalid salt: must not be empty")
	ErrKeyDerivationFailed = errors.New("key derivation failed")
	ErrKeyGenerationFailed = errors.New("key generation failed")
)
