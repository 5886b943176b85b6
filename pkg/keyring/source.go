package keyring

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/dmitrymomot/securekit/pkg/config"
)

// Config holds the environment-driven master key configuration.
// The key is optional: an absent key triggers ephemeral-key generation in New,
// which is acceptable for development but not for production deployments.
type Config struct {
	MasterKey string `env:"MASTER_ENCRYPTION_KEY"` // hex-encoded 32-byte key
}

// EnvSource loads the master key from the MASTER_ENCRYPTION_KEY environment
// variable as a hex string.
type EnvSource struct {
	cfg Config
}

// NewEnvSource creates a Source backed by environment configuration.
func NewEnvSource() (*EnvSource, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, errors.Join(ErrSourceFailed, err)
	}
	return &EnvSource{cfg: cfg}, nil
}

func (s *EnvSource) LoadMasterKey(ctx context.Context) ([]byte, error) {
	if s.cfg.MasterKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s.cfg.MasterKey)
	if err != nil {
		return nil, errors.Join(ErrInvalidMasterKey, err)
	}
	return key, nil
}
