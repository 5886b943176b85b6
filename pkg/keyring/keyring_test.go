package keyring_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/securekit/pkg/keyring"
)

type failingSource struct{ err error }

func (s failingSource) LoadMasterKey(ctx context.Context) ([]byte, error) {
	return nil, s.err
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("loads configured key", func(t *testing.T) {
		t.Parallel()
		key, err := keyring.GenerateMasterKey()
		require.NoError(t, err)

		kr, err := keyring.New(context.Background(), keyring.StaticSource(key))
		require.NoError(t, err)
		require.False(t, kr.Ephemeral())
	})

	t.Run("generates ephemeral key when source is empty", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, nil))

		kr, err := keyring.New(context.Background(), keyring.StaticSource(nil), keyring.WithLogger(log))
		require.NoError(t, err)
		require.True(t, kr.Ephemeral())
		require.Contains(t, buf.String(), "ephemeral")
	})

	t.Run("generates ephemeral key when source is nil", func(t *testing.T) {
		t.Parallel()
		kr, err := keyring.New(context.Background(), nil)
		require.NoError(t, err)
		require.True(t, kr.Ephemeral())
	})

	t.Run("rejects wrong key length", func(t *testing.T) {
		t.Parallel()
		_, err := keyring.New(context.Background(), keyring.StaticSource(make([]byte, 16)))
		require.ErrorIs(t, err, keyring.ErrInvalidMasterKey)
	})

	t.Run("propagates source failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("vault unreachable")
		_, err := keyring.New(context.Background(), failingSource{err: boom})
		require.ErrorIs(t, err, keyring.ErrSourceFailed)
		require.ErrorIs(t, err, boom)
	})
}

func TestDeriveKey(t *testing.T) {
	t.Parallel()

	key, err := keyring.GenerateMasterKey()
	require.NoError(t, err)
	kr, err := keyring.New(context.Background(), keyring.StaticSource(key))
	require.NoError(t, err)

	salt := bytes.Repeat([]byte{0xAB}, 32)

	t.Run("deterministic for same scope and salt", func(t *testing.T) {
		t.Parallel()
		k1, err := kr.DeriveKey("user:42:profile", salt)
		require.NoError(t, err)
		k2, err := kr.DeriveKey("user:42:profile", salt)
		require.NoError(t, err)
		require.Equal(t, k1, k2)
		require.Len(t, k1, keyring.DerivedKeySize)
	})

	t.Run("different scopes yield unrelated keys", func(t *testing.T) {
		t.Parallel()
		k1, err := kr.DeriveKey("user:42:profile", salt)
		require.NoError(t, err)
		k2, err := kr.DeriveKey("user:42:billing", salt)
		require.NoError(t, err)
		require.NotEqual(t, k1, k2)
	})

	t.Run("different salts yield unrelated keys", func(t *testing.T) {
		t.Parallel()
		k1, err := kr.DeriveKey("scope", salt)
		require.NoError(t, err)
		k2, err := kr.DeriveKey("scope", bytes.Repeat([]byte{0xCD}, 32))
		require.NoError(t, err)
		require.NotEqual(t, k1, k2)
	})

	t.Run("rejects empty salt", func(t *testing.T) {
		t.Parallel()
		_, err := kr.DeriveKey("scope", nil)
		require.ErrorIs(t, err, keyring.ErrInvalidSalt)
	})
}

func TestStaticSourceCopies(t *testing.T) {
	t.Parallel()

	original := bytes.Repeat([]byte{0x11}, keyring.MasterKeySize)
	src := keyring.StaticSource(original)

	loaded, err := src.LoadMasterKey(context.Background())
	require.NoError(t, err)

	loaded[0] = 0xFF
	require.Equal(t, byte(0x11), original[0], "mutating the loaded key must not touch the source")
}

func TestEnvSource(t *testing.T) {
	key := strings.Repeat("ab", keyring.MasterKeySize)
	t.Setenv("MASTER_ENCRYPTION_KEY", key)

	src, err := keyring.NewEnvSource()
	require.NoError(t, err)

	loaded, err := src.LoadMasterKey(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, keyring.MasterKeySize)
}
