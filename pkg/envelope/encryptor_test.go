package envelope_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/securekit/pkg/envelope"
	"github.com/dmitrymomot/securekit/pkg/keyring"
)

func newEncryptor(t *testing.T) *envelope.Encryptor {
	t.Helper()
	key, err := keyring.GenerateMasterKey()
	require.NoError(t, err)
	kr, err := keyring.New(context.Background(), keyring.StaticSource(key))
	require.NoError(t, err)
	return envelope.New(kr)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()
	enc := newEncryptor(t)

	tests := []struct {
		name      string
		plaintext string
		scope     string
	}{
		{"empty plaintext", "", "default"},
		{"simple text", "Hello, World!", "default"},
		{"empty scope falls back to default", "data", ""},
		{"user scope", `{"card":"4242"}`, "user:42:billing"},
		{"unicode", "Hello 世界 🌍", "i18n"},
		{"long text", strings.Repeat("lorem ipsum ", 512), "bulk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env, err := enc.Encrypt([]byte(tt.plaintext), tt.scope)
			require.NoError(t, err)

			plain, err := enc.Decrypt(env, tt.scope)
			require.NoError(t, err)
			require.Equal(t, tt.plaintext, string(plain))
		})
	}
}

func TestEncryptFreshRandomness(t *testing.T) {
	t.Parallel()
	enc := newEncryptor(t)

	e1, err := enc.Encrypt([]byte("same plaintext"), "scope")
	require.NoError(t, err)
	e2, err := enc.Encrypt([]byte("same plaintext"), "scope")
	require.NoError(t, err)

	require.NotEqual(t, e1.IV, e2.IV, "IV must be fresh per call")
	require.NotEqual(t, e1.Salt, e2.Salt, "salt must be fresh per call")
	require.NotEqual(t, e1.Ciphertext, e2.Ciphertext)
}

func TestDecryptCrossScopeFails(t *testing.T) {
	t.Parallel()
	enc := newEncryptor(t)

	env, err := enc.Encrypt([]byte("scoped secret"), "user:1:notes")
	require.NoError(t, err)

	_, err = enc.Decrypt(env, "user:2:notes")
	require.ErrorIs(t, err, envelope.ErrAuthenticationFailed)
}

func TestDecryptTamperDetection(t *testing.T) {
	t.Parallel()
	enc := newEncryptor(t)

	env, err := enc.Encrypt([]byte("integrity matters"), "default")
	require.NoError(t, err)

	clone := func() *envelope.Envelope {
		return &envelope.Envelope{
			IV:         append([]byte(nil), env.IV...),
			Salt:       append([]byte(nil), env.Salt...),
			Tag:        append([]byte(nil), env.Tag...),
			Ciphertext: append([]byte(nil), env.Ciphertext...),
		}
	}

	t.Run("flipped ciphertext bit", func(t *testing.T) {
		cp := clone()
		cp.Ciphertext[0] ^= 0x01
		_, err := enc.Decrypt(cp, "default")
		require.ErrorIs(t, err, envelope.ErrAuthenticationFailed)
	})

	t.Run("flipped tag bit", func(t *testing.T) {
		cp := clone()
		cp.Tag[0] ^= 0x01
		_, err := enc.Decrypt(cp, "default")
		require.ErrorIs(t, err, envelope.ErrAuthenticationFailed)
	})

	t.Run("flipped iv bit", func(t *testing.T) {
		cp := clone()
		cp.IV[0] ^= 0x01
		_, err := enc.Decrypt(cp, "default")
		require.ErrorIs(t, err, envelope.ErrAuthenticationFailed)
	})
}

func TestWireFormat(t *testing.T) {
	t.Parallel()
	enc := newEncryptor(t)

	wire, err := enc.EncryptString("interop", "default")
	require.NoError(t, err)

	parts := strings.Split(wire, ":")
	require.Len(t, parts, 4)
	require.Len(t, parts[0], envelope.IVSize*2)
	require.Len(t, parts[1], envelope.SaltSize*2)
	require.Len(t, parts[2], envelope.TagSize*2)

	plain, err := enc.DecryptString(wire, "default")
	require.NoError(t, err)
	require.Equal(t, "interop", plain)
}

func TestDecryptStringMalformed(t *testing.T) {
	t.Parallel()
	enc := newEncryptor(t)

	_, err := enc.DecryptString("not-an-envelope", "default")
	require.ErrorIs(t, err, envelope.ErrMalformedEnvelope)
}
