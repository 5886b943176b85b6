package envelope_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/securekit/pkg/envelope"
)

func TestEncryptDecryptValue(t *testing.T) {
	t.Parallel()
	enc := newEncryptor(t)

	t.Run("string payload", func(t *testing.T) {
		t.Parallel()
		env, err := enc.EncryptValue("plain text value", "scope")
		require.NoError(t, err)

		out, err := envelope.DecryptValue[string](enc, env, "scope")
		require.NoError(t, err)
		require.Equal(t, "plain text value", out)
	})

	t.Run("struct payload", func(t *testing.T) {
		t.Parallel()
		type profile struct {
			Name string `json:"name"`
			Age  int    `json:"age"`
		}

		env, err := enc.EncryptValue(profile{Name: "Alice", Age: 30}, "scope")
		require.NoError(t, err)

		out, err := envelope.DecryptValue[profile](enc, env, "scope")
		require.NoError(t, err)
		require.Equal(t, profile{Name: "Alice", Age: 30}, out)
	})

	t.Run("map payload", func(t *testing.T) {
		t.Parallel()
		env, err := enc.EncryptValue(map[string]int{"a": 1, "b": 2}, "scope")
		require.NoError(t, err)

		out, err := envelope.DecryptValue[map[string]int](enc, env, "scope")
		require.NoError(t, err)
		require.Equal(t, map[string]int{"a": 1, "b": 2}, out)
	})

	t.Run("text payload requested as struct fails", func(t *testing.T) {
		t.Parallel()
		env, err := enc.EncryptValue("just text", "scope")
		require.NoError(t, err)

		_, err = envelope.DecryptValue[map[string]any](enc, env, "scope")
		require.ErrorIs(t, err, envelope.ErrInvalidPayload)
	})

	t.Run("wrong scope fails closed", func(t *testing.T) {
		t.Parallel()
		env, err := enc.EncryptValue("secret", "s1")
		require.NoError(t, err)

		_, err = envelope.DecryptValue[string](enc, env, "s2")
		require.ErrorIs(t, err, envelope.ErrAuthenticationFailed)
	})
}
