package otp_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/securekit/pkg/otp"
)

func newRecord(userID string, typ otp.Type, createdAt time.Time, ttl time.Duration) *otp.Record {
	return &otp.Record{
		ID:         uuid.New(),
		UserID:     userID,
		Code:       "123456",
		Type:       typ,
		Identifier: "user@example.com",
		ExpiresAt:  createdAt.Add(ttl),
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("find live returns newest live record", func(t *testing.T) {
		t.Parallel()
		store := otp.NewMemoryStore()

		older := newRecord("u1", otp.TypeLogin, base, 10*time.Minute)
		newer := newRecord("u1", otp.TypeLogin, base.Add(time.Minute), 10*time.Minute)
		require.NoError(t, store.Insert(ctx, older))
		require.NoError(t, store.Insert(ctx, newer))

		got, err := store.FindLive(ctx, "u1", otp.TypeLogin, base.Add(2*time.Minute))
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, newer.ID, got.ID)
	})

	t.Run("find live skips used and expired records", func(t *testing.T) {
		t.Parallel()
		store := otp.NewMemoryStore()

		used := newRecord("u1", otp.TypeLogin, base, 10*time.Minute)
		used.IsUsed = true
		expired := newRecord("u1", otp.TypeLogin, base.Add(time.Minute), time.Minute)
		require.NoError(t, store.Insert(ctx, used))
		require.NoError(t, store.Insert(ctx, expired))

		got, err := store.FindLive(ctx, "u1", otp.TypeLogin, base.Add(5*time.Minute))
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("records are isolated per user and type", func(t *testing.T) {
		t.Parallel()
		store := otp.NewMemoryStore()

		require.NoError(t, store.Insert(ctx, newRecord("u1", otp.TypeLogin, base, 10*time.Minute)))

		got, err := store.FindLive(ctx, "u2", otp.TypeLogin, base.Add(time.Minute))
		require.NoError(t, err)
		require.Nil(t, got)

		got, err = store.FindLive(ctx, "u1", otp.TypeVerification, base.Add(time.Minute))
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("invalidate live marks all unused records used", func(t *testing.T) {
		t.Parallel()
		store := otp.NewMemoryStore()

		require.NoError(t, store.Insert(ctx, newRecord("u1", otp.TypeLogin, base, 10*time.Minute)))
		require.NoError(t, store.Insert(ctx, newRecord("u1", otp.TypeLogin, base.Add(time.Second), 10*time.Minute)))
		require.NoError(t, store.InvalidateLive(ctx, "u1", otp.TypeLogin))

		got, err := store.FindLive(ctx, "u1", otp.TypeLogin, base.Add(time.Minute))
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("find recent since respects the cutoff", func(t *testing.T) {
		t.Parallel()
		store := otp.NewMemoryStore()

		rec := newRecord("u1", otp.TypeLogin, base, 10*time.Minute)
		require.NoError(t, store.Insert(ctx, rec))

		got, err := store.FindRecentSince(ctx, "u1", otp.TypeLogin, base.Add(-time.Minute))
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, rec.ID, got.ID)

		got, err = store.FindRecentSince(ctx, "u1", otp.TypeLogin, base.Add(time.Second))
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("save persists changes and rejects unknown records", func(t *testing.T) {
		t.Parallel()
		store := otp.NewMemoryStore()

		rec := newRecord("u1", otp.TypeLogin, base, 10*time.Minute)
		require.NoError(t, store.Insert(ctx, rec))

		rec.Attempts = 3
		require.NoError(t, store.Save(ctx, rec))

		got, err := store.FindLive(ctx, "u1", otp.TypeLogin, base.Add(time.Minute))
		require.NoError(t, err)
		require.Equal(t, 3, got.Attempts)

		unknown := newRecord("u1", otp.TypeLogin, base, 10*time.Minute)
		require.ErrorIs(t, store.Save(ctx, unknown), otp.ErrRecordNotFound)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		t.Parallel()
		store := otp.NewMemoryStore()

		require.NoError(t, store.Insert(ctx, newRecord("u1", otp.TypeLogin, base, 10*time.Minute)))

		got, err := store.FindLive(ctx, "u1", otp.TypeLogin, base.Add(time.Minute))
		require.NoError(t, err)
		got.Attempts = 99

		again, err := store.FindLive(ctx, "u1", otp.TypeLogin, base.Add(time.Minute))
		require.NoError(t, err)
		require.Zero(t, again.Attempts)
	})

	t.Run("delete stale keeps consumed records within retention", func(t *testing.T) {
		t.Parallel()
		store := otp.NewMemoryStore()

		expired := newRecord("u1", otp.TypeLogin, base, time.Minute)
		require.NoError(t, store.Insert(ctx, expired))

		consumed := newRecord("u2", otp.TypeLogin, base, 10*time.Minute)
		consumed.IsUsed = true
		require.NoError(t, store.Insert(ctx, consumed))

		now := base.Add(time.Hour)
		removed, err := store.DeleteStale(ctx, now, now.Add(-30*24*time.Hour))
		require.NoError(t, err)
		require.EqualValues(t, 1, removed)

		removed, err = store.DeleteStale(ctx, now.Add(31*24*time.Hour), now.Add(24*time.Hour))
		require.NoError(t, err)
		require.EqualValues(t, 1, removed)
	})
}
