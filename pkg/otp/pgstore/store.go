package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/securekit/pkg/otp"
)

// Store implements otp.Store over a pgx connection pool. It also implements
// otp.Locker via Postgres advisory locks, so multiple service instances
// sharing one database serialize their create and verify sequences per
// (userID, type) key.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store over an established pool. Run Migrate before first use.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectColumns = `id, user_id, code, type, identifier, expires_at, is_used, attempts, created_at, updated_at`

func (s *Store) InvalidateLive(ctx context.Context, userID string, typ otp.Type) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE otp_codes
		SET is_used = TRUE, updated_at = now()
		WHERE user_id = $1 AND type = $2 AND NOT is_used AND expires_at > now()`,
		userID, string(typ),
	)
	return err
}

func (s *Store) FindRecentSince(ctx context.Context, userID string, typ otp.Type, since time.Time) (*otp.Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM otp_codes
		WHERE user_id = $1 AND type = $2 AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT 1`,
		userID, string(typ), since,
	)
	return scanRecord(row)
}

func (s *Store) Insert(ctx context.Context, rec *otp.Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO otp_codes (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.UserID, rec.Code, string(rec.Type), rec.Identifier,
		rec.ExpiresAt, rec.IsUsed, rec.Attempts, rec.CreatedAt, rec.UpdatedAt,
	)
	return err
}

func (s *Store) FindLive(ctx context.Context, userID string, typ otp.Type, now time.Time) (*otp.Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM otp_codes
		WHERE user_id = $1 AND type = $2 AND NOT is_used AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1`,
		userID, string(typ), now,
	)
	return scanRecord(row)
}

func (s *Store) Save(ctx context.Context, rec *otp.Record) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE otp_codes
		SET is_used = $2, attempts = $3, expires_at = $4, updated_at = $5
		WHERE id = $1`,
		rec.ID, rec.IsUsed, rec.Attempts, rec.ExpiresAt, rec.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return otp.ErrRecordNotFound
	}
	return nil
}

func (s *Store) DeleteStale(ctx context.Context, now, usedBefore time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM otp_codes
		WHERE (NOT is_used AND expires_at < $1) OR (is_used AND updated_at < $2)`,
		now, usedBefore,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// WithLock implements otp.Locker with a session-scoped advisory lock on a
// dedicated connection. Other instances contending for the same (userID,
// type) key block on pg_advisory_lock until fn returns.
func (s *Store) WithLock(ctx context.Context, userID string, typ otp.Type, fn func(ctx context.Context) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	key := userID + ":" + string(typ)
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, key); err != nil {
		return err
	}
	defer func() {
		// Unlock on a background context so cancellation of fn cannot leave
		// the advisory lock held for the lifetime of the session.
		_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, key)
	}()

	return fn(ctx)
}

func scanRecord(row pgx.Row) (*otp.Record, error) {
	var (
		rec otp.Record
		typ string
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Code, &typ, &rec.Identifier,
		&rec.ExpiresAt, &rec.IsUsed, &rec.Attempts, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Type = otp.Type(typ)
	return &rec, nil
}
