package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS otp_codes (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	code       TEXT NOT NULL,
	type       TEXT NOT NULL,
	identifier TEXT NOT NULL DEFAULT '',
	expires_at TIMESTAMPTZ NOT NULL,
	is_used    BOOLEAN NOT NULL DEFAULT FALSE,
	attempts   INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS otp_codes_lookup_idx
	ON otp_codes (user_id, type, created_at DESC);

CREATE INDEX IF NOT EXISTS otp_codes_cleanup_idx
	ON otp_codes (expires_at);
`

// Migrate creates the otp_codes table and its indexes if missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
