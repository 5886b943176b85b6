// Package pgstore persists OTP records in PostgreSQL via pgx/v5.
//
// The store implements otp.Store plus the optional otp.Locker capability:
// create and verify sequences are serialized across service instances with
// Postgres advisory locks keyed on (userID, type), which gives the
// single-transaction consistency the lifecycle contract requires without
// holding row locks across round trips.
//
//	var cfg pgstore.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pgstore.Connect(ctx, cfg)
//	if err != nil { ... }
//	if err := pgstore.Migrate(ctx, pool); err != nil { ... }
//
//	svc := otp.NewService(pgstore.New(pool))
package pgstore
