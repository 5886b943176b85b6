// Package redisstore persists OTP records in Redis via go-redis/v9.
//
// Records are stored as JSON values with TTLs covering their expiry plus the
// retention window, indexed newest-first per (userID, type). The store
// implements the optional otp.Locker capability with a token-guarded SET NX
// lock, matching the cross-instance serialization the lifecycle contract
// requires.
//
//	var cfg redisstore.Config
//	config.MustLoad(&cfg)
//
//	client, err := redisstore.Connect(ctx, cfg)
//	if err != nil { ... }
//
//	svc := otp.NewService(redisstore.New(client))
package redisstore
