// Package logger builds configured slog.Logger instances with consistent
// attribute helpers for the toolkit's packages.
//
//	log := logger.New(logger.WithProduction("otp-service"))
//	log.Info("otp created", logger.Event("otp.created"), logger.UserID(id))
//
// Defaults are production-safe (JSON, info level, stdout); WithDevelopment
// switches to readable text output at debug level.
package logger
