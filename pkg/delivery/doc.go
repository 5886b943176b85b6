// Package delivery provides otp.Channel implementations: transactional
// email via Postmark for production and a file-backed channel for local
// development.
//
//	var cfg delivery.EmailConfig
//	config.MustLoad(&cfg)
//
//	ch, err := delivery.NewEmailChannel(cfg)
//	svc := otp.NewService(store, otp.WithChannel(ch))
//
// Channels receive the raw code exactly once and must not retain it;
// anything they log about a delivery goes through masked identifiers.
package delivery
