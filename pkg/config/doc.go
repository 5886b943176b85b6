// Package config loads typed configuration structs from environment
// variables, with optional .env support for development.
//
// Struct fields are tagged with env tags understood by caarlos0/env:
//
//	type Config struct {
//	    MasterKey string `env:"MASTER_ENCRYPTION_KEY"`
//	    ConnURL   string `env:"PG_CONN_URL,required"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil { ... }
//
// Each config type is parsed once per process and cached, so packages can
// load their own configs independently without re-reading the environment.
package config
