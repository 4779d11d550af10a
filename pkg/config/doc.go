// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct tag parsing). Every package in this
// module exposes its own Config struct; the binary composes them and loads
// each through Load, which parses a given type once per process:
//
//	var pgCfg pg.Config
//	config.MustLoad(&pgCfg)
//
// Failures wrap ErrParsingConfig and can be checked with errors.Is.
// ResetCache exists for tests that need to re-read a changed environment.
package config
