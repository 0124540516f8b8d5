// Package config loads typed configuration structs from environment variables.
//
// It builds on github.com/caarlos0/env for struct tag parsing and
// github.com/joho/godotenv for optional .env files in development. Every
// subsystem of the engine (postgres, redis, health thresholds, dispatchers)
// declares its own Config struct with `env` tags and loads it through this
// package, so a single environment fully describes a deployment.
package config
