// Package config loads typed configuration from environment variables.
//
// Structs declare their variables with caarlos0/env tags and may add
// go-playground/validator rules:
//
//	type Config struct {
//		Currency string `env:"CASHIER_CURRENCY" envDefault:"NGN" validate:"required,len=3"`
//	}
//
// Load reads ./.env on first use, parses, validates and caches the result
// per type. Parse works on an explicit map and is what tests use.
package config
