// Package config parses environment variables into tagged structs. Each
// binary declares its own config struct in internal/config and loads it
// through this package, so env parsing behaves the same everywhere.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load populates cfg from the environment according to its `env` tags, e.g.
//
//	type Config struct {
//	    HTTPPort int    `env:"AUTH_HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
//
// cfg must be a pointer to a struct.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse environment config: %w", err)
	}
	return nil
}
