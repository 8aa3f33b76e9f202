// Package config loads server settings from MDD_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds server settings.
type Config struct {
	Addr    string `env:"MDD_ADDR" envDefault:":8443"`
	DSN     string `env:"MDD_DSN"`
	Store   string `env:"MDD_STORE" envDefault:"postgres"`
	TLSCert string `env:"MDD_TLS_CERT"`
	TLSKey  string `env:"MDD_TLS_KEY"`
	Dev     bool   `env:"MDD_DEV"`

	JWTSecret       string `env:"MDD_JWT_SECRET"`
	JWTExpirationMS int64  `env:"MDD_JWT_EXPIRATION_MS" envDefault:"86400000"`
	JWTIssuer       string `env:"MDD_JWT_ISSUER" envDefault:"self"`
	BcryptCost      int    `env:"MDD_BCRYPT_COST" envDefault:"10"`

	LoginWindow   time.Duration `env:"MDD_LOGIN_WINDOW" envDefault:"15m"`
	LoginMaxFails int           `env:"MDD_LOGIN_MAX_FAILS" envDefault:"5"`
	LoginBlockFor time.Duration `env:"MDD_LOGIN_BLOCK_FOR" envDefault:"15m"`
}

// TokenTTL converts JWTExpirationMS to a duration.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpirationMS) * time.Millisecond
}

// TLS reports whether both certificate and key are configured.
func (c Config) TLS() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// Validate checks cross-field constraints env tags cannot express.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.Store, validation.Required, validation.In(StorePostgres, StoreMemory)),
		validation.Field(&c.DSN, validation.When(c.Store == StorePostgres, validation.Required)),
		validation.Field(&c.JWTSecret, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.JWTExpirationMS, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.JWTIssuer, validation.Required),
		validation.Field(&c.BcryptCost, validation.Min(4), validation.Max(31)),
		validation.Field(&c.TLSKey, validation.When(c.TLSCert != "", validation.Required)),
		validation.Field(&c.TLSCert, validation.When(c.TLSKey != "", validation.Required)),
	)
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}
