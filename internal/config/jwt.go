package config

import (
	"fmt"
)

const (
	// MinJWTSecretLength is the shortest HS256 signing secret accepted.
	MinJWTSecretLength = 16

	defaultJWTIssuer = "exam-automation"
)

// JWTConfig holds settings for issuing and validating access tokens.
type JWTConfig struct {
	Secret          string
	Issuer          string
	ExpirationHours int
}

// NewJWTConfig reads JWT_SECRET (required), JWT_ISSUER and
// JWT_EXPIRATION_HOURS (default 24).
func NewJWTConfig() (*JWTConfig, error) {
	hours, err := envInt("JWT_EXPIRATION_HOURS", 24)
	if err != nil {
		return nil, err
	}

	cfg := &JWTConfig{
		Secret:          envString("JWT_SECRET", ""),
		Issuer:          envString("JWT_ISSUER", defaultJWTIssuer),
		ExpirationHours: hours,
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}
	if len(c.Secret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength)
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	if c.Issuer == "" {
		c.Issuer = defaultJWTIssuer
	}
	return nil
}
