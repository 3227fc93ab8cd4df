package config

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	minBcryptCost = 10
	maxBcryptCost = 14
)

// PasswordConfig hashes and verifies account passwords with bcrypt.
type PasswordConfig struct {
	BcryptCost int
	Pepper     string // optional server-side secret appended before hashing
}

// NewPasswordConfig reads BCRYPT_COST (default 12) and PASSWORD_PEPPER.
func NewPasswordConfig() (*PasswordConfig, error) {
	cost, err := envInt("BCRYPT_COST", 12)
	if err != nil {
		return nil, err
	}

	cfg := &PasswordConfig{
		BcryptCost: cost,
		Pepper:     envString("PASSWORD_PEPPER", ""),
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *PasswordConfig) normalize() error {
	if c.BcryptCost < minBcryptCost || c.BcryptCost > maxBcryptCost {
		return fmt.Errorf("bcrypt cost out of range: %d (must be %d-%d)", c.BcryptCost, minBcryptCost, maxBcryptCost)
	}
	return nil
}

func (c *PasswordConfig) peppered(pw string) []byte {
	return []byte(pw + c.Pepper)
}

// HashPassword returns the bcrypt hash of pw.
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(c.peppered(pw), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether pw matches storedHash.
func (c *PasswordConfig) VerifyPassword(pw, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), c.peppered(pw)) == nil
}
