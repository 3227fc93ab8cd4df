package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-test"

func TestNewJWTConfig_DefaultValues(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("JWT_EXPIRATION_HOURS", "")
	t.Setenv("JWT_ISSUER", "")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Secret)
	assert.Equal(t, 24, cfg.ExpirationHours, "should use default expiration of 24 hours")
	assert.Equal(t, "exam-automation", cfg.Issuer)
}

func TestNewJWTConfig(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		expiration string
		wantHours  int
		wantErr    string
	}{
		{name: "custom expiration", secret: testSecret, expiration: "48", wantHours: 48},
		{name: "minimum expiration", secret: testSecret, expiration: "1", wantHours: 1},
		{name: "missing secret", secret: "", wantErr: "JWT_SECRET is required"},
		{name: "short secret", secret: "short", wantErr: "at least 16"},
		{name: "zero expiration", secret: testSecret, expiration: "0", wantErr: "at least 1 hour"},
		{name: "negative expiration", secret: testSecret, expiration: "-5", wantErr: "at least 1 hour"},
		{name: "non-numeric expiration", secret: testSecret, expiration: "a day", wantErr: "invalid JWT_EXPIRATION_HOURS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)
			t.Setenv("JWT_EXPIRATION_HOURS", tt.expiration)

			cfg, err := NewJWTConfig()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Nil(t, cfg)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHours, cfg.ExpirationHours)
		})
	}
}
