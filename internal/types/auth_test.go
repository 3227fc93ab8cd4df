//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserRequest_Validation(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name    string
		request CreateUserRequest
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid request",
			request: CreateUserRequest{
				Name:     "Asha Rao",
				Email:    "asha@example.com",
				Password: "password123",
				Phone:    "555-0100",
			},
		},
		{
			name: "missing name",
			request: CreateUserRequest{
				Email:    "asha@example.com",
				Password: "password123",
			},
			wantErr: true,
			errMsg:  "required",
		},
		{
			name: "invalid email",
			request: CreateUserRequest{
				Name:     "Asha Rao",
				Email:    "not-an-email",
				Password: "password123",
			},
			wantErr: true,
			errMsg:  "email",
		},
		{
			name: "short password",
			request: CreateUserRequest{
				Name:     "Asha Rao",
				Email:    "asha@example.com",
				Password: "short",
			},
			wantErr: true,
			errMsg:  "min",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.request)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoginRequest_ValidateMethod(t *testing.T) {
	valid := &LoginRequest{Email: "asha@example.com", Password: "anything"}
	assert.NoError(t, valid.Validate())

	missing := &LoginRequest{Email: "asha@example.com"}
	assert.Error(t, missing.Validate())
}

func TestLoginResponse_Serialization(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	resp := LoginResponse{
		User: &User{
			ID:          uuid.New(),
			Name:        "Asha Rao",
			Email:       "asha@example.com",
			Role:        RoleStudent,
			PasswordSet: true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Token: "token-value",
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"role":"student"`)
	assert.Contains(t, string(data), `"token":"token-value"`)
	assert.NotContains(t, string(data), "password_hash")
}
