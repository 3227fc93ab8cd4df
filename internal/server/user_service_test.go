package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/exam-automation/internal/config"
	"github.com/jonathan/exam-automation/internal/db"
	"github.com/jonathan/exam-automation/internal/memstore"
	"github.com/jonathan/exam-automation/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertDBUserToTypesUser(t *testing.T) {
	now := time.Now()
	dbUser := &db.User{
		ID:           uuid.New(),
		Name:         "Admin",
		Email:        "admin@example.com",
		Role:         "admin",
		PasswordHash: "hashed",
		PasswordSet:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u := convertDBUserToTypesUser(dbUser)
	require.NotNil(t, u)
	assert.Equal(t, dbUser.ID, u.ID)
	assert.Equal(t, types.RoleAdmin, u.Role)
	assert.True(t, u.PasswordSet)

	assert.Nil(t, convertDBUserToTypesUser(nil))
}

func TestUserService_CreateAdmin(t *testing.T) {
	store := memstore.New()
	svc := NewUserService(store, &config.PasswordConfig{BcryptCost: 10})
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, &types.CreateUserRequest{Name: "Ops", Email: "ops@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, admin.Role)

	logged, err := svc.Login(ctx, &types.LoginRequest{Email: "OPS@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, logged.ID)

	_, err = svc.CreateAdmin(ctx, &types.CreateUserRequest{Name: "Ops", Email: "ops@example.com", Password: "password1"})
	var taken *ErrEmailAlreadyExists
	assert.ErrorAs(t, err, &taken)
}

// failingPasswordStore fails to store password hashes.
type failingPasswordStore struct {
	*memstore.Store
	deleted []uuid.UUID
}

func (f *failingPasswordStore) UpdatePassword(context.Context, uuid.UUID, string) error {
	return errors.New("disk full")
}

func (f *failingPasswordStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return f.Store.DeleteUser(ctx, id)
}

func TestUserService_RemovesUserWhenPasswordFails(t *testing.T) {
	store := &failingPasswordStore{Store: memstore.New()}
	svc := NewUserService(store, &config.PasswordConfig{BcryptCost: 10})

	_, err := svc.Register(context.Background(), &types.CreateUserRequest{Name: "S", Email: "s@example.com", Password: "password1"})
	require.Error(t, err)
	require.Len(t, store.deleted, 1)

	exists, err := store.CheckEmailExists(context.Background(), "s@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}
