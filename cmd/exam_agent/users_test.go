package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/jonathan/exam-automation/internal/config"
	"github.com/jonathan/exam-automation/internal/memstore"
	"github.com/jonathan/exam-automation/internal/server"
	"github.com/jonathan/exam-automation/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAdmin(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	users := server.NewUserService(store, &config.PasswordConfig{BcryptCost: 10})
	req := &types.CreateUserRequest{Name: "Root", Email: "Root@Example.com", Password: "correct-horse"}

	var out bytes.Buffer
	require.NoError(t, createAdmin(ctx, users, req, &out))
	assert.Contains(t, out.String(), "Created admin root@example.com")

	u, err := store.GetUserByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, string(types.RoleAdmin), u.Role)
	assert.True(t, u.PasswordSet)

	err = createAdmin(ctx, users, req, &out)
	assert.ErrorContains(t, err, "failed to create admin")
}

func TestRunCreateAdmin_InvalidInput(t *testing.T) {
	t.Cleanup(func() { adminName, adminEmail, adminPassword = "", "", "" })
	adminName, adminEmail, adminPassword = "Root", "not-an-email", "correct-horse"

	err := runCreateAdmin(createAdminCmd, nil)
	assert.ErrorContains(t, err, "invalid admin details")
}

func TestConnectDB_RequiresURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := connectDB(context.Background(), "")
	assert.ErrorContains(t, err, "database URL is required")
}

func TestCommandTree(t *testing.T) {
	want := [][]string{
		{"serve"},
		{"migrate"},
		{"exams", "import"},
		{"exams", "probe"},
		{"users", "create-admin"},
	}
	for _, path := range want {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestRunServe_SeedRequiresInMemory(t *testing.T) {
	t.Cleanup(func() { serveInMemory, serveSeedFile = false, "" })
	serveInMemory, serveSeedFile = false, "exams.yaml"
	assert.ErrorContains(t, runServe(serveCmd, nil), "require --in-memory")
}

func TestSeedMemoryStore(t *testing.T) {
	t.Setenv("PASSWORD_PEPPER", "")
	t.Setenv("BCRYPT_COST", "10")
	path := t.TempDir() + "/exams.yaml"
	require.NoError(t, writeFile(path, seedYAML))

	t.Cleanup(func() { serveSeedFile, serveAdminEmail, serveAdminPassword = "", "", "" })
	serveSeedFile, serveAdminEmail, serveAdminPassword = path, "admin@example.com", "correct-horse"

	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, seedMemoryStore(ctx, store))

	exams, err := store.ListExamConfigs(ctx, false)
	require.NoError(t, err)
	assert.Len(t, exams, 2)

	admin, err := store.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, string(types.RoleAdmin), admin.Role)
}
