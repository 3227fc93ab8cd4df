package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/exam-automation/internal/config"
	"github.com/jonathan/exam-automation/internal/memstore"
	"github.com/jonathan/exam-automation/internal/orchestration"
	"github.com/jonathan/exam-automation/internal/server/ratelimit"
	"github.com/jonathan/exam-automation/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-for-jwt-signing"

type testEnv struct {
	server *Server
	store  *memstore.Store
	jwt    *JWTService
}

func testJWTService() *JWTService {
	return NewJWTService(&config.JWTConfig{
		Secret:          testJWTSecret,
		Issuer:          "exam-automation",
		ExpirationHours: 1,
	})
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, memstore.New(), nil)
}

func newTestEnvWith(t *testing.T, store orchestration.Store, limiter *ratelimit.Limiter) *testEnv {
	t.Helper()
	mem, _ := store.(*memstore.Store)
	if mem == nil {
		mem = memstore.New()
	}
	jwtService := testJWTService()
	srv := New(Config{Port: 0}, Deps{
		Service:     orchestration.NewService(store, nil),
		Users:       NewUserService(mem, &config.PasswordConfig{BcryptCost: 10}),
		JWT:         jwtService,
		RateLimiter: limiter,
		Health:      mem,
	})
	t.Cleanup(srv.rateLimiter.Stop)
	return &testEnv{server: srv, store: mem, jwt: jwtService}
}

func (e *testEnv) token(t *testing.T, userID uuid.UUID, role types.Role) string {
	t.Helper()
	token, err := e.jwt.GenerateToken(userID, role)
	require.NoError(t, err)
	return token
}

// admin adds an admin user to the store and returns its id and token.
func (e *testEnv) admin(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	id := e.store.AddUser("Admin")
	return id, e.token(t, id, types.RoleAdmin)
}

func (e *testEnv) student(t *testing.T, name string) (uuid.UUID, string) {
	t.Helper()
	id := e.store.AddUser(name)
	return id, e.token(t, id, types.RoleStudent)
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, kind string) map[string]string {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
	body := decode[map[string]string](t, w)
	assert.Equal(t, kind, body["error"])
	assert.NotEmpty(t, body["message"])
	return body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth_StoreDown(t *testing.T) {
	env := newTestEnv(t)
	env.server.health = downPinger{}
	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodOptions, "/v1/applications", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRouteAuthorization(t *testing.T) {
	env := newTestEnv(t)
	_, studentToken := env.student(t, "Student")
	_, adminToken := env.admin(t)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
		wantKind   string
	}{
		{"self-service without token", http.MethodGet, "/v1/exams", "", http.StatusUnauthorized, "unauthenticated"},
		{"admin without token", http.MethodGet, "/v1/admin/applications", "", http.StatusUnauthorized, "unauthenticated"},
		{"admin route with student token", http.MethodGet, "/v1/admin/applications", studentToken, http.StatusForbidden, "unauthorized"},
		{"admin exam write with student token", http.MethodDelete, "/v1/admin/exams/" + uuid.NewString(), studentToken, http.StatusForbidden, "unauthorized"},
		{"forged token", http.MethodGet, "/v1/exams", "not-a-jwt", http.StatusUnauthorized, "unauthenticated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.token, nil)
			requireError(t, w, tt.wantStatus, tt.wantKind)
		})
	}

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/v1/exams", studentToken, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/v1/admin/applications", adminToken, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/v1/exams", adminToken, nil).Code, "admins can use the self-service surface")
}

func TestBadPathID(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.admin(t)
	w := env.do(t, http.MethodGet, "/v1/admin/applications/42", adminToken, nil)
	requireError(t, w, http.StatusBadRequest, "validation")
}

// failingStore makes every exam listing fail with an unexpected error.
type failingStore struct {
	*memstore.Store
}

func (failingStore) ListExamConfigs(context.Context, bool) ([]types.ExamConfig, error) {
	return nil, errors.New("pool exhausted")
}

func TestInternalErrorsAreNotEchoed(t *testing.T) {
	store := failingStore{memstore.New()}
	env := newTestEnvWith(t, store, nil)
	_, token := env.student(t, "Student")

	w := env.do(t, http.MethodGet, "/v1/exams", token, nil)
	body := requireError(t, w, http.StatusInternalServerError, "internal")
	assert.Equal(t, "internal server error", body["message"])
	assert.NotContains(t, w.Body.String(), "pool exhausted")
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		Rules: []ratelimit.Rule{
			{Name: "login", Method: "POST", Pattern: "/v1/auth/login", Limit: 1, Window: time.Hour},
		},
	})
	env := newTestEnvWith(t, memstore.New(), limiter)

	creds := types.LoginRequest{Email: "nobody@example.com", Password: "whatever1"}
	w := env.do(t, http.MethodPost, "/v1/auth/login", "", creds)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = env.do(t, http.MethodPost, "/v1/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decode[map[string]any](t, w)["error"])

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "", nil).Code)
}
