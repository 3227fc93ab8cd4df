package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/exam-automation/internal/orchestration"
	"github.com/jonathan/exam-automation/internal/server/middleware"
	"github.com/jonathan/exam-automation/internal/server/ratelimit"
	"github.com/jonathan/exam-automation/internal/types"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server configuration
type Config struct {
	Port int
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Service     *orchestration.Service
	Users       *UserService
	JWT         *JWTService
	RateLimiter *ratelimit.Limiter
	Health      Pinger

	// OnShutdown runs after the HTTP server has drained, in order.
	OnShutdown []func()
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	service     *orchestration.Service
	jwtService  *JWTService
	rateLimiter *ratelimit.Limiter
	health      Pinger
	authHandler *AuthHandler
	onShutdown  []func()
}

// New creates a server and registers all routes.
func New(cfg Config, deps Deps) *Server {
	s := &Server{
		service:     deps.Service,
		jwtService:  deps.JWT,
		rateLimiter: deps.RateLimiter,
		health:      deps.Health,
		onShutdown:  deps.OnShutdown,
	}
	if s.rateLimiter == nil {
		s.rateLimiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	}
	s.authHandler = NewAuthHandler(s, deps.Users, deps.JWT)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(s.routes()))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	authed := middleware.Authenticate(s.jwtService.AsTokenValidator())
	admin := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireRole(types.RoleAdmin)(h))
	}
	self := func(h http.HandlerFunc) http.Handler {
		return authed(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Public
	mux.HandleFunc("POST /v1/auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", s.authHandler.Login)

	// Self-service
	mux.Handle("GET /v1/exams", self(s.handleListActiveExams))
	mux.Handle("GET /v1/exams/{id}", self(s.handleGetActiveExam))
	mux.Handle("GET /v1/applications", self(s.handleListOwnApplications))
	mux.Handle("POST /v1/applications", self(s.handleCreateOwnApplication))
	mux.Handle("GET /v1/applications/{id}", self(s.handleGetOwnApplication))
	mux.Handle("PATCH /v1/applications/{id}", self(s.handleUpdateOwnApplication))

	// Admin
	mux.Handle("GET /v1/admin/applications", admin(s.handleListApplications))
	mux.Handle("POST /v1/admin/applications", admin(s.handleCreateApplication))
	mux.Handle("GET /v1/admin/applications/{id}", admin(s.handleGetApplication))
	mux.Handle("PATCH /v1/admin/applications/{id}", admin(s.handleUpdateApplication))
	mux.Handle("DELETE /v1/admin/applications/{id}", admin(s.handleDeleteApplication))
	mux.Handle("POST /v1/admin/applications/{id}/approve", admin(s.handleApproveApplication))

	mux.Handle("GET /v1/admin/exams", admin(s.handleListExams))
	mux.Handle("POST /v1/admin/exams", admin(s.handleCreateExam))
	mux.Handle("GET /v1/admin/exams/{id}", admin(s.handleGetExam))
	mux.Handle("PATCH /v1/admin/exams/{id}", admin(s.handleUpdateExam))
	mux.Handle("DELETE /v1/admin/exams/{id}", admin(s.handleDeleteExam))

	return mux
}

// Start listens until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		s.cleanup()
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("[server] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.cleanup()
	log.Println("[server] stopped")
	return nil
}

func (s *Server) cleanup() {
	s.rateLimiter.Stop()
	for _, fn := range s.onShutdown {
		fn()
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[%s] %s %d in %v", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// withRateLimit rejects clients over their per-route budget with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		if info.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
		}
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID identifies the caller by remote IP.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	seconds := int(info.RetryAfter.Round(time.Second) / time.Second)
	if info.RetryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", max(seconds, 1)))
	}
	log.Printf("[rate-limit] rule=%s limit=%d retry_after=%s", info.Rule, info.Limit, info.RetryAfter)
	s.jsonResponse(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate_limited",
		"message":     "Rate limit exceeded. Please try again later.",
		"limit":       info.Limit,
		"retry_after": seconds,
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			log.Printf("[server] health check failed: %v", err)
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] error encoding JSON response: %v", err)
	}
}

// readBody reads a bounded request body.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, &ErrBadRequest{Message: "request body too large or unreadable"})
		return nil, false
	}
	return body, true
}

// decodeJSON decodes the body into v, rejecting unknown fields.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, ok := s.readBody(w, r)
	if !ok {
		return false
	}
	return s.unmarshalBody(w, r, body, v)
}

func (s *Server) unmarshalBody(w http.ResponseWriter, r *http.Request, body []byte, v any) bool {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, &ErrBadRequest{Message: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// pathID parses the {id} path value.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, &ErrBadRequest{Message: "invalid id: " + r.PathValue("id")})
		return uuid.Nil, false
	}
	return id, true
}

// principal returns the authenticated caller; routes are wrapped in Authenticate.
func (s *Server) principal(w http.ResponseWriter, r *http.Request) (middleware.Principal, bool) {
	p, err := middleware.GetPrincipal(r)
	if err != nil {
		s.jsonResponse(w, http.StatusUnauthorized, map[string]string{
			"error":   "unauthenticated",
			"message": "authentication required",
		})
		return p, false
	}
	return p, true
}

// validationMessage names the first field that failed validation.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("validation error: %s - %s", strings.ToLower(fe.Field()), fe.Tag())
	}
	return "validation error: invalid request"
}
