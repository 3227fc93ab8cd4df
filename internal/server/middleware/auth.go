// Package middleware provides HTTP middleware for authentication and authorization.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/exam-automation/internal/types"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const principalKey ContextKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Role   types.Role
}

// IsAdmin reports whether the caller holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == types.RoleAdmin
}

// Claims is what a validated token must expose.
type Claims interface {
	GetUserID() uuid.UUID
	GetRole() types.Role
}

// TokenValidator validates bearer tokens. It lets the middleware work with
// any JWT implementation without importing it.
type TokenValidator interface {
	ValidateToken(tokenString string) (Claims, error)
}

// Authenticate rejects requests without a valid bearer token with 401 and
// stores the caller's Principal in the request context.
func Authenticate(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "missing or malformed bearer token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
				return
			}

			p := Principal{UserID: claims.GetUserID(), Role: claims.GetRole()}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole rejects authenticated callers without the given role with 403.
// It must run after Authenticate.
func RequireRole(role types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := GetPrincipal(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
				return
			}
			if p.Role != role {
				writeError(w, http.StatusForbidden, "unauthorized", fmt.Sprintf("requires %s role", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the authenticated caller stored by Authenticate.
func GetPrincipal(r *http.Request) (Principal, error) {
	p, ok := r.Context().Value(principalKey).(Principal)
	if !ok || p.UserID == uuid.Nil {
		return Principal{}, fmt.Errorf("principal not found in request context")
	}
	return p, nil
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}
