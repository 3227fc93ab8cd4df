package server

import (
	"net/http"

	"github.com/jonathan/exam-automation/internal/types"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	server      *Server
	userService *UserService
	jwtService  *JWTService
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(s *Server, userService *UserService, jwtService *JWTService) *AuthHandler {
	return &AuthHandler{
		server:      s,
		userService: userService,
		jwtService:  jwtService,
	}
}

// Register creates a student account and returns it with a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if !h.server.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.server.writeError(w, r, &ErrBadRequest{Message: validationMessage(err)})
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		h.server.writeError(w, r, err)
		return
	}
	h.respondWithToken(w, r, http.StatusCreated, user)
}

// Login authenticates by email and password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if !h.server.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.server.writeError(w, r, &ErrBadRequest{Message: validationMessage(err)})
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		h.server.writeError(w, r, err)
		return
	}
	h.respondWithToken(w, r, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *types.User) {
	token, err := h.jwtService.GenerateToken(user.ID, user.Role)
	if err != nil {
		h.server.writeError(w, r, err)
		return
	}
	h.server.jsonResponse(w, status, types.LoginResponse{User: user, Token: token})
}
