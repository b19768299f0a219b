package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"chatlink/internal/auth"
	"chatlink/internal/middleware"
	"chatlink/internal/models"
	"chatlink/internal/services"
)

// AuthHandler exposes register, login and logout.
type AuthHandler struct {
	authService services.AuthService
	blacklist   auth.TokenBlacklist
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(authService services.AuthService, blacklist auth.TokenBlacklist) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		blacklist:   blacklist,
		validate:    validator.New(),
	}
}

// RegisterRequest is the user registration request body.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
}

// LoginRequest is the login request body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.authService.Register(r.Context(), req.Name, req.Email, req.Password, req.ImageURL)
	if err != nil {
		if errors.Is(err, services.ErrUserAlreadyExists) {
			writeJSONError(w, err.Error(), http.StatusConflict)
		} else {
			writeJSONError(w, "registration failed", http.StatusInternalServerError)
		}
		return
	}

	user.PasswordHash = ""
	writeJSONResponse(w, http.StatusCreated, user)
}

// Login handles user login and returns a signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) || errors.Is(err, services.ErrInvalidCredentials) {
			writeJSONError(w, "invalid email or password", http.StatusUnauthorized)
		} else {
			writeJSONError(w, "login failed", http.StatusInternalServerError)
		}
		return
	}

	user.PasswordHash = ""
	writeJSONResponse(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// Logout blacklists the caller's current token until its natural expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		writeJSONError(w, "token cannot be revoked", http.StatusInternalServerError)
		return
	}

	if err := h.blacklist.Add(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		log.Printf("failed to blacklist token %s: %v", claims.ID, err)
		writeJSONError(w, "logout failed", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}
