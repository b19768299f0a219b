package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"chatlink/internal/middleware"
	"chatlink/internal/services"
	"chatlink/internal/storage"
)

// UserHandler exposes the user directory.
type UserHandler struct {
	userService services.UserService
}

// NewUserHandler creates a new UserHandler instance.
func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetMe returns the caller's own profile.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.GetUserProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeJSONError(w, "user not found", http.StatusNotFound)
		} else {
			writeJSONError(w, "failed to load profile", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// GetUser returns another user's public profile by id.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := storage.StrToUint(mux.Vars(r)["userID"])
	if err != nil {
		writeJSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}

	user, err := h.userService.GetUserProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeJSONError(w, "user not found", http.StatusNotFound)
		} else {
			writeJSONError(w, "failed to load profile", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, user.BasicInfo())
}

// ListUsers returns everyone except the caller, for the contact picker.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	users, err := h.userService.ListOtherUsers(r.Context(), userID)
	if err != nil {
		writeJSONError(w, "failed to list users", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, users)
}
