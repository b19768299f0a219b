package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"chatlink/internal/auth"
	"chatlink/internal/config"
)

// contextKey is a private type for context values to avoid key collisions.
type contextKey string

// UserIDKey stores the authenticated user's id in the request context.
const UserIDKey contextKey = "userID"

// NameKey stores the authenticated user's display name in the request context.
const NameKey contextKey = "name"

// ClaimsKey stores the full validated token claims; logout needs the jti and
// expiry to blacklist the token.
const ClaimsKey contextKey = "claims"

// Authenticator validates bearer tokens and injects the authenticated
// identity into the request context. Blacklisted (logged-out) tokens are
// rejected even when their signature is still valid.
type Authenticator struct {
	authCfg   config.AuthConfig
	blacklist auth.TokenBlacklist
}

func NewAuthenticator(authCfg config.AuthConfig, blacklist auth.TokenBlacklist) *Authenticator {
	return &Authenticator{authCfg: authCfg, blacklist: blacklist}
}

// Middleware wraps next with bearer-token authentication.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeAuthError(w, "missing authorization token")
			return
		}

		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
			writeAuthError(w, "authorization header must be of the form Bearer {token}")
			return
		}

		claims, err := auth.ValidateToken(r.Context(), headerParts[1], a.authCfg.JWTSecretKey, a.blacklist)
		if err != nil {
			writeAuthError(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, NameKey, claims.Name)
		ctx = context.WithValue(ctx, ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext returns the authenticated user id, if present.
func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(UserIDKey).(uint)
	return userID, ok
}

// GetNameFromContext returns the authenticated user's name, if present.
func GetNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(NameKey).(string)
	return name, ok
}

// GetClaimsFromContext returns the validated token claims, if present.
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
