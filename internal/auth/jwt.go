package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"chatlink/internal/config"
)

// Claims are the custom JWT claims, embedding jwt.RegisteredClaims for the
// standard fields (ExpiresAt, IssuedAt, ID, ...).
type Claims struct {
	UserID uint   `json:"userId"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateToken mints a new JWT for the given user.
func GenerateToken(userID uint, name string, authCfg config.AuthConfig) (string, error) {
	jwtID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate JWT ID: %w", err)
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(authCfg.JWTExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jwtID.String(),
			Issuer:    "chatlink-server",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(authCfg.JWTSecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return tokenString, nil
}

// ValidateToken verifies a JWT string and returns its claims. When blacklist
// is non-nil, revoked tokens are rejected as well.
func ValidateToken(ctx context.Context, tokenString string, jwtKey string, blacklist TokenBlacklist) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse or verify JWT: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid JWT")
	}

	if blacklist != nil {
		if claims.ID == "" {
			return nil, fmt.Errorf("JWT is missing the jti claim, cannot check blacklist")
		}
		isRevoked, err := blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token blacklist: %w", err)
		}
		if isRevoked {
			return nil, fmt.Errorf("JWT has been revoked")
		}
	}

	return claims, nil
}
