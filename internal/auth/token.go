// Package auth resolves the caller principal from HS256 bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"clothing-marketplace/internal/config"
	"clothing-marketplace/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var signingMethod = jwt.SigningMethodHS256

// Claims is the token payload. The subject carries the account id.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Mint issues a signed token for principal that expires after ttl.
func Mint(cfg config.AuthConfig, principal model.Principal, now time.Time, ttl time.Duration) (string, error) {
	if cfg.JWTSecret == "" {
		return "", errors.New("jwt secret is required")
	}
	if !principal.Role.IsValid() {
		return "", fmt.Errorf("invalid role %q", principal.Role)
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}

	claims := Claims{
		Role: principal.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID.String(),
			Issuer:    cfg.JWTIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns the principal it was issued for.
func Parse(cfg config.AuthConfig, token string) (model.Principal, error) {
	if cfg.JWTSecret == "" {
		return model.Principal{}, errors.New("jwt secret is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return model.Principal{}, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Principal{}, fmt.Errorf("invalid subject: %w", err)
	}
	if !claims.Role.IsValid() {
		return model.Principal{}, fmt.Errorf("invalid role %q", claims.Role)
	}

	return model.Principal{ID: id, Role: claims.Role}, nil
}
