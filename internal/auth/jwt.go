// Package auth provides JWT generation and validation for the admin
// dashboard session.
//
// There is exactly one principal: the event admin. A token is a plain
// HS256 JWT with sub="admin"; the server secret is the only thing that
// makes it valid, so there is no user table lookup on requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenDuration keeps an admin logged in across an event day without
// re-authenticating.
const tokenDuration = 24 * time.Hour

// Claims are the claims embedded in an admin token.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateAdminToken creates a signed admin session token.
func GenerateAdminToken(secret string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// ParseAdminToken validates a token string. It rejects bad signatures,
// expired tokens, non-admin subjects, and any non-HMAC algorithm
// (algorithm confusion attack prevention).
func ParseAdminToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse admin token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject != "admin" {
		return nil, errors.New("invalid admin token")
	}
	return claims, nil
}
