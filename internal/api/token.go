package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type SessionClaims struct {
	jwt.RegisteredClaims

	Role string `json:"role"`
}

// VerifySessionToken verifies an actor session token (JWT, HS256) issued by
// the auth service and returns the actor it identifies.
func VerifySessionToken(tokenString string, secret string, now time.Time) (*Actor, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("missing token")
	}
	if secret == "" {
		return nil, fmt.Errorf("missing jwt secret")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	claims := &SessionClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(now) {
		return nil, fmt.Errorf("token expired")
	}
	if claims.NotBefore != nil && claims.NotBefore.Time.After(now) {
		return nil, fmt.Errorf("token not active yet")
	}

	role, ok := ParseRole(claims.Role)
	if !ok {
		return nil, fmt.Errorf("unknown role in token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("missing subject in token")
	}

	return &Actor{ID: claims.Subject, Role: role}, nil
}

// IssueSessionToken mints a short-lived actor token. Used by dev tooling and
// tests; production tokens come from the auth service with the same shape.
func IssueSessionToken(actor Actor, secret string, now time.Time, ttl time.Duration) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(actor.Role),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}
