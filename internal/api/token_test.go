package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	secret := "test_secret"
	now := time.Unix(1700000000, 0)

	s, err := IssueSessionToken(Actor{ID: "guest-1", Role: RoleGuest}, secret, now, 15*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := VerifySessionToken(s, secret, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != "guest-1" || got.Role != RoleGuest {
		t.Fatalf("actor mismatch: %+v", got)
	}
}

func TestVerifySessionToken_WrongSecret(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s, err := IssueSessionToken(Actor{ID: "host-1", Role: RoleHost}, "secret_a", now, 15*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := VerifySessionToken(s, "secret_b", now); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestVerifySessionToken_Expired(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s, err := IssueSessionToken(Actor{ID: "guest-1", Role: RoleGuest}, "secret", now, 15*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := VerifySessionToken(s, "secret", now.Add(16*time.Minute)); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestVerifySessionToken_UnknownRole(t *testing.T) {
	now := time.Unix(1700000000, 0)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
		Role: "admin",
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifySessionToken(s, "secret", now); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestVerifySessionToken_MissingSubject(t *testing.T) {
	now := time.Unix(1700000000, 0)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
		Role: "guest",
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifySessionToken(s, "secret", now); err == nil {
		t.Fatalf("expected error for missing subject")
	}
}
