package api

import (
	"context"
)

type Role string

const (
	RoleFleet Role = "fleet"
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleFleet, RoleHost, RoleGuest:
		return Role(s), true
	default:
		return "", false
	}
}

// Actor is the authenticated caller of a command. Session issuance lives in
// a separate service; this core only verifies the token it minted.
type Actor struct {
	ID   string
	Role Role
}

type ctxKey string

const ctxKeyActor ctxKey = "actor"

func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, a)
}

func ActorFromContext(ctx context.Context) *Actor {
	v := ctx.Value(ctxKeyActor)
	if v == nil {
		return nil
	}
	a, _ := v.(*Actor)
	return a
}
