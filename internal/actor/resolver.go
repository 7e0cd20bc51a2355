// Package actor resolves the calling principal for a request.
//
// Credentials are HS256 JWTs issued by the identity provider. The resolver
// verifies the token, confirms the principal exists in durable storage, and
// applies admin impersonation when requested. Resolution is pure: callers
// must still scope every read and write by the effective user id.
package actor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fractionalops/claire-backend/internal/domain"
)

// Sentinel errors for credential resolution.
var (
	ErrUnauthenticated = errors.New("missing or invalid credential")
	ErrForbidden       = errors.New("admin access required for impersonation")
)

// UserStore is the durable principal lookup the resolver depends on.
type UserStore interface {
	// GetUser returns the user for the given id, or an error if absent.
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Resolver verifies credentials and produces the effective actor.
type Resolver struct {
	users  UserStore
	secret []byte
	admins map[string]bool
}

// NewResolver creates a resolver. adminEmails is the elevated-principal
// allowlist; it is injected here and read nowhere else.
func NewResolver(users UserStore, jwtSecret string, adminEmails []string) *Resolver {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &Resolver{users: users, secret: []byte(jwtSecret), admins: admins}
}

// Resolve verifies the bearer credential and, if impersonate is non-empty,
// substitutes the effective principal after checking the caller is on the
// admin allowlist. The returned actor keeps the caller's real identity for
// audit attribution.
func (r *Resolver) Resolve(ctx context.Context, credential, impersonate string) (domain.Actor, error) {
	if credential == "" {
		return domain.Actor{}, ErrUnauthenticated
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrUnauthenticated
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, ErrUnauthenticated
	}

	user, err := r.users.GetUser(ctx, sub)
	if err != nil {
		return domain.Actor{}, ErrUnauthenticated
	}

	actor := domain.Actor{
		EffectiveUserID: user.ID,
		CallerUserID:    user.ID,
		CallerEmail:     user.Email,
		IsAdmin:         r.admins[strings.ToLower(user.Email)],
	}

	// Any impersonate parameter requires the allowlist, including the
	// caller's own id: non-elevated principals never use the override.
	if impersonate != "" {
		if !actor.IsAdmin {
			return domain.Actor{}, ErrForbidden
		}
		actor.EffectiveUserID = impersonate
	}

	return actor, nil
}
