package domain

import "time"

// User is a durable principal record. Credentials are verified against
// tokens issued by the identity provider; this row supplies the identity
// the platform knows about.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor is the resolved principal for a request. EffectiveUserID is the
// tenant whose data is read and written; CallerUserID is the authenticated
// identity. They differ only under admin impersonation. Ownership checks
// always use EffectiveUserID; audit attribution always uses the caller.
type Actor struct {
	EffectiveUserID string
	CallerUserID    string
	CallerEmail     string
	IsAdmin         bool
}

// Impersonating reports whether the actor is operating on another tenant's
// behalf.
func (a Actor) Impersonating() bool {
	return a.EffectiveUserID != a.CallerUserID
}
