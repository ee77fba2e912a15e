package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Role names used across the system. A principal's role always comes from
// the credential record it was resolved from, never from client input.
const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RoleReceptionist = "receptionist"
	RoleScanner      = "scanner"
	RoleBiller       = "biller"
	RoleLab          = "lab"
)

var (
	// ErrMissingToken is returned when the Authorization header is absent
	// or not of the form "Bearer <token>".
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken is returned on any signature, expiry or payload
	// verification failure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrPrincipalNotFound is returned when the token verifies but no
	// credential collection holds a record for its subject. This happens
	// legitimately when a record is deleted after token issuance.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrNoRecord is returned by a Directory when it has no record for
	// the given identifier.
	ErrNoRecord = errors.New("no record")
)

// Principal is the resolved, authenticated identity for a request. It is
// created once per inbound request and never persisted.
type Principal struct {
	ID     uuid.UUID
	Name   string
	Email  string
	Role   string
	Record interface{} // full credential record from the matched collection
}

// Directory is a single credential collection that can be probed by
// identifier. Implementations return ErrNoRecord on a miss so the resolver
// can distinguish "not here" from a lookup failure.
type Directory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Principal, error)
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the resolved principal, or nil when the
// request was not authenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}
