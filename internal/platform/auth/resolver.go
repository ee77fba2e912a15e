package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Resolver turns a bearer token into a Principal by verifying the token and
// probing an ordered list of credential directories.
type Resolver struct {
	tokens      *Tokens
	directories []Directory
}

// NewResolver creates a Resolver. The directory order is significant: the
// first collection that yields a record wins, which makes resolution
// deterministic even if the same identifier were ever present in more than
// one collection. The conventional order is admin, doctor, receptionist,
// scanner, biller, lab.
func NewResolver(tokens *Tokens, directories []Directory) *Resolver {
	return &Resolver{tokens: tokens, directories: directories}
}

// Resolve verifies the Authorization header value and materializes the
// Principal from the first matching credential collection. The role on the
// returned Principal comes from the matched record, not the token payload,
// so a role change after issuance takes effect immediately.
func (r *Resolver) Resolve(ctx context.Context, authorization string) (*Principal, error) {
	if authorization == "" {
		return nil, ErrMissingToken
	}

	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return nil, ErrMissingToken
	}

	claims, err := r.tokens.parse(parts[1])
	if err != nil {
		return nil, err
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	// Ordered, short-circuiting scan across the six collections. There is
	// no composite user index; the collections evolved independently and
	// an O(6) probe per request is an accepted cost.
	for _, dir := range r.directories {
		p, err := dir.FindByID(ctx, subject)
		if errors.Is(err, ErrNoRecord) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup principal: %w", err)
		}
		return p, nil
	}

	return nil, ErrPrincipalNotFound
}
