package staff

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists credentials across the six role collections. The role
// argument selects the collection; implementations return ErrNotFound when a
// record is missing.
type Repository interface {
	Create(ctx context.Context, c *Credential) error
	FindByID(ctx context.Context, role string, id uuid.UUID) (*Credential, error)
	FindByEmail(ctx context.Context, role, email string) (*Credential, error)
	List(ctx context.Context, role string) ([]*Credential, error)
	// Update persists name, department and the doctor profile. Email, role
	// and password hash are immutable through this path.
	Update(ctx context.Context, c *Credential) error
	Delete(ctx context.Context, role string, id uuid.UUID) error
	Count(ctx context.Context, role string) (int, error)
}
