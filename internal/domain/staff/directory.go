package staff

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/auth"
)

// directory adapts one role collection to the auth.Directory lookup.
type directory struct {
	repo Repository
	role string
}

func (d directory) FindByID(ctx context.Context, id uuid.UUID) (*auth.Principal, error) {
	c, err := d.repo.FindByID(ctx, d.role, id)
	if errors.Is(err, ErrNotFound) {
		return nil, auth.ErrNoRecord
	}
	if err != nil {
		return nil, err
	}
	return &auth.Principal{
		ID:     c.ID,
		Name:   c.Name,
		Email:  c.Email,
		Role:   c.Role,
		Record: c,
	}, nil
}

// Directories exposes the six collections in resolver priority order.
func Directories(repo Repository) []auth.Directory {
	dirs := make([]auth.Directory, 0, len(Roles()))
	for _, role := range Roles() {
		dirs = append(dirs, directory{repo: repo, role: role})
	}
	return dirs
}
