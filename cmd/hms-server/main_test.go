package main

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/staff"
	"github.com/hms/hms/internal/platform/auth"
)

type roleRecordingRepo struct {
	staff.Repository
	lastRole string
	cred     *staff.Credential
}

func (r *roleRecordingRepo) FindByID(_ context.Context, role string, _ uuid.UUID) (*staff.Credential, error) {
	r.lastRole = role
	return r.cred, nil
}

func (r *roleRecordingRepo) List(_ context.Context, role string) ([]*staff.Credential, error) {
	r.lastRole = role
	return []*staff.Credential{r.cred}, nil
}

func (r *roleRecordingRepo) Count(_ context.Context, role string) (int, error) {
	r.lastRole = role
	return 7, nil
}

// The adapter must always address the doctor collection, whichever method
// the consumer calls.
func TestDoctorDirectory_ScopesToDoctorRole(t *testing.T) {
	repo := &roleRecordingRepo{cred: &staff.Credential{ID: uuid.New(), Role: auth.RoleDoctor}}
	dir := doctorDirectory{repo: repo}
	ctx := context.Background()

	if _, err := dir.FindDoctor(ctx, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastRole != auth.RoleDoctor {
		t.Errorf("FindDoctor used role %q", repo.lastRole)
	}

	doctors, err := dir.ListDoctors(ctx)
	if err != nil || len(doctors) != 1 {
		t.Fatalf("ListDoctors = %v, %v", doctors, err)
	}
	if repo.lastRole != auth.RoleDoctor {
		t.Errorf("ListDoctors used role %q", repo.lastRole)
	}

	n, err := dir.CountDoctors(ctx)
	if err != nil || n != 7 {
		t.Fatalf("CountDoctors = %d, %v", n, err)
	}
	if repo.lastRole != auth.RoleDoctor {
		t.Errorf("CountDoctors used role %q", repo.lastRole)
	}
}
