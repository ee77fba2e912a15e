package billing

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, b *Bill) error
	FindByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	List(ctx context.Context) ([]*Bill, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Bill, error)
	// LatestByPatient returns the most recently created bill for the
	// patient, the one delivery targets.
	LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Bill, error)
	// FindOpenByPatient returns the patient's unpaid bill, if any.
	FindOpenByPatient(ctx context.Context, patientID uuid.UUID) (*Bill, error)
	Update(ctx context.Context, b *Bill) error
	// UpdatePDFPath records where the rendered document lives without
	// touching the rest of the bill.
	UpdatePDFPath(ctx context.Context, id uuid.UUID, path string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*Stats, error)
}
