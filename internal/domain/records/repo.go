package records

import (
	"context"

	"github.com/google/uuid"
)

type ReportRepository interface {
	Create(ctx context.Context, r *Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*Report, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Report, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Report, int, error)
	LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Report, error)
	Update(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	FindByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error)
	LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
}

type ScanReportRepository interface {
	Create(ctx context.Context, s *ScanReport) error
	FindByID(ctx context.Context, id uuid.UUID) (*ScanReport, error)
	List(ctx context.Context) ([]*ScanReport, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ScanReport, error)
	UnbilledByPatient(ctx context.Context, patientID uuid.UUID) ([]*ScanReport, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*ScanReport, error)
	MarkBilled(ctx context.Context, ids []uuid.UUID) error
	Update(ctx context.Context, s *ScanReport) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type LabReportRepository interface {
	Create(ctx context.Context, l *LabReport) error
	FindByID(ctx context.Context, id uuid.UUID) (*LabReport, error)
	List(ctx context.Context) ([]*LabReport, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*LabReport, error)
	Update(ctx context.Context, l *LabReport) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}
