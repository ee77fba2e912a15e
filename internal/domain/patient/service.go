package patient

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DoctorCounter reports how many doctors exist, for the dashboard. The
// staff package satisfies it through a small adapter at wiring time.
type DoctorCounter interface {
	CountDoctors(ctx context.Context) (int, error)
}

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type Service struct {
	repo    Repository
	doctors DoctorCounter
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(repo Repository, doctors DoctorCounter, log zerolog.Logger) *Service {
	return &Service{repo: repo, doctors: doctors, log: log, now: time.Now}
}

func newMRN() string {
	return fmt.Sprintf("MRN-%06d", 100000+rand.Intn(900000))
}

// Register creates a patient record. A medical record number is assigned on
// creation and never changes afterwards.
func (s *Service) Register(ctx context.Context, p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Phone = strings.TrimSpace(p.Phone)
	if p.Name == "" {
		return invalidf("patient name is required")
	}
	if p.Phone == "" {
		return invalidf("patient phone is required")
	}

	switch p.PatientType {
	case "":
		p.PatientType = TypeOPD
	case TypeOPD, TypeIPD:
	default:
		return invalidf("patient type must be %s or %s", TypeOPD, TypeIPD)
	}

	if p.PatientType == TypeOPD && p.OPDDetails.VisitCount == 0 {
		now := s.now()
		p.OPDDetails = OPDDetails{VisitCount: 1, LastVisitDate: &now}
	}
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if p.ExistingConditions == nil {
		p.ExistingConditions = []string{}
	}
	if p.CurrentMedications == nil {
		p.CurrentMedications = []string{}
	}
	p.MRN = newMRN()

	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	s.log.Info().Str("patient_id", p.ID.String()).Str("mrn", p.MRN).Msg("patient registered")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Patient, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

// Update replaces the mutable fields of a patient. The MRN on the stored
// record is preserved regardless of what the caller sends.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p *Patient) (*Patient, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.ID = existing.ID
	p.MRN = existing.MRN
	p.CreatedAt = existing.CreatedAt
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, invalidf("patient name is required")
	}
	if strings.TrimSpace(p.Phone) == "" {
		return nil, invalidf("patient phone is required")
	}
	if p.PatientType == "" {
		p.PatientType = existing.PatientType
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Reassign moves a patient to another doctor.
func (s *Service) Reassign(ctx context.Context, patientID, doctorID uuid.UUID) (*Patient, error) {
	p, err := s.repo.FindByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	p.AssignedDoctor = &doctorID
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("patient_id", patientID.String()).
		Str("doctor_id", doctorID.String()).
		Msg("patient reassigned")
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// DashboardStats aggregates the counters shown on the receptionist
// dashboard.
func (s *Service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.repo.CountCreatedSince(ctx, startOfDay)
	if err != nil {
		return nil, err
	}

	doctors, err := s.doctors.CountDoctors(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.Recent(ctx, 5)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []Summary{}
	}

	return &DashboardStats{
		TotalPatients:    total,
		TodayPatients:    today,
		AvailableDoctors: doctors,
		RecentPatients:   recent,
	}, nil
}
