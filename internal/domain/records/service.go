package records

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BillOpener joins a new prescription to the patient's open bill, creating
// the bill when none exists. It returns the bill id the prescription was
// linked to. The billing package provides the implementation.
type BillOpener interface {
	OpenForPrescription(ctx context.Context, patientID, doctorID, prescriptionID uuid.UUID) (uuid.UUID, error)
}

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type Service struct {
	reports       ReportRepository
	prescriptions PrescriptionRepository
	scans         ScanReportRepository
	labs          LabReportRepository
	bills         BillOpener
	log           zerolog.Logger
	now           func() time.Time
}

func NewService(reports ReportRepository, prescriptions PrescriptionRepository,
	scans ScanReportRepository, labs LabReportRepository, bills BillOpener,
	log zerolog.Logger) *Service {
	return &Service{
		reports:       reports,
		prescriptions: prescriptions,
		scans:         scans,
		labs:          labs,
		bills:         bills,
		log:           log,
		now:           time.Now,
	}
}

// -- Clinical reports --

// CreateReport files a doctor's examination report and stamps it with the
// authoring doctor.
func (s *Service) CreateReport(ctx context.Context, doctorID uuid.UUID, r *Report) error {
	if r.PatientID == uuid.Nil {
		return invalidf("patient_id is required")
	}
	if r.ReportDetails == "" {
		return invalidf("report_details is required")
	}

	r.DoctorID = doctorID
	if r.ReportTitle == "" {
		r.ReportTitle = "Doctor Examination Report"
	}
	if r.Symptoms == nil {
		r.Symptoms = []string{}
	}
	if r.AdvisedInvestigations == nil {
		r.AdvisedInvestigations = []string{}
	}
	r.IsFinal = true
	r.Date = s.now()

	if err := s.reports.Create(ctx, r); err != nil {
		return err
	}
	s.log.Info().
		Str("report_id", r.ID.String()).
		Str("patient_id", r.PatientID.String()).
		Msg("clinical report created")
	return nil
}

func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.reports.FindByID(ctx, id)
}

func (s *Service) ListReportsByPatient(ctx context.Context, patientID uuid.UUID) ([]*Report, error) {
	return s.reports.ListByPatient(ctx, patientID)
}

func (s *Service) ListAllReports(ctx context.Context, limit, offset int) ([]*Report, int, error) {
	return s.reports.ListAll(ctx, limit, offset)
}

// UpdateReport lets the authoring doctor amend a report. Other doctors get
// ErrAccessDenied rather than a not-found, mirroring the ownership check on
// delete.
func (s *Service) UpdateReport(ctx context.Context, doctorID, id uuid.UUID, r *Report) (*Report, error) {
	existing, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.DoctorID != doctorID {
		return nil, ErrAccessDenied
	}

	r.ID = existing.ID
	r.PatientID = existing.PatientID
	r.DoctorID = existing.DoctorID
	r.Date = existing.Date
	if r.ReportTitle == "" {
		r.ReportTitle = existing.ReportTitle
	}
	if err := s.reports.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) DeleteReport(ctx context.Context, doctorID, id uuid.UUID) error {
	existing, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.DoctorID != doctorID {
		return ErrAccessDenied
	}
	return s.reports.Delete(ctx, id)
}

// -- Prescriptions --

func newPrescriptionNo() string {
	return fmt.Sprintf("RX-%06d", 100000+rand.Intn(900000))
}

// CreatePrescription validates and files a prescription, then links it to
// the patient's open bill so a consultation charge exists before billing.
func (s *Service) CreatePrescription(ctx context.Context, doctorID uuid.UUID, p *Prescription) error {
	if p.PatientID == uuid.Nil {
		return invalidf("patient_id is required")
	}
	if len(p.Medicines) == 0 {
		return invalidf("at least one medicine is required")
	}
	for i, m := range p.Medicines {
		if m.Name == "" || m.Dosage == "" || m.Frequency == "" || m.Duration == "" {
			return invalidf("medicine %d missing required fields", i+1)
		}
	}

	p.DoctorID = doctorID
	p.PrescriptionNo = newPrescriptionNo()

	if err := s.prescriptions.Create(ctx, p); err != nil {
		return err
	}

	if s.bills != nil {
		billID, err := s.bills.OpenForPrescription(ctx, p.PatientID, doctorID, p.ID)
		if err != nil {
			return fmt.Errorf("link prescription to bill: %w", err)
		}
		p.BillID = &billID
		if err := s.prescriptions.Update(ctx, p); err != nil {
			return err
		}
	}

	s.log.Info().
		Str("prescription_id", p.ID.String()).
		Str("patient_id", p.PatientID.String()).
		Str("prescription_no", p.PrescriptionNo).
		Msg("prescription created")
	return nil
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.prescriptions.FindByID(ctx, id)
}

func (s *Service) ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	return s.prescriptions.ListByPatient(ctx, patientID)
}

func (s *Service) LatestPrescription(ctx context.Context, patientID uuid.UUID) (*Prescription, error) {
	return s.prescriptions.LatestByPatient(ctx, patientID)
}

func (s *Service) UpdatePrescription(ctx context.Context, doctorID, id uuid.UUID, p *Prescription) (*Prescription, error) {
	existing, err := s.prescriptions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.DoctorID != doctorID {
		return nil, ErrAccessDenied
	}

	p.ID = existing.ID
	p.PatientID = existing.PatientID
	p.DoctorID = existing.DoctorID
	p.PrescriptionNo = existing.PrescriptionNo
	p.BillID = existing.BillID
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// -- Scan reports --

// CreateScanReport files a scan. When the creator is a doctor the report is
// attributed to them as the requesting doctor.
func (s *Service) CreateScanReport(ctx context.Context, creatorID uuid.UUID, creatorIsDoctor bool, sr *ScanReport) error {
	if sr.PatientID == uuid.Nil {
		return invalidf("patient_id is required")
	}
	if sr.Type == "" || sr.ScanName == "" {
		return invalidf("type and scan_name are required")
	}
	if sr.ResultStatus == "" {
		sr.ResultStatus = StatusPending
	}
	if !ValidResultStatus(sr.ResultStatus) {
		return invalidf("invalid result status %q", sr.ResultStatus)
	}
	if sr.ScanDate.IsZero() {
		sr.ScanDate = s.now()
	}
	if creatorIsDoctor {
		sr.DoctorID = &creatorID
	}
	sr.CreatedBy = &creatorID
	sr.IsBilled = false

	if err := s.scans.Create(ctx, sr); err != nil {
		return err
	}
	s.log.Info().
		Str("scan_report_id", sr.ID.String()).
		Str("patient_id", sr.PatientID.String()).
		Str("type", sr.Type).
		Msg("scan report created")
	return nil
}

func (s *Service) GetScanReport(ctx context.Context, id uuid.UUID) (*ScanReport, error) {
	return s.scans.FindByID(ctx, id)
}

func (s *Service) ListScanReports(ctx context.Context) ([]*ScanReport, error) {
	return s.scans.List(ctx)
}

func (s *Service) ListScanReportsByPatient(ctx context.Context, patientID uuid.UUID) ([]*ScanReport, error) {
	return s.scans.ListByPatient(ctx, patientID)
}

func (s *Service) UnbilledScanReports(ctx context.Context, patientID uuid.UUID) ([]*ScanReport, error) {
	return s.scans.UnbilledByPatient(ctx, patientID)
}

func (s *Service) UpdateScanReport(ctx context.Context, id uuid.UUID, sr *ScanReport) (*ScanReport, error) {
	existing, err := s.scans.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sr.ID = existing.ID
	sr.PatientID = existing.PatientID
	sr.IsBilled = existing.IsBilled
	if sr.ResultStatus == "" {
		sr.ResultStatus = existing.ResultStatus
	}
	if !ValidResultStatus(sr.ResultStatus) {
		return nil, invalidf("invalid result status %q", sr.ResultStatus)
	}
	if err := s.scans.Update(ctx, sr); err != nil {
		return nil, err
	}
	return sr, nil
}

// VerifyScanReport records the reviewing doctor's sign-off.
func (s *Service) VerifyScanReport(ctx context.Context, doctorID, id uuid.UUID) (*ScanReport, error) {
	sr, err := s.scans.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sr.IsVerified = true
	sr.VerifiedBy = &doctorID
	if err := s.scans.Update(ctx, sr); err != nil {
		return nil, err
	}
	return sr, nil
}

func (s *Service) DeleteScanReport(ctx context.Context, id uuid.UUID) error {
	return s.scans.Delete(ctx, id)
}

// -- Lab reports --

func (s *Service) CreateLabReport(ctx context.Context, creatorID uuid.UUID, creatorIsDoctor bool, l *LabReport) error {
	if l.PatientID == uuid.Nil {
		return invalidf("patient_id is required")
	}
	if l.TestType == "" || l.TestName == "" {
		return invalidf("test_type and test_name are required")
	}
	if l.ResultStatus == "" {
		l.ResultStatus = StatusPending
	}
	if !ValidResultStatus(l.ResultStatus) {
		return invalidf("invalid result status %q", l.ResultStatus)
	}
	if l.TestDate.IsZero() {
		l.TestDate = s.now()
	}
	if creatorIsDoctor {
		l.DoctorID = &creatorID
	} else {
		l.AssignedTo = &creatorID
	}
	l.CreatedBy = &creatorID

	if err := s.labs.Create(ctx, l); err != nil {
		return err
	}
	s.log.Info().
		Str("lab_report_id", l.ID.String()).
		Str("patient_id", l.PatientID.String()).
		Str("test", l.TestName).
		Msg("lab report created")
	return nil
}

func (s *Service) GetLabReport(ctx context.Context, id uuid.UUID) (*LabReport, error) {
	return s.labs.FindByID(ctx, id)
}

func (s *Service) ListLabReports(ctx context.Context) ([]*LabReport, error) {
	return s.labs.List(ctx)
}

func (s *Service) ListLabReportsByPatient(ctx context.Context, patientID uuid.UUID) ([]*LabReport, error) {
	return s.labs.ListByPatient(ctx, patientID)
}

func (s *Service) UpdateLabReport(ctx context.Context, id uuid.UUID, l *LabReport) (*LabReport, error) {
	existing, err := s.labs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.ID = existing.ID
	l.PatientID = existing.PatientID
	l.IsBilled = existing.IsBilled
	if l.ResultStatus == "" {
		l.ResultStatus = existing.ResultStatus
	}
	if !ValidResultStatus(l.ResultStatus) {
		return nil, invalidf("invalid result status %q", l.ResultStatus)
	}
	if err := s.labs.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) VerifyLabReport(ctx context.Context, doctorID, id uuid.UUID) (*LabReport, error) {
	l, err := s.labs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.IsVerified = true
	l.VerifiedBy = &doctorID
	if err := s.labs.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) DeleteLabReport(ctx context.Context, id uuid.UUID) error {
	return s.labs.Delete(ctx, id)
}

// LabDashboardStats summarizes lab workload by result status.
func (s *Service) LabDashboardStats(ctx context.Context) (map[string]int, error) {
	counts, err := s.labs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	counts["total"] = total
	return counts, nil
}
