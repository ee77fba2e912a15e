package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/records"
	"github.com/hms/hms/internal/domain/staff"
	"github.com/hms/hms/internal/platform/document"
	"github.com/hms/hms/internal/platform/whatsapp"
)

// PatientSource resolves patients for billing and delivery.
type PatientSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// DoctorSource resolves doctors for document assembly and the billing-desk
// dropdowns.
type DoctorSource interface {
	FindDoctor(ctx context.Context, id uuid.UUID) (*staff.Credential, error)
	ListDoctors(ctx context.Context) ([]*staff.Credential, error)
}

// PrescriptionSource and ReportSource expose the clinical artifacts a bill
// links to. The records repositories satisfy them directly.
type PrescriptionSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*records.Prescription, error)
	LatestByPatient(ctx context.Context, patientID uuid.UUID) (*records.Prescription, error)
}

type ReportSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*records.Report, error)
}

type ScanSource interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*records.ScanReport, error)
	MarkBilled(ctx context.Context, ids []uuid.UUID) error
	UnbilledByPatient(ctx context.Context, patientID uuid.UUID) ([]*records.ScanReport, error)
}

// Renderer draws an assembled block list into a PDF stream.
type Renderer interface {
	Render(blocks []document.Block, w io.Writer) error
}

// MediaSender is the two-step document delivery provider.
type MediaSender interface {
	UploadMedia(ctx context.Context, filePath string) (string, error)
	SendDocument(ctx context.Context, to, mediaID, filename, caption string) error
}

// TxRunner executes fn atomically. Wiring passes db.WithTx; tests use a
// passthrough.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Passthrough runs fn without transactional guarantees.
func Passthrough(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Deps bundles the service collaborators.
type Deps struct {
	Repo          Repository
	Patients      PatientSource
	Doctors       DoctorSource
	Prescriptions PrescriptionSource
	Reports       ReportSource
	Scans         ScanSource
	Renderer      Renderer
	Sender        MediaSender
	RunTx         TxRunner
	PDFDir        string
	HospitalName  string
	Logger        zerolog.Logger
}

type Service struct {
	repo          Repository
	patients      PatientSource
	doctors       DoctorSource
	prescriptions PrescriptionSource
	reports       ReportSource
	scans         ScanSource
	renderer      Renderer
	sender        MediaSender
	runTx         TxRunner
	pdfDir        string
	hospitalName  string
	log           zerolog.Logger
	now           func() time.Time
}

func NewService(d Deps) *Service {
	if d.RunTx == nil {
		d.RunTx = Passthrough
	}
	if d.HospitalName == "" {
		d.HospitalName = "Hospital Invoice"
	}
	return &Service{
		repo:          d.Repo,
		patients:      d.Patients,
		doctors:       d.Doctors,
		prescriptions: d.Prescriptions,
		reports:       d.Reports,
		scans:         d.Scans,
		renderer:      d.Renderer,
		sender:        d.Sender,
		runTx:         d.RunTx,
		pdfDir:        d.PDFDir,
		hospitalName:  d.HospitalName,
		log:           d.Logger,
		now:           time.Now,
	}
}

// CreateBillInput is the billing-desk payload. Amount is not accepted; it
// is derived from the items.
type CreateBillInput struct {
	PatientID      uuid.UUID   `json:"patient_id"`
	DoctorID       uuid.UUID   `json:"doctor_id"`
	Treatment      string      `json:"treatment"`
	Items          []BillItem  `json:"bill_items"`
	PrescriptionID *uuid.UUID  `json:"prescription_id,omitempty"`
	ReportID       *uuid.UUID  `json:"report_id,omitempty"`
	ScanReportIDs  []uuid.UUID `json:"scan_report_ids,omitempty"`
	Paid           *bool       `json:"paid,omitempty"`
	PaymentMode    string      `json:"payment_mode,omitempty"`
}

// CreateBill validates the input, recomputes the total and writes the bill
// together with the scan report billed flags in one transaction, so a
// failure never leaves a report marked billed without a bill.
func (s *Service) CreateBill(ctx context.Context, in CreateBillInput) (*Bill, error) {
	if in.PatientID == uuid.Nil || in.DoctorID == uuid.Nil {
		return nil, invalidf("patient_id and doctor_id are required")
	}
	if in.Treatment == "" {
		return nil, invalidf("treatment is required")
	}
	if len(in.Items) == 0 {
		return nil, invalidf("at least one bill item is required")
	}
	for i, it := range in.Items {
		if it.Name == "" || it.Qty <= 0 {
			return nil, invalidf("bill item %d needs a name and a positive quantity", i+1)
		}
		if it.Charge < 0 {
			return nil, invalidf("bill item %d has a negative charge", i+1)
		}
	}
	if in.PaymentMode == "" {
		in.PaymentMode = PayCash
	}
	if !ValidPaymentMode(in.PaymentMode) {
		return nil, invalidf("payment mode must be Cash, Card or UPI")
	}

	if len(in.ScanReportIDs) > 0 {
		found, err := s.scans.FindByIDs(ctx, in.ScanReportIDs)
		if err != nil {
			return nil, err
		}
		if len(found) != len(in.ScanReportIDs) {
			return nil, invalidf("unknown scan report in bill")
		}
		for _, sr := range found {
			if sr.PatientID != in.PatientID {
				return nil, invalidf("scan report %s belongs to a different patient", sr.ID)
			}
		}
	}

	paid := true
	if in.Paid != nil {
		paid = *in.Paid
	}

	bill := &Bill{
		PatientID:      in.PatientID,
		DoctorID:       in.DoctorID,
		PrescriptionID: in.PrescriptionID,
		ReportID:       in.ReportID,
		ScanReportIDs:  in.ScanReportIDs,
		Treatment:      in.Treatment,
		Items:          in.Items,
		Amount:         ComputeAmount(in.Items),
		Paid:           paid,
		PaymentMode:    in.PaymentMode,
	}

	err := s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, bill); err != nil {
			return err
		}
		if len(in.ScanReportIDs) == 0 {
			return nil
		}
		return s.scans.MarkBilled(ctx, in.ScanReportIDs)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("bill_id", bill.ID.String()).
		Str("patient_id", bill.PatientID.String()).
		Float64("amount", bill.Amount).
		Msg("bill created")
	return bill, nil
}

// OpenForPrescription finds the patient's unpaid bill or opens a zero-amount
// consultation bill, then attaches the prescription. It backs the implicit
// bill creation that happens when a doctor prescribes.
func (s *Service) OpenForPrescription(ctx context.Context, patientID, doctorID, prescriptionID uuid.UUID) (uuid.UUID, error) {
	var billID uuid.UUID
	err := s.runTx(ctx, func(ctx context.Context) error {
		bill, err := s.repo.FindOpenByPatient(ctx, patientID)
		if errors.Is(err, ErrNotFound) {
			bill = &Bill{
				PatientID:   patientID,
				DoctorID:    doctorID,
				Treatment:   "General Consultation",
				Items:       []BillItem{},
				Amount:      0,
				Paid:        false,
				PaymentMode: PayCash,
			}
			if err := s.repo.Create(ctx, bill); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		bill.PrescriptionID = &prescriptionID
		if err := s.repo.Update(ctx, bill); err != nil {
			return err
		}
		billID = bill.ID
		return nil
	})
	return billID, err
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Bill, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Bill, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

type UpdateBillInput struct {
	Treatment   *string    `json:"treatment,omitempty"`
	Items       []BillItem `json:"bill_items,omitempty"`
	Paid        *bool      `json:"paid,omitempty"`
	PaymentMode *string    `json:"payment_mode,omitempty"`
}

// UpdateBill applies a partial update. Changing the items recomputes the
// amount and invalidates nothing else; the stored PDF is left in place and
// regenerated lazily only if the file has gone missing.
func (s *Service) UpdateBill(ctx context.Context, id uuid.UUID, in UpdateBillInput) (*Bill, error) {
	bill, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Treatment != nil {
		if *in.Treatment == "" {
			return nil, invalidf("treatment cannot be empty")
		}
		bill.Treatment = *in.Treatment
	}
	if in.Items != nil {
		if len(in.Items) == 0 {
			return nil, invalidf("at least one bill item is required")
		}
		bill.Items = in.Items
		bill.Amount = ComputeAmount(in.Items)
	}
	if in.Paid != nil {
		bill.Paid = *in.Paid
	}
	if in.PaymentMode != nil {
		if !ValidPaymentMode(*in.PaymentMode) {
			return nil, invalidf("payment mode must be Cash, Card or UPI")
		}
		bill.PaymentMode = *in.PaymentMode
	}

	if err := s.repo.Update(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// DeleteBill removes the bill and best-effort unlinks its rendered PDF. A
// failed unlink is logged, not surfaced; the bill row is already gone.
func (s *Service) DeleteBill(ctx context.Context, id uuid.UUID) error {
	bill, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if bill.PDFFile != nil && *bill.PDFFile != "" {
		if err := os.Remove(*bill.PDFFile); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", *bill.PDFFile).Msg("failed to remove bill pdf")
		}
	}
	s.log.Info().Str("bill_id", id.String()).Msg("bill deleted")
	return nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

// EnsureDocument returns the path of the bill's rendered PDF, generating it
// when the bill has never been rendered or the cached file has vanished
// from disk. A bill whose items changed after rendering keeps serving the
// stale document until the file is removed; re-rendering on content change
// is deliberately not attempted.
func (s *Service) EnsureDocument(ctx context.Context, billID uuid.UUID) (string, error) {
	bill, err := s.repo.FindByID(ctx, billID)
	if err != nil {
		return "", err
	}

	if bill.PDFFile != nil && *bill.PDFFile != "" {
		if _, err := os.Stat(*bill.PDFFile); err == nil {
			return *bill.PDFFile, nil
		}
	}

	data, err := s.assemble(ctx, bill)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.pdfDir, 0o755); err != nil {
		return "", fmt.Errorf("create pdf dir: %w", err)
	}
	path := filepath.Join(s.pdfDir, fmt.Sprintf("bill_%s.pdf", bill.ID))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create pdf file: %w", err)
	}
	if err := s.renderer.Render(document.BuildBill(data), f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close pdf file: %w", err)
	}

	if err := s.repo.UpdatePDFPath(ctx, bill.ID, path); err != nil {
		return "", err
	}

	s.log.Info().Str("bill_id", bill.ID.String()).Str("path", path).Msg("bill pdf generated")
	return path, nil
}

// SendToPatient delivers the patient's latest bill over WhatsApp: make sure
// the document exists, upload it to the provider's media store, then send
// the document message.
func (s *Service) SendToPatient(ctx context.Context, patientID uuid.UUID) error {
	if s.sender == nil {
		return ErrDeliveryDisabled
	}

	bill, err := s.repo.LatestByPatient(ctx, patientID)
	if err != nil {
		return err
	}

	p, err := s.patients.FindByID(ctx, bill.PatientID)
	if err != nil {
		return err
	}
	if p.Phone == "" {
		return ErrNoPhone
	}
	to, err := whatsapp.NormalizePhone(p.Phone)
	if err != nil {
		return ErrNoPhone
	}

	path, err := s.EnsureDocument(ctx, bill.ID)
	if err != nil {
		return err
	}

	mediaID, err := s.sender.UploadMedia(ctx, path)
	if err != nil {
		return fmt.Errorf("deliver bill: %w", err)
	}
	filename := fmt.Sprintf("bill_%s.pdf", bill.ID)
	if err := s.sender.SendDocument(ctx, to, mediaID, filename, "Your Hospital Bill"); err != nil {
		return fmt.Errorf("deliver bill: %w", err)
	}

	s.log.Info().
		Str("bill_id", bill.ID.String()).
		Str("patient_id", patientID.String()).
		Msg("bill sent to patient")
	return nil
}

// LatestPrescription backs the billing-desk dropdown.
func (s *Service) LatestPrescription(ctx context.Context, patientID uuid.UUID) (*records.Prescription, error) {
	return s.prescriptions.LatestByPatient(ctx, patientID)
}

// UnbilledScanReports lists scans not yet included in any bill.
func (s *Service) UnbilledScanReports(ctx context.Context, patientID uuid.UUID) ([]*records.ScanReport, error) {
	return s.scans.UnbilledByPatient(ctx, patientID)
}

// Doctors lists doctors for the billing-desk dropdown.
func (s *Service) Doctors(ctx context.Context) ([]*staff.Credential, error) {
	return s.doctors.ListDoctors(ctx)
}

// assemble gathers everything the bill document shows. The patient is
// required; the doctor and clinical sections degrade gracefully when their
// records have been deleted since the bill was cut.
func (s *Service) assemble(ctx context.Context, bill *Bill) (document.BillData, error) {
	p, err := s.patients.FindByID(ctx, bill.PatientID)
	if err != nil {
		return document.BillData{}, fmt.Errorf("assemble bill %s: %w", bill.ID, err)
	}

	data := document.BillData{
		BillNo:       bill.ID.String(),
		GeneratedOn:  s.now(),
		HospitalName: s.hospitalName,
		Patient:      patientInfo(p),
		Treatment:    bill.Treatment,
		Amount:       bill.Amount,
		Paid:         bill.Paid,
		PaymentMode:  bill.PaymentMode,
	}
	for _, it := range bill.Items {
		data.Items = append(data.Items, document.InvoiceItem{
			Name:       it.Name,
			UnitCharge: it.Charge,
			Quantity:   it.Qty,
		})
	}

	doc, err := s.doctors.FindDoctor(ctx, bill.DoctorID)
	switch {
	case err == nil:
		data.Doctor = doctorInfo(doc)
	case errors.Is(err, staff.ErrNotFound):
		data.Doctor = document.DoctorInfo{Name: "N/A"}
	default:
		return document.BillData{}, fmt.Errorf("assemble bill %s: %w", bill.ID, err)
	}

	if bill.PrescriptionID != nil {
		rx, err := s.prescriptions.FindByID(ctx, *bill.PrescriptionID)
		if err == nil {
			data.Prescription = prescriptionInfo(rx)
		} else if !errors.Is(err, records.ErrNotFound) {
			return document.BillData{}, fmt.Errorf("assemble bill %s: %w", bill.ID, err)
		}
	}

	if bill.ReportID != nil {
		rep, err := s.reports.FindByID(ctx, *bill.ReportID)
		if err == nil {
			data.Report = reportInfo(rep)
		} else if !errors.Is(err, records.ErrNotFound) {
			return document.BillData{}, fmt.Errorf("assemble bill %s: %w", bill.ID, err)
		}
	}

	if len(bill.ScanReportIDs) > 0 {
		scans, err := s.scans.FindByIDs(ctx, bill.ScanReportIDs)
		if err != nil {
			return document.BillData{}, fmt.Errorf("assemble bill %s: %w", bill.ID, err)
		}
		// Only the first scan is summarized on the bill.
		if len(scans) > 0 {
			first := scans[0]
			data.Scan = &document.ScanInfo{
				Type:         first.Type,
				ScanName:     first.ScanName,
				Impression:   first.Impression,
				ResultStatus: first.ResultStatus,
				ScanDate:     first.ScanDate,
				Cost:         first.Cost,
			}
		}
	}

	return data, nil
}

func patientInfo(p *patient.Patient) document.PatientInfo {
	info := document.PatientInfo{
		Name:             p.Name,
		MRN:              p.MRN,
		Phone:            p.Phone,
		PatientType:      p.PatientType,
		VisitCount:       p.OPDDetails.VisitCount,
		Address:          formatAddress(p.Address),
		EmergencyContact: formatContact(p.EmergencyContact),
		Allergies:        p.Allergies,
		Conditions:       p.ExistingConditions,
		Medications:      p.CurrentMedications,
	}
	if p.Age != nil {
		info.Age = strconv.Itoa(*p.Age)
	}
	if p.Gender != nil {
		info.Gender = *p.Gender
	}
	info.LastVisitDate = p.OPDDetails.LastVisitDate
	if p.IPDDetails != nil {
		info.Ward = p.IPDDetails.Ward
		info.RoomNo = p.IPDDetails.RoomNo
		info.BedNo = p.IPDDetails.BedNo
		info.AdmissionDate = p.IPDDetails.AdmissionDate
	}
	return info
}

func doctorInfo(c *staff.Credential) document.DoctorInfo {
	info := document.DoctorInfo{Name: c.Name}
	if c.Doctor != nil {
		info.Specialization = c.Doctor.Specialization
		if c.Doctor.Qualification != nil {
			info.Qualification = *c.Doctor.Qualification
		}
		if c.Doctor.RegistrationNumber != nil {
			info.RegistrationNo = *c.Doctor.RegistrationNumber
		}
		info.Availability = formatAvailability(c.Doctor.Availability)
		if c.Doctor.Bio != nil {
			info.Bio = *c.Doctor.Bio
		}
		info.RatingAverage = c.Doctor.Rating.Average
		info.RatingCount = c.Doctor.Rating.Count
	}
	return info
}

func formatAddress(a patient.Address) string {
	parts := make([]string, 0, 5)
	for _, s := range []string{a.Line1, a.Line2, a.City, a.State, a.Pincode} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func formatContact(c patient.EmergencyContact) string {
	if c.Name == "" {
		return ""
	}
	out := c.Name
	if c.Relation != "" {
		out += " (" + c.Relation + ")"
	}
	if c.Phone != "" {
		out += ", " + c.Phone
	}
	return out
}

func formatAvailability(a staff.Availability) string {
	days := strings.Join(a.Days, ", ")
	window := ""
	if a.From != "" || a.To != "" {
		window = a.From + "-" + a.To
	}
	switch {
	case days != "" && window != "":
		return days + " " + window
	case days != "":
		return days
	default:
		return window
	}
}

func prescriptionInfo(rx *records.Prescription) *document.PrescriptionInfo {
	info := &document.PrescriptionInfo{
		Number:    rx.PrescriptionNo,
		Diagnosis: rx.Diagnosis,
	}
	for _, m := range rx.Medicines {
		info.Medicines = append(info.Medicines, document.MedicineLine{
			Name:            m.Name,
			Dosage:          m.Dosage,
			Frequency:       m.Frequency,
			Duration:        m.Duration,
			PartOfDay:       m.PartOfDay,
			MealInstruction: m.MealInstruction,
		})
	}
	return info
}

func reportInfo(rep *records.Report) *document.ReportInfo {
	info := &document.ReportInfo{
		Title:          rep.ReportTitle,
		Diagnosis:      rep.Diagnosis,
		Symptoms:       rep.Symptoms,
		Findings:       rep.ClinicalFindings,
		Advice:         rep.TreatmentAdvice,
		Investigations: rep.AdvisedInvestigations,
		SignatureB64:   rep.DoctorSignature,
	}
	vitals := []document.Pair{
		{Key: "Temperature", Value: rep.Vitals.Temperature},
		{Key: "Blood Pressure", Value: rep.Vitals.BloodPressure},
		{Key: "Pulse", Value: rep.Vitals.PulseRate},
		{Key: "SpO2", Value: rep.Vitals.OxygenLevel},
	}
	for _, v := range vitals {
		if v.Value != "" {
			info.Vitals = append(info.Vitals, v)
		}
	}
	return info
}
