package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/records"
	"github.com/hms/hms/internal/domain/staff"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/document"
)

type memBillRepo struct {
	bills map[uuid.UUID]*Bill
	order []uuid.UUID
}

func newMemBillRepo() *memBillRepo {
	return &memBillRepo{bills: map[uuid.UUID]*Bill{}}
}

func (r *memBillRepo) Create(_ context.Context, b *Bill) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now()
	cp := *b
	r.bills[b.ID] = &cp
	r.order = append(r.order, b.ID)
	return nil
}

func (r *memBillRepo) FindByID(_ context.Context, id uuid.UUID) (*Bill, error) {
	b, ok := r.bills[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBillRepo) List(_ context.Context) ([]*Bill, error) {
	var out []*Bill
	for i := len(r.order) - 1; i >= 0; i-- {
		cp := *r.bills[r.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memBillRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Bill, error) {
	var out []*Bill
	for i := len(r.order) - 1; i >= 0; i-- {
		if b := r.bills[r.order[i]]; b.PatientID == patientID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memBillRepo) LatestByPatient(_ context.Context, patientID uuid.UUID) (*Bill, error) {
	for i := len(r.order) - 1; i >= 0; i-- {
		if b := r.bills[r.order[i]]; b.PatientID == patientID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memBillRepo) FindOpenByPatient(_ context.Context, patientID uuid.UUID) (*Bill, error) {
	for i := len(r.order) - 1; i >= 0; i-- {
		if b := r.bills[r.order[i]]; b.PatientID == patientID && !b.Paid {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memBillRepo) Update(_ context.Context, b *Bill) error {
	if _, ok := r.bills[b.ID]; !ok {
		return ErrNotFound
	}
	cp := *b
	cp.CreatedAt = r.bills[b.ID].CreatedAt
	r.bills[b.ID] = &cp
	return nil
}

func (r *memBillRepo) UpdatePDFPath(_ context.Context, id uuid.UUID, path string) error {
	b, ok := r.bills[id]
	if !ok {
		return ErrNotFound
	}
	b.PDFFile = &path
	return nil
}

func (r *memBillRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.bills[id]; !ok {
		return ErrNotFound
	}
	delete(r.bills, id)
	return nil
}

func (r *memBillRepo) Stats(_ context.Context) (*Stats, error) {
	s := &Stats{}
	for _, b := range r.bills {
		s.TotalBills++
		if b.Paid {
			s.PaidBills++
		}
		s.TotalRevenue += b.Amount
	}
	return s, nil
}

type stubPatients struct {
	byID map[uuid.UUID]*patient.Patient
}

func (s *stubPatients) FindByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type stubDoctors struct {
	byID map[uuid.UUID]*staff.Credential
}

func (s *stubDoctors) FindDoctor(_ context.Context, id uuid.UUID) (*staff.Credential, error) {
	d, ok := s.byID[id]
	if !ok {
		return nil, staff.ErrNotFound
	}
	return d, nil
}

func (s *stubDoctors) ListDoctors(_ context.Context) ([]*staff.Credential, error) {
	var out []*staff.Credential
	for _, d := range s.byID {
		out = append(out, d)
	}
	return out, nil
}

type stubPrescriptions struct {
	byID   map[uuid.UUID]*records.Prescription
	latest map[uuid.UUID]*records.Prescription
}

func (s *stubPrescriptions) FindByID(_ context.Context, id uuid.UUID) (*records.Prescription, error) {
	rx, ok := s.byID[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	return rx, nil
}

func (s *stubPrescriptions) LatestByPatient(_ context.Context, patientID uuid.UUID) (*records.Prescription, error) {
	rx, ok := s.latest[patientID]
	if !ok {
		return nil, records.ErrNotFound
	}
	return rx, nil
}

type stubReports struct {
	byID map[uuid.UUID]*records.Report
}

func (s *stubReports) FindByID(_ context.Context, id uuid.UUID) (*records.Report, error) {
	rep, ok := s.byID[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	return rep, nil
}

type stubScans struct {
	byID   map[uuid.UUID]*records.ScanReport
	marked [][]uuid.UUID
}

func (s *stubScans) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*records.ScanReport, error) {
	var out []*records.ScanReport
	for _, id := range ids {
		if sr, ok := s.byID[id]; ok {
			out = append(out, sr)
		}
	}
	return out, nil
}

func (s *stubScans) MarkBilled(_ context.Context, ids []uuid.UUID) error {
	s.marked = append(s.marked, ids)
	for _, id := range ids {
		if sr, ok := s.byID[id]; ok {
			sr.IsBilled = true
		}
	}
	return nil
}

func (s *stubScans) UnbilledByPatient(_ context.Context, patientID uuid.UUID) ([]*records.ScanReport, error) {
	var out []*records.ScanReport
	for _, sr := range s.byID {
		if sr.PatientID == patientID && !sr.IsBilled {
			out = append(out, sr)
		}
	}
	return out, nil
}

// stubRenderer writes deterministic bytes derived from the block count, so
// cache tests can compare file contents across calls.
type stubRenderer struct {
	calls int
}

func (r *stubRenderer) Render(blocks []document.Block, w io.Writer) error {
	r.calls++
	_, err := fmt.Fprintf(w, "%%PDF-stub blocks=%d", len(blocks))
	return err
}

type sentDoc struct {
	to, mediaID, filename, caption string
}

type stubSender struct {
	uploads []string
	sent    []sentDoc
	failUp  error
}

func (s *stubSender) UploadMedia(_ context.Context, filePath string) (string, error) {
	if s.failUp != nil {
		return "", s.failUp
	}
	s.uploads = append(s.uploads, filePath)
	return fmt.Sprintf("media-%d", len(s.uploads)), nil
}

func (s *stubSender) SendDocument(_ context.Context, to, mediaID, filename, caption string) error {
	s.sent = append(s.sent, sentDoc{to: to, mediaID: mediaID, filename: filename, caption: caption})
	return nil
}

type billFixture struct {
	svc      *Service
	repo     *memBillRepo
	patients *stubPatients
	doctors  *stubDoctors
	rxs      *stubPrescriptions
	reports  *stubReports
	scans    *stubScans
	renderer *stubRenderer
	sender   *stubSender

	patientID uuid.UUID
	doctorID  uuid.UUID
}

func newBillFixture(t *testing.T) *billFixture {
	t.Helper()

	f := &billFixture{
		repo:      newMemBillRepo(),
		patients:  &stubPatients{byID: map[uuid.UUID]*patient.Patient{}},
		doctors:   &stubDoctors{byID: map[uuid.UUID]*staff.Credential{}},
		rxs:       &stubPrescriptions{byID: map[uuid.UUID]*records.Prescription{}, latest: map[uuid.UUID]*records.Prescription{}},
		reports:   &stubReports{byID: map[uuid.UUID]*records.Report{}},
		scans:     &stubScans{byID: map[uuid.UUID]*records.ScanReport{}},
		renderer:  &stubRenderer{},
		sender:    &stubSender{},
		patientID: uuid.New(),
		doctorID:  uuid.New(),
	}

	f.patients.byID[f.patientID] = &patient.Patient{
		ID:          f.patientID,
		Name:        "Asha Rao",
		Phone:       "+91 98765 43210",
		PatientType: patient.TypeOPD,
		MRN:         "MRN-000123",
	}
	f.doctors.byID[f.doctorID] = &staff.Credential{
		ID:     f.doctorID,
		Name:   "Meera Iyer",
		Role:   auth.RoleDoctor,
		Doctor: &staff.DoctorProfile{Specialization: "Cardiology"},
	}

	f.svc = NewService(Deps{
		Repo:          f.repo,
		Patients:      f.patients,
		Doctors:       f.doctors,
		Prescriptions: f.rxs,
		Reports:       f.reports,
		Scans:         f.scans,
		Renderer:      f.renderer,
		Sender:        f.sender,
		PDFDir:        t.TempDir(),
		HospitalName:  "Test Hospital",
		Logger:        zerolog.Nop(),
	})
	return f
}

func (f *billFixture) validInput() CreateBillInput {
	return CreateBillInput{
		PatientID: f.patientID,
		DoctorID:  f.doctorID,
		Treatment: "Cardiac Checkup",
		Items: []BillItem{
			{Name: "Consultation", Charge: 500, Qty: 1},
			{Name: "ECG", Charge: 250, Qty: 2},
		},
	}
}

func TestCreateBill_AmountAlwaysComputedFromItems(t *testing.T) {
	f := newBillFixture(t)

	bill, err := f.svc.CreateBill(context.Background(), f.validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bill.Amount != 1000 {
		t.Errorf("expected amount 1000, got %v", bill.Amount)
	}
	if !bill.Paid {
		t.Errorf("expected bill to default to paid")
	}
	if bill.PaymentMode != PayCash {
		t.Errorf("expected default payment mode Cash, got %q", bill.PaymentMode)
	}

	stored, err := f.repo.FindByID(context.Background(), bill.ID)
	if err != nil {
		t.Fatalf("bill not persisted: %v", err)
	}
	if stored.Amount != 1000 {
		t.Errorf("persisted amount %v, want 1000", stored.Amount)
	}
}

func TestCreateBill_Validation(t *testing.T) {
	f := newBillFixture(t)

	tests := []struct {
		name   string
		mutate func(*CreateBillInput)
	}{
		{"missing patient", func(in *CreateBillInput) { in.PatientID = uuid.Nil }},
		{"missing doctor", func(in *CreateBillInput) { in.DoctorID = uuid.Nil }},
		{"missing treatment", func(in *CreateBillInput) { in.Treatment = "" }},
		{"no items", func(in *CreateBillInput) { in.Items = nil }},
		{"item without name", func(in *CreateBillInput) { in.Items[0].Name = "" }},
		{"zero quantity", func(in *CreateBillInput) { in.Items[0].Qty = 0 }},
		{"negative charge", func(in *CreateBillInput) { in.Items[0].Charge = -1 }},
		{"bad payment mode", func(in *CreateBillInput) { in.PaymentMode = "Cheque" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.validInput()
			tt.mutate(&in)
			_, err := f.svc.CreateBill(context.Background(), in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestCreateBill_MarksScanReportsBilled(t *testing.T) {
	f := newBillFixture(t)
	scanID := uuid.New()
	f.scans.byID[scanID] = &records.ScanReport{
		ID:        scanID,
		PatientID: f.patientID,
		Type:      "MRI",
		ScanName:  "Brain MRI",
		Cost:      3000,
	}

	in := f.validInput()
	in.ScanReportIDs = []uuid.UUID{scanID}
	bill, err := f.svc.CreateBill(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.scans.marked) != 1 || len(f.scans.marked[0]) != 1 || f.scans.marked[0][0] != scanID {
		t.Fatalf("expected one MarkBilled call for %s, got %v", scanID, f.scans.marked)
	}
	if !f.scans.byID[scanID].IsBilled {
		t.Errorf("scan report not flagged billed")
	}
	unbilled, _ := f.scans.UnbilledByPatient(context.Background(), f.patientID)
	if len(unbilled) != 0 {
		t.Errorf("billed scan still listed as unbilled")
	}
	if len(bill.ScanReportIDs) != 1 {
		t.Errorf("bill lost its scan link: %v", bill.ScanReportIDs)
	}
}

func TestCreateBill_RejectsForeignScanReport(t *testing.T) {
	f := newBillFixture(t)
	scanID := uuid.New()
	f.scans.byID[scanID] = &records.ScanReport{ID: scanID, PatientID: uuid.New()}

	in := f.validInput()
	in.ScanReportIDs = []uuid.UUID{scanID}
	_, err := f.svc.CreateBill(context.Background(), in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(f.scans.marked) != 0 {
		t.Errorf("rejected bill must not mark scans billed")
	}
}

func TestOpenForPrescription_CreatesConsultationBill(t *testing.T) {
	f := newBillFixture(t)
	rxID := uuid.New()

	billID, err := f.svc.OpenForPrescription(context.Background(), f.patientID, f.doctorID, rxID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bill, err := f.repo.FindByID(context.Background(), billID)
	if err != nil {
		t.Fatalf("bill not persisted: %v", err)
	}
	if bill.Treatment != "General Consultation" {
		t.Errorf("expected General Consultation, got %q", bill.Treatment)
	}
	if bill.Amount != 0 || bill.Paid {
		t.Errorf("expected zero-amount unpaid bill, got amount=%v paid=%v", bill.Amount, bill.Paid)
	}
	if bill.PrescriptionID == nil || *bill.PrescriptionID != rxID {
		t.Errorf("prescription not linked: %v", bill.PrescriptionID)
	}
}

func TestOpenForPrescription_ReusesUnpaidBill(t *testing.T) {
	f := newBillFixture(t)

	in := f.validInput()
	unpaid := false
	in.Paid = &unpaid
	existing, err := f.svc.CreateBill(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rxID := uuid.New()
	billID, err := f.svc.OpenForPrescription(context.Background(), f.patientID, f.doctorID, rxID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if billID != existing.ID {
		t.Fatalf("expected the open bill %s to be reused, got %s", existing.ID, billID)
	}

	bill, _ := f.repo.FindByID(context.Background(), billID)
	if bill.PrescriptionID == nil || *bill.PrescriptionID != rxID {
		t.Errorf("prescription not linked on reused bill")
	}
	if bill.Amount != existing.Amount {
		t.Errorf("reuse must not change the amount: got %v", bill.Amount)
	}
}

func TestUpdateBill_RecomputesAmountFromNewItems(t *testing.T) {
	f := newBillFixture(t)
	bill, err := f.svc.CreateBill(context.Background(), f.validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := f.svc.UpdateBill(context.Background(), bill.ID, UpdateBillInput{
		Items: []BillItem{{Name: "Consultation", Charge: 500, Qty: 3}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Amount != 1500 {
		t.Errorf("expected recomputed amount 1500, got %v", updated.Amount)
	}

	// A payment-only update leaves the amount alone.
	paid := false
	updated, err = f.svc.UpdateBill(context.Background(), bill.ID, UpdateBillInput{Paid: &paid})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Amount != 1500 || updated.Paid {
		t.Errorf("partial update corrupted bill: amount=%v paid=%v", updated.Amount, updated.Paid)
	}
}

func TestEnsureDocument_ReusesExistingFile(t *testing.T) {
	f := newBillFixture(t)
	bill, err := f.svc.CreateBill(context.Background(), f.validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := f.svc.EnsureDocument(context.Background(), bill.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstBytes, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("pdf not written: %v", err)
	}
	if f.renderer.calls != 1 {
		t.Fatalf("expected one render, got %d", f.renderer.calls)
	}

	second, err := f.svc.EnsureDocument(context.Background(), bill.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != first {
		t.Errorf("cached path changed: %q vs %q", first, second)
	}
	if f.renderer.calls != 1 {
		t.Errorf("cached document was re-rendered")
	}
	secondBytes, _ := os.ReadFile(second)
	if string(firstBytes) != string(secondBytes) {
		t.Errorf("document bytes changed between calls")
	}

	stored, _ := f.repo.FindByID(context.Background(), bill.ID)
	if stored.PDFFile == nil || *stored.PDFFile != first {
		t.Errorf("pdf path not persisted: %v", stored.PDFFile)
	}
	if filepath.Base(first) != fmt.Sprintf("bill_%s.pdf", bill.ID) {
		t.Errorf("unexpected file name %q", filepath.Base(first))
	}
}

func TestEnsureDocument_RegeneratesWhenFileVanished(t *testing.T) {
	f := newBillFixture(t)
	bill, err := f.svc.CreateBill(context.Background(), f.validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := f.svc.EnsureDocument(context.Background(), bill.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove pdf: %v", err)
	}

	again, err := f.svc.EnsureDocument(context.Background(), bill.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.renderer.calls != 2 {
		t.Errorf("expected a second render after the file vanished, got %d", f.renderer.calls)
	}
	if _, err := os.Stat(again); err != nil {
		t.Errorf("regenerated file missing: %v", err)
	}
}

func TestSendToPatient_DeliversLatestBill(t *testing.T) {
	f := newBillFixture(t)
	if _, err := f.svc.CreateBill(context.Background(), f.validInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	latest, err := f.svc.CreateBill(context.Background(), f.validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.svc.SendToPatient(context.Background(), f.patientID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.sender.uploads) != 1 || len(f.sender.sent) != 1 {
		t.Fatalf("expected one upload and one send, got %d/%d", len(f.sender.uploads), len(f.sender.sent))
	}
	msg := f.sender.sent[0]
	if msg.to != "919876543210" {
		t.Errorf("phone not normalized: %q", msg.to)
	}
	if msg.filename != fmt.Sprintf("bill_%s.pdf", latest.ID) {
		t.Errorf("expected the latest bill to be sent, got %q", msg.filename)
	}
	if msg.mediaID == "" {
		t.Errorf("media id from upload not passed to send")
	}
	if _, err := os.Stat(f.sender.uploads[0]); err != nil {
		t.Errorf("uploaded file does not exist: %v", err)
	}
}

func TestSendToPatient_MissingPhone(t *testing.T) {
	f := newBillFixture(t)
	f.patients.byID[f.patientID].Phone = ""
	if _, err := f.svc.CreateBill(context.Background(), f.validInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := f.svc.SendToPatient(context.Background(), f.patientID)
	if !errors.Is(err, ErrNoPhone) {
		t.Errorf("expected ErrNoPhone, got %v", err)
	}
	if len(f.sender.uploads) != 0 {
		t.Errorf("no upload should happen without a phone number")
	}
}

func TestSendToPatient_NoBills(t *testing.T) {
	f := newBillFixture(t)
	err := f.svc.SendToPatient(context.Background(), f.patientID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSendToPatient_DeliveryDisabled(t *testing.T) {
	f := newBillFixture(t)
	f.svc.sender = nil
	if _, err := f.svc.CreateBill(context.Background(), f.validInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := f.svc.SendToPatient(context.Background(), f.patientID)
	if !errors.Is(err, ErrDeliveryDisabled) {
		t.Errorf("expected ErrDeliveryDisabled, got %v", err)
	}
}

func TestDeleteBill_UnlinksDocument(t *testing.T) {
	f := newBillFixture(t)
	bill, err := f.svc.CreateBill(context.Background(), f.validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path, err := f.svc.EnsureDocument(context.Background(), bill.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.svc.DeleteBill(context.Background(), bill.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.repo.FindByID(context.Background(), bill.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("bill still present after delete")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("pdf file not unlinked: %v", err)
	}
}

func TestAssemble_IncludesLinkedSections(t *testing.T) {
	f := newBillFixture(t)
	rxID := uuid.New()
	f.rxs.byID[rxID] = &records.Prescription{
		ID:             rxID,
		PatientID:      f.patientID,
		DoctorID:       f.doctorID,
		PrescriptionNo: "RX-000042",
		Diagnosis:      "Hypertension",
		Medicines: []records.Medicine{
			{Name: "Amlodipine", Dosage: "5mg", Frequency: "OD", Duration: "30 days"},
		},
	}
	scanID := uuid.New()
	f.scans.byID[scanID] = &records.ScanReport{
		ID:           scanID,
		PatientID:    f.patientID,
		Type:         "MRI",
		ScanName:     "Brain MRI",
		ResultStatus: records.StatusNormal,
		ScanDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Cost:         3000,
	}

	in := f.validInput()
	in.PrescriptionID = &rxID
	in.ScanReportIDs = []uuid.UUID{scanID}
	bill, err := f.svc.CreateBill(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := f.svc.assemble(context.Background(), bill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Patient.Name != "Asha Rao" || data.Patient.MRN != "MRN-000123" {
		t.Errorf("patient section wrong: %+v", data.Patient)
	}
	if data.Doctor.Name != "Meera Iyer" || data.Doctor.Specialization != "Cardiology" {
		t.Errorf("doctor section wrong: %+v", data.Doctor)
	}
	if data.Prescription == nil || data.Prescription.Number != "RX-000042" {
		t.Errorf("prescription section missing: %+v", data.Prescription)
	}
	if data.Scan == nil || data.Scan.ScanName != "Brain MRI" {
		t.Errorf("scan section missing: %+v", data.Scan)
	}
	if len(data.Items) != 2 || data.Amount != 1000 {
		t.Errorf("invoice wrong: items=%d amount=%v", len(data.Items), data.Amount)
	}
}

func TestAssemble_MapsContactAndProfileDetails(t *testing.T) {
	f := newBillFixture(t)

	p := f.patients.byID[f.patientID]
	p.Address = patient.Address{Line1: "12 MG Road", City: "Pune", State: "Maharashtra", Pincode: "411001"}
	p.EmergencyContact = patient.EmergencyContact{Name: "Ravi Rao", Relation: "Spouse", Phone: "9876500000"}
	p.Allergies = []string{"Penicillin"}
	p.ExistingConditions = []string{"Hypertension"}
	p.CurrentMedications = []string{"Amlodipine"}

	bio := "Interventional cardiologist"
	d := f.doctors.byID[f.doctorID]
	d.Doctor.Availability = staff.Availability{Days: []string{"Mon", "Wed"}, From: "09:00", To: "17:00"}
	d.Doctor.Bio = &bio
	d.Doctor.Rating = staff.Rating{Average: 4.5, Count: 12}

	reportID := uuid.New()
	f.reports.byID[reportID] = &records.Report{
		ID:                    reportID,
		PatientID:             f.patientID,
		DoctorID:              f.doctorID,
		ReportTitle:           "Cardiac Evaluation",
		Diagnosis:             "Stage 1 hypertension",
		Symptoms:              []string{"Headache", "Dizziness"},
		AdvisedInvestigations: []string{"Lipid profile", "Echo"},
	}

	in := f.validInput()
	in.ReportID = &reportID
	bill, err := f.svc.CreateBill(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := f.svc.assemble(context.Background(), bill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if data.Patient.Address != "12 MG Road, Pune, Maharashtra, 411001" {
		t.Errorf("address = %q", data.Patient.Address)
	}
	if data.Patient.EmergencyContact != "Ravi Rao (Spouse), 9876500000" {
		t.Errorf("emergency contact = %q", data.Patient.EmergencyContact)
	}
	if len(data.Patient.Allergies) != 1 || data.Patient.Allergies[0] != "Penicillin" {
		t.Errorf("allergies = %v", data.Patient.Allergies)
	}
	if len(data.Patient.Conditions) != 1 || len(data.Patient.Medications) != 1 {
		t.Errorf("conditions=%v medications=%v", data.Patient.Conditions, data.Patient.Medications)
	}
	if data.Doctor.Availability != "Mon, Wed 09:00-17:00" {
		t.Errorf("availability = %q", data.Doctor.Availability)
	}
	if data.Doctor.Bio != bio {
		t.Errorf("bio = %q", data.Doctor.Bio)
	}
	if data.Doctor.RatingAverage != 4.5 || data.Doctor.RatingCount != 12 {
		t.Errorf("rating = %v (%d)", data.Doctor.RatingAverage, data.Doctor.RatingCount)
	}
	if data.Report == nil {
		t.Fatal("report section missing")
	}
	if len(data.Report.Symptoms) != 2 || data.Report.Symptoms[0] != "Headache" {
		t.Errorf("symptoms = %v", data.Report.Symptoms)
	}
	if len(data.Report.Investigations) != 2 || data.Report.Investigations[1] != "Echo" {
		t.Errorf("investigations = %v", data.Report.Investigations)
	}
}

func TestAssemble_DeletedDoctorDegradesGracefully(t *testing.T) {
	f := newBillFixture(t)
	bill, err := f.svc.CreateBill(context.Background(), f.validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	delete(f.doctors.byID, f.doctorID)

	data, err := f.svc.assemble(context.Background(), bill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Doctor.Name != "N/A" {
		t.Errorf("expected N/A doctor, got %+v", data.Doctor)
	}
}
