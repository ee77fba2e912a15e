package document

import (
	"bytes"
	"testing"
	"time"
)

func sampleBill() BillData {
	admitted := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	return BillData{
		BillNo:       "b-123",
		GeneratedOn:  time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		HospitalName: "City Care Hospital",
		Patient: PatientInfo{
			Name: "Asha Rao", MRN: "MRN-123456", Age: "34", Gender: "Female",
			Phone: "9876543210", PatientType: "IPD",
			Address:          "12 MG Road, Pune, Maharashtra, 411001",
			EmergencyContact: "Ravi Rao (Spouse), 9876500000",
			Allergies:        []string{"Penicillin"},
			Conditions:       []string{"Hypertension"},
			Medications:      []string{"Amlodipine"},
			Ward:             "General", RoomNo: "12", BedNo: "3", AdmissionDate: &admitted,
		},
		Doctor: DoctorInfo{
			Name: "Mehta", Specialization: "Cardiology", RegistrationNo: "MH-998",
			Availability:  "Mon, Wed, Fri 09:00-17:00",
			Bio:           "Interventional cardiologist",
			RatingAverage: 4.5, RatingCount: 12,
		},
		Prescription: &PrescriptionInfo{
			Number:    "RX-123456",
			Diagnosis: "Hypertension",
			Medicines: []MedicineLine{
				{Name: "Amlodipine", Dosage: "5mg", Frequency: "1x daily", Duration: "30 days", PartOfDay: "Morning", MealInstruction: "After Food"},
			},
		},
		Report: &ReportInfo{
			Diagnosis:      "Stage 1 hypertension",
			Symptoms:       []string{"Headache", "Dizziness"},
			Investigations: []string{"Lipid profile", "Echo"},
			Vitals:         []Pair{{Key: "BP", Value: "140/90"}},
		},
		Scan: &ScanInfo{
			Type: "ECG", ScanName: "Resting ECG", ResultStatus: "Normal",
			ScanDate: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), Cost: 500,
		},
		Treatment: "Cardiac consultation",
		Items: []InvoiceItem{
			{Name: "Consultation", UnitCharge: 500, Quantity: 1},
			{Name: "Resting ECG", UnitCharge: 500, Quantity: 1},
		},
		Amount:      1000,
		Paid:        true,
		PaymentMode: "UPI",
	}
}

func headings(blocks []Block) []string {
	var out []string
	for _, b := range blocks {
		if h, ok := b.(Heading); ok {
			out = append(out, h.Text)
		}
	}
	return out
}

func TestBuildBill_SectionOrder(t *testing.T) {
	blocks := BuildBill(sampleBill())

	got := headings(blocks)
	want := []string{
		"City Care Hospital",
		"Patient Details",
		"Consulting Doctor",
		"Prescription",
		"Clinical Report",
		"Scan Summary",
		"Invoice",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d headings, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("heading %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestBuildBill_MissingSectionsRenderPlaceholders(t *testing.T) {
	d := sampleBill()
	d.Prescription = nil
	d.Report = nil
	d.Scan = nil

	got := headings(BuildBill(d))
	want := []string{
		"City Care Hospital",
		"Patient Details",
		"Consulting Doctor",
		"Prescription",
		"Clinical Report",
		"Scan Summary",
		"Invoice",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d headings, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("heading %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	var buf bytes.Buffer
	if err := NewRenderer(A4()).Render(BuildBill(d), &buf); err != nil {
		t.Fatalf("render without nested records should not fail: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("empty PDF output")
	}
}

func keyValueKeys(blocks []Block) map[string]string {
	out := map[string]string{}
	for _, b := range blocks {
		if kv, ok := b.(KeyValues); ok {
			for _, p := range kv.Pairs {
				if p.Key != "" {
					out[p.Key] = p.Value
				}
			}
		}
	}
	return out
}

func TestBuildBill_SectionDetailFields(t *testing.T) {
	keys := keyValueKeys(BuildBill(sampleBill()))

	want := map[string]string{
		"Address":                "12 MG Road, Pune, Maharashtra, 411001",
		"Emergency Contact":      "Ravi Rao (Spouse), 9876500000",
		"Allergies":              "Penicillin",
		"Conditions":             "Hypertension",
		"Medications":            "Amlodipine",
		"Availability":           "Mon, Wed, Fri 09:00-17:00",
		"Bio":                    "Interventional cardiologist",
		"Rating":                 "4.5 (12 ratings)",
		"Symptoms":               "Headache, Dizziness",
		"Advised Investigations": "Lipid profile, Echo",
	}
	for k, v := range want {
		got, ok := keys[k]
		if !ok {
			t.Errorf("missing %q in document key-value rows", k)
			continue
		}
		if got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestBuildBill_EmptyPrescriptionPlaceholder(t *testing.T) {
	d := sampleBill()
	d.Prescription = nil

	blocks := BuildBill(d)
	var medTable *Table
	seen := false
	for _, b := range blocks {
		if h, ok := b.(Heading); ok {
			seen = h.Text == "Prescription"
			continue
		}
		if t2, ok := b.(Table); ok && seen {
			medTable = &t2
			break
		}
	}
	if medTable == nil {
		t.Fatal("expected a medicine table even without a prescription")
	}
	if len(medTable.Rows) != 1 || medTable.Rows[0][0] != "No medicines prescribed" {
		t.Errorf("expected placeholder row, got %v", medTable.Rows)
	}
}

func TestBuildBill_InvoiceTotals(t *testing.T) {
	blocks := BuildBill(sampleBill())

	var invoice *Table
	for _, b := range blocks {
		if t2, ok := b.(Table); ok && len(t2.Headers) == 4 && t2.Headers[0] == "Item" {
			invoice = &t2
		}
	}
	if invoice == nil {
		t.Fatal("invoice table not found")
	}

	last := invoice.Rows[len(invoice.Rows)-1]
	if last[0] != "Total" || last[3] != "1000.00" {
		t.Errorf("unexpected total row: %v", last)
	}
	if invoice.Rows[0][1] != "500.00" {
		t.Errorf("charges must carry two decimals, got %q", invoice.Rows[0][1])
	}
}

func TestBuildBill_OPDSubBlock(t *testing.T) {
	d := sampleBill()
	last := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d.Patient.PatientType = "OPD"
	d.Patient.VisitCount = 4
	d.Patient.LastVisitDate = &last

	blocks := BuildBill(d)
	var pairs []Pair
	for i, b := range blocks {
		if h, ok := b.(Heading); ok && h.Text == "Patient Details" {
			pairs = blocks[i+1].(KeyValues).Pairs
			break
		}
	}

	hasVisit, hasWard := false, false
	for _, p := range pairs {
		if p.Key == "Visit No" && p.Value == "4" {
			hasVisit = true
		}
		if p.Key == "Ward" {
			hasWard = true
		}
	}
	if !hasVisit {
		t.Error("expected OPD visit number in patient section")
	}
	if hasWard {
		t.Error("IPD fields must not appear for an OPD patient")
	}
}

func TestMoney(t *testing.T) {
	for in, want := range map[float64]string{0: "0.00", 1234.5: "1234.50", 99.999: "100.00"} {
		if got := Money(in); got != want {
			t.Errorf("Money(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestRender_Deterministic(t *testing.T) {
	r := NewRenderer(A4())
	blocks := BuildBill(sampleBill())

	var first, second bytes.Buffer
	if err := r.Render(blocks, &first); err != nil {
		t.Fatalf("first render: %v", err)
	}
	if err := r.Render(blocks, &second); err != nil {
		t.Fatalf("second render: %v", err)
	}

	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("identical input must produce identical PDF bytes")
	}
	if first.Len() == 0 {
		t.Error("empty PDF output")
	}
	if !bytes.HasPrefix(first.Bytes(), []byte("%PDF")) {
		t.Error("output does not look like a PDF")
	}
}

func TestRender_BadSignatureFallsBack(t *testing.T) {
	d := sampleBill()
	d.Report.SignatureB64 = "data:image/png;base64,!!!not-base64!!!"

	var buf bytes.Buffer
	if err := NewRenderer(A4()).Render(BuildBill(d), &buf); err != nil {
		t.Fatalf("render with bad signature should not fail: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("empty PDF output")
	}
}
