package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BillData carries everything the bill document shows. Optional sections
// are nil pointers; the builder still emits every section in the fixed
// order and fills absent values with placeholder rows, so the printed
// bill always has the same shape.
type BillData struct {
	BillNo      string
	GeneratedOn time.Time

	HospitalName    string
	HospitalTagline string

	Patient      PatientInfo
	Doctor       DoctorInfo
	Prescription *PrescriptionInfo
	Report       *ReportInfo
	Scan         *ScanInfo

	Treatment   string
	Items       []InvoiceItem
	Amount      float64
	Paid        bool
	PaymentMode string
}

type PatientInfo struct {
	Name        string
	MRN         string
	Age         string
	Gender      string
	Phone       string
	PatientType string

	Address          string
	EmergencyContact string
	Allergies        []string
	Conditions       []string
	Medications      []string

	// OPD fields
	VisitCount    int
	LastVisitDate *time.Time

	// IPD fields
	Ward          string
	RoomNo        string
	BedNo         string
	AdmissionDate *time.Time
}

type DoctorInfo struct {
	Name           string
	Specialization string
	RegistrationNo string
	Qualification  string
	Availability   string
	Bio            string
	RatingAverage  float64
	RatingCount    int
}

type PrescriptionInfo struct {
	Number    string
	Diagnosis string
	Medicines []MedicineLine
}

type MedicineLine struct {
	Name            string
	Dosage          string
	Frequency       string
	Duration        string
	PartOfDay       string
	MealInstruction string
}

type ReportInfo struct {
	Title          string
	Diagnosis      string
	Symptoms       []string
	Findings       string
	Advice         string
	Investigations []string
	Vitals         []Pair
	SignatureB64   string
}

type ScanInfo struct {
	Type         string
	ScanName     string
	Impression   string
	ResultStatus string
	ScanDate     time.Time
	Cost         float64
}

// Money formats an amount with two decimals, the way it appears on the
// printed invoice.
func Money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatDate(t time.Time) string {
	return t.Format("02 Jan 2006")
}

// BuildBill assembles the fixed section sequence of a hospital bill:
// header, patient profile, doctor profile, prescription, clinical report,
// scan summary and the itemized invoice.
func BuildBill(d BillData) []Block {
	var blocks []Block

	name := d.HospitalName
	if name == "" {
		name = "Hospital Invoice"
	}
	blocks = append(blocks, Heading{Text: name, Level: 1})
	if d.HospitalTagline != "" {
		blocks = append(blocks, KeyValues{Pairs: []Pair{{Key: "", Value: d.HospitalTagline}}})
	}
	blocks = append(blocks,
		KeyValues{Pairs: []Pair{
			{Key: "Bill No", Value: d.BillNo},
			{Key: "Date", Value: formatDate(d.GeneratedOn)},
		}},
		Spacer{Height: 4},
	)

	blocks = append(blocks, patientSection(d.Patient)...)
	blocks = append(blocks, doctorSection(d.Doctor)...)
	blocks = append(blocks, prescriptionSection(d.Prescription)...)
	blocks = append(blocks, reportSection(d.Report)...)
	blocks = append(blocks, scanSection(d.Scan)...)
	blocks = append(blocks, invoiceSection(d)...)

	return blocks
}

func patientSection(p PatientInfo) []Block {
	pairs := []Pair{
		{Key: "Name", Value: p.Name},
		{Key: "MRN", Value: p.MRN},
	}
	if p.Age != "" {
		pairs = append(pairs, Pair{Key: "Age", Value: p.Age})
	}
	if p.Gender != "" {
		pairs = append(pairs, Pair{Key: "Gender", Value: p.Gender})
	}
	pairs = append(pairs, Pair{Key: "Phone", Value: p.Phone})
	pairs = append(pairs,
		Pair{Key: "Address", Value: p.Address},
		Pair{Key: "Emergency Contact", Value: p.EmergencyContact},
		Pair{Key: "Allergies", Value: strings.Join(p.Allergies, ", ")},
		Pair{Key: "Conditions", Value: strings.Join(p.Conditions, ", ")},
		Pair{Key: "Medications", Value: strings.Join(p.Medications, ", ")},
	)
	pairs = append(pairs, Pair{Key: "Type", Value: p.PatientType})

	switch p.PatientType {
	case "IPD":
		if p.Ward != "" {
			pairs = append(pairs, Pair{Key: "Ward", Value: p.Ward})
		}
		if p.RoomNo != "" || p.BedNo != "" {
			pairs = append(pairs, Pair{Key: "Room / Bed", Value: p.RoomNo + " / " + p.BedNo})
		}
		if p.AdmissionDate != nil {
			pairs = append(pairs, Pair{Key: "Admitted", Value: formatDate(*p.AdmissionDate)})
		}
	default:
		pairs = append(pairs, Pair{Key: "Visit No", Value: strconv.Itoa(p.VisitCount)})
		if p.LastVisitDate != nil {
			pairs = append(pairs, Pair{Key: "Last Visit", Value: formatDate(*p.LastVisitDate)})
		}
	}

	return []Block{
		Heading{Text: "Patient Details", Level: 2},
		KeyValues{Pairs: pairs},
		Spacer{Height: 3},
	}
}

func doctorSection(d DoctorInfo) []Block {
	pairs := []Pair{
		{Key: "Doctor", Value: "Dr. " + d.Name},
		{Key: "Specialization", Value: d.Specialization},
	}
	if d.Qualification != "" {
		pairs = append(pairs, Pair{Key: "Qualification", Value: d.Qualification})
	}
	if d.RegistrationNo != "" {
		pairs = append(pairs, Pair{Key: "Reg. No", Value: d.RegistrationNo})
	}
	pairs = append(pairs, Pair{Key: "Availability", Value: d.Availability})
	pairs = append(pairs, Pair{Key: "Bio", Value: d.Bio})
	rating := ""
	if d.RatingCount > 0 {
		rating = fmt.Sprintf("%.1f (%d ratings)", d.RatingAverage, d.RatingCount)
	}
	pairs = append(pairs, Pair{Key: "Rating", Value: rating})
	return []Block{
		Heading{Text: "Consulting Doctor", Level: 2},
		KeyValues{Pairs: pairs},
		Spacer{Height: 3},
	}
}

func prescriptionSection(p *PrescriptionInfo) []Block {
	blocks := []Block{Heading{Text: "Prescription", Level: 2}}

	if p == nil || len(p.Medicines) == 0 {
		rows := [][]string{{"No medicines prescribed", "", "", "", ""}}
		blocks = append(blocks, Table{
			Headers: []string{"Medicine", "Dosage", "Frequency", "Duration", "Instructions"},
			Rows:    rows,
			Widths:  []float64{0.3, 0.15, 0.2, 0.15, 0.2},
		}, Spacer{Height: 3})
		return blocks
	}

	pairs := []Pair{{Key: "Rx No", Value: p.Number}}
	if p.Diagnosis != "" {
		pairs = append(pairs, Pair{Key: "Diagnosis", Value: p.Diagnosis})
	}
	blocks = append(blocks, KeyValues{Pairs: pairs})

	rows := make([][]string, 0, len(p.Medicines))
	for _, m := range p.Medicines {
		instr := m.PartOfDay
		if m.MealInstruction != "" {
			if instr != "" {
				instr += ", "
			}
			instr += m.MealInstruction
		}
		rows = append(rows, []string{m.Name, m.Dosage, m.Frequency, m.Duration, instr})
	}
	blocks = append(blocks, Table{
		Headers: []string{"Medicine", "Dosage", "Frequency", "Duration", "Instructions"},
		Rows:    rows,
		Widths:  []float64{0.3, 0.15, 0.2, 0.15, 0.2},
	}, Spacer{Height: 3})
	return blocks
}

func reportSection(r *ReportInfo) []Block {
	if r == nil {
		r = &ReportInfo{}
	}
	title := r.Title
	if title == "" {
		title = "Clinical Report"
	}
	blocks := []Block{Heading{Text: title, Level: 2}}

	pairs := []Pair{
		{Key: "Diagnosis", Value: r.Diagnosis},
		{Key: "Symptoms", Value: strings.Join(r.Symptoms, ", ")},
		{Key: "Findings", Value: r.Findings},
		{Key: "Advice", Value: r.Advice},
		{Key: "Advised Investigations", Value: strings.Join(r.Investigations, ", ")},
	}
	pairs = append(pairs, r.Vitals...)
	blocks = append(blocks, KeyValues{Pairs: pairs})

	if r.SignatureB64 != "" {
		blocks = append(blocks, Image{
			B64:     r.SignatureB64,
			Caption: "Doctor's signature",
			Width:   40,
			Height:  15,
		})
	}
	blocks = append(blocks, Spacer{Height: 3})
	return blocks
}

func scanSection(s *ScanInfo) []Block {
	if s == nil {
		pairs := []Pair{
			{Key: "Scan", Value: ""},
			{Key: "Date", Value: ""},
			{Key: "Result", Value: ""},
		}
		return []Block{
			Heading{Text: "Scan Summary", Level: 2},
			KeyValues{Pairs: pairs},
			Spacer{Height: 3},
		}
	}
	pairs := []Pair{
		{Key: "Scan", Value: fmt.Sprintf("%s (%s)", s.ScanName, s.Type)},
		{Key: "Date", Value: formatDate(s.ScanDate)},
		{Key: "Result", Value: s.ResultStatus},
	}
	if s.Impression != "" {
		pairs = append(pairs, Pair{Key: "Impression", Value: s.Impression})
	}
	return []Block{
		Heading{Text: "Scan Summary", Level: 2},
		KeyValues{Pairs: pairs},
		Spacer{Height: 3},
	}
}

func invoiceSection(d BillData) []Block {
	blocks := []Block{Heading{Text: "Invoice", Level: 2}}

	if d.Treatment != "" {
		blocks = append(blocks, KeyValues{Pairs: []Pair{{Key: "Treatment", Value: d.Treatment}}})
	}

	rows := make([][]string, 0, len(d.Items)+1)
	for _, it := range d.Items {
		rows = append(rows, []string{
			it.Name,
			Money(it.UnitCharge),
			strconv.Itoa(it.Quantity),
			Money(it.UnitCharge * float64(it.Quantity)),
		})
	}
	rows = append(rows, []string{"Total", "", "", Money(d.Amount)})

	blocks = append(blocks, Table{
		Headers: []string{"Item", "Charge", "Qty", "Amount"},
		Rows:    rows,
		Widths:  []float64{0.5, 0.18, 0.12, 0.2},
	})

	status := "UNPAID"
	if d.Paid {
		status = "PAID"
	}
	pairs := []Pair{{Key: "Payment Status", Value: status}}
	if d.PaymentMode != "" {
		pairs = append(pairs, Pair{Key: "Payment Mode", Value: d.PaymentMode})
	}
	blocks = append(blocks, KeyValues{Pairs: pairs})
	return blocks
}

// InvoiceItem is one chargeable line on the bill.
type InvoiceItem struct {
	Name       string
	UnitCharge float64
	Quantity   int
}
