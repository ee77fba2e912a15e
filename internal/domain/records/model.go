package records

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("records: not found")
	ErrAccessDenied = errors.New("records: access denied")
)

// Result statuses for scan and lab reports.
const (
	StatusPending  = "Pending"
	StatusNormal   = "Normal"
	StatusAbnormal = "Abnormal"
	StatusCritical = "Critical"
)

// ValidResultStatus reports whether s is one of the known result statuses.
func ValidResultStatus(s string) bool {
	switch s {
	case StatusPending, StatusNormal, StatusAbnormal, StatusCritical:
		return true
	}
	return false
}

// Vitals captured during a clinical examination. Values are free-form
// strings as entered at the bedside ("98.6 F", "120/80").
type Vitals struct {
	Temperature     string `json:"temperature,omitempty"`
	BloodPressure   string `json:"blood_pressure,omitempty"`
	PulseRate       string `json:"pulse_rate,omitempty"`
	RespiratoryRate string `json:"respiratory_rate,omitempty"`
	OxygenLevel     string `json:"oxygen_level,omitempty"`
	Weight          string `json:"weight,omitempty"`
}

// Report is a doctor's clinical examination report.
type Report struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`

	ReportTitle   string `json:"report_title"`
	ReportDetails string `json:"report_details"`

	Symptoms            []string `json:"symptoms"`
	PhysicalExamination string   `json:"physical_examination,omitempty"`
	ClinicalFindings    string   `json:"clinical_findings,omitempty"`
	Diagnosis           string   `json:"diagnosis,omitempty"`
	Vitals              Vitals   `json:"vitals"`

	AdvisedInvestigations []string   `json:"advised_investigations"`
	TreatmentAdvice       string     `json:"treatment_advice,omitempty"`
	LifestyleAdvice       string     `json:"lifestyle_advice,omitempty"`
	FollowUpDate          *time.Time `json:"follow_up_date,omitempty"`
	AdditionalNotes       string     `json:"additional_notes,omitempty"`

	// DoctorSignature is a data URL or base64 image captured at sign-off.
	DoctorSignature string `json:"doctor_signature,omitempty"`
	IsFinal         bool   `json:"is_final"`
	Date            time.Time `json:"date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Medicine is one line of a prescription.
type Medicine struct {
	Name            string `json:"name"`
	Dosage          string `json:"dosage"`
	Frequency       string `json:"frequency"`
	Duration        string `json:"duration"`
	PartOfDay       string `json:"part_of_day,omitempty"`
	MealInstruction string `json:"meal_instruction,omitempty"`
}

// Prescription issued by a doctor. Creating one opens (or joins) the
// patient's unpaid bill.
type Prescription struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	PrescriptionNo string    `json:"prescription_no"`

	Symptoms   string     `json:"symptoms,omitempty"`
	Diagnosis  string     `json:"diagnosis,omitempty"`
	Department string     `json:"department,omitempty"`
	Medicines  []Medicine `json:"medicines"`

	Notes        string     `json:"notes,omitempty"`
	FollowUpDate *time.Time `json:"follow_up_date,omitempty"`
	BillID       *uuid.UUID `json:"bill_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScanReport is an imaging or diagnostic scan performed by a scanner
// technician. IsBilled flips to true the first time the report is included
// in a bill, which keeps it out of later unbilled lookups.
type ScanReport struct {
	ID         uuid.UUID  `json:"id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	DoctorID   *uuid.UUID `json:"doctor_id,omitempty"`
	AssignedTo *uuid.UUID `json:"assigned_to,omitempty"`

	Type        string `json:"type"`
	ScanName    string `json:"scan_name"`
	Description string `json:"description,omitempty"`
	Indication  string `json:"indication,omitempty"`

	Impression   string `json:"impression,omitempty"`
	Findings     string `json:"findings,omitempty"`
	ResultStatus string `json:"result_status"`

	PDFFile *string `json:"pdf_file,omitempty"`

	LabName        string `json:"lab_name,omitempty"`
	TechnicianName string `json:"technician_name,omitempty"`

	ScanDate            time.Time  `json:"scan_date"`
	ReportGeneratedDate *time.Time `json:"report_generated_date,omitempty"`

	Cost float64 `json:"cost"`

	CreatedBy  *uuid.UUID `json:"created_by,omitempty"`
	IsVerified bool       `json:"is_verified"`
	VerifiedBy *uuid.UUID `json:"verified_by,omitempty"`
	IsBilled   bool       `json:"is_billed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LabReport is a laboratory test result.
type LabReport struct {
	ID         uuid.UUID  `json:"id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	DoctorID   *uuid.UUID `json:"doctor_id,omitempty"`
	AssignedTo *uuid.UUID `json:"assigned_to,omitempty"`

	TestType    string `json:"test_type"`
	TestName    string `json:"test_name"`
	Description string `json:"description,omitempty"`

	ResultDetails  string `json:"result_details,omitempty"`
	ResultStatus   string `json:"result_status"`
	ReferenceRange string `json:"reference_range,omitempty"`

	PDFFile *string `json:"pdf_file,omitempty"`

	LabName        string `json:"lab_name,omitempty"`
	TechnicianName string `json:"technician_name,omitempty"`

	TestDate            time.Time  `json:"test_date"`
	ReportGeneratedDate *time.Time `json:"report_generated_date,omitempty"`

	Cost float64 `json:"cost"`

	CreatedBy  *uuid.UUID `json:"created_by,omitempty"`
	IsVerified bool       `json:"is_verified"`
	VerifiedBy *uuid.UUID `json:"verified_by,omitempty"`
	IsBilled   bool       `json:"is_billed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
