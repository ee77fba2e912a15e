package patient

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("patient: not found")

// Patient types.
const (
	TypeOPD = "OPD"
	TypeIPD = "IPD"
)

type Address struct {
	Line1   string `json:"line1,omitempty"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Pincode string `json:"pincode,omitempty"`
}

type EmergencyContact struct {
	Name     string `json:"name,omitempty"`
	Relation string `json:"relation,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// IPDDetails is populated for admitted patients.
type IPDDetails struct {
	Ward          string     `json:"ward,omitempty"`
	RoomNo        string     `json:"room_no,omitempty"`
	BedNo         string     `json:"bed_no,omitempty"`
	AdmissionDate *time.Time `json:"admission_date,omitempty"`
	DischargeDate *time.Time `json:"discharge_date,omitempty"`
}

// OPDDetails tracks outpatient visits.
type OPDDetails struct {
	VisitCount    int        `json:"visit_count"`
	LastVisitDate *time.Time `json:"last_visit_date,omitempty"`
}

type Patient struct {
	ID     uuid.UUID  `json:"id"`
	Name   string     `json:"name"`
	Age    *int       `json:"age,omitempty"`
	Gender *string    `json:"gender,omitempty"`
	DOB    *time.Time `json:"dob,omitempty"`
	Phone  string     `json:"phone"`
	Email  *string    `json:"email,omitempty"`

	Address Address `json:"address"`

	BloodGroup         *string  `json:"blood_group,omitempty"`
	Allergies          []string `json:"allergies"`
	ExistingConditions []string `json:"existing_conditions"`
	CurrentMedications []string `json:"current_medications"`

	EmergencyContact EmergencyContact `json:"emergency_contact"`

	PatientType string      `json:"patient_type"`
	IPDDetails  *IPDDetails `json:"ipd_details,omitempty"`
	OPDDetails  OPDDetails  `json:"opd_details"`

	AssignedDoctor *uuid.UUID `json:"assigned_doctor,omitempty"`
	MRN            string     `json:"mrn"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the trimmed shape used in dashboard listings.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Age         *int      `json:"age,omitempty"`
	Gender      *string   `json:"gender,omitempty"`
	PatientType string    `json:"patient_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// DashboardStats is the receptionist dashboard payload.
type DashboardStats struct {
	TotalPatients    int       `json:"total_patients"`
	TodayPatients    int       `json:"today_patients"`
	AvailableDoctors int       `json:"available_doctors"`
	RecentPatients   []Summary `json:"recent_patients"`
}
