package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("billing: bill not found")
	// ErrNoPhone means the bill cannot be delivered because the patient
	// record has no phone number.
	ErrNoPhone = errors.New("billing: patient phone number missing")
	// ErrDeliveryDisabled means no messaging provider is configured.
	ErrDeliveryDisabled = errors.New("billing: whatsapp delivery not configured")
)

// Payment modes accepted at the billing desk.
const (
	PayCash = "Cash"
	PayCard = "Card"
	PayUPI  = "UPI"
)

func ValidPaymentMode(m string) bool {
	switch m {
	case PayCash, PayCard, PayUPI:
		return true
	}
	return false
}

// BillItem is one chargeable line. The stored amount of a bill is always
// recomputed from its items; client-supplied totals are ignored.
type BillItem struct {
	Name   string  `json:"name"`
	Charge float64 `json:"charge"`
	Qty    int     `json:"qty"`
}

// ComputeAmount sums charge times quantity over all items.
func ComputeAmount(items []BillItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Charge * float64(it.Qty)
	}
	return sum
}

// Bill ties a patient's chargeable encounter together: the treating
// doctor, the linked clinical artifacts and the itemized charges. PDFFile
// points at the rendered document once one has been generated.
type Bill struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`

	PrescriptionID *uuid.UUID  `json:"prescription_id,omitempty"`
	ReportID       *uuid.UUID  `json:"report_id,omitempty"`
	ScanReportIDs  []uuid.UUID `json:"scan_report_ids"`

	Treatment string     `json:"treatment"`
	Items     []BillItem `json:"bill_items"`
	Amount    float64    `json:"amount"`

	PDFFile *string `json:"pdf_file,omitempty"`

	Paid        bool   `json:"paid"`
	PaymentMode string `json:"payment_mode"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats is the billing roll-up shown on the admin dashboard.
type Stats struct {
	TotalBills   int     `json:"total_bills"`
	PaidBills    int     `json:"paid_bills"`
	TotalRevenue float64 `json:"total_revenue"`
}
