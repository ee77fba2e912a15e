package staff

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/auth"
)

var (
	ErrNotFound   = errors.New("staff: not found")
	ErrEmailTaken = errors.New("staff: email already registered for this role")
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// login responses cannot be used for user enumeration.
	ErrInvalidCredentials = errors.New("staff: invalid credentials")
)

// Roles returns the credential collections in resolver priority order.
func Roles() []string {
	return []string{
		auth.RoleAdmin,
		auth.RoleDoctor,
		auth.RoleReceptionist,
		auth.RoleScanner,
		auth.RoleBiller,
		auth.RoleLab,
	}
}

// ValidRole reports whether role names one of the six collections.
func ValidRole(role string) bool {
	for _, r := range Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// Availability is a doctor's weekly consultation window.
type Availability struct {
	Days []string `json:"days"`
	From string   `json:"from"`
	To   string   `json:"to"`
}

// Rating is the aggregate patient rating for a doctor.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// DoctorProfile carries the doctor-specific credential fields.
type DoctorProfile struct {
	Specialization     string       `json:"specialization"`
	Phone              *string      `json:"phone,omitempty"`
	Gender             *string      `json:"gender,omitempty"`
	Age                *int         `json:"age,omitempty"`
	Experience         int          `json:"experience"`
	Qualification      *string      `json:"qualification,omitempty"`
	RegistrationNumber *string      `json:"registration_number,omitempty"`
	ClinicAddress      *string      `json:"clinic_address,omitempty"`
	ConsultationFee    float64      `json:"consultation_fee"`
	Availability       Availability `json:"availability"`
	ProfileImage       *string      `json:"profile_image,omitempty"`
	Bio                *string      `json:"bio,omitempty"`
	IsActive           bool         `json:"is_active"`
	Rating             Rating       `json:"rating"`
}

// Credential is a record in one of the six role collections. The Role tag
// selects the collection; Department is set for scanners and lab
// technicians, Doctor for doctors. Email is unique within its own
// collection only.
type Credential struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Role         string         `db:"role" json:"role"`
	Department   *string        `db:"department" json:"department,omitempty"`
	Doctor       *DoctorProfile `json:"doctor,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Public returns the client-safe subset used in login responses.
func (c *Credential) Public() map[string]interface{} {
	return map[string]interface{}{
		"id":    c.ID,
		"name":  c.Name,
		"email": c.Email,
		"role":  c.Role,
	}
}
