package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

// PGRepository stores patients in Postgres. The nested address, emergency
// contact and stay-detail objects live in jsonb columns; the simple string
// lists use text arrays.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) q(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, name, age, gender, dob, phone, email,
		address, blood_group, allergies, existing_conditions, current_medications,
		emergency_contact, patient_type, ipd_details, opd_details,
		assigned_doctor, mrn, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO patients (id, name, age, gender, dob, phone, email,
			address, blood_group, allergies, existing_conditions, current_medications,
			emergency_contact, patient_type, ipd_details, opd_details,
			assigned_doctor, mrn)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		p.ID, p.Name, p.Age, p.Gender, p.DOB, p.Phone, p.Email,
		p.Address, p.BloodGroup, p.Allergies, p.ExistingConditions, p.CurrentMedications,
		p.EmergencyContact, p.PatientType, p.IPDDetails, p.OPDDetails,
		p.AssignedDoctor, p.MRN)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	p := &Patient{}
	err := row.Scan(&p.ID, &p.Name, &p.Age, &p.Gender, &p.DOB, &p.Phone, &p.Email,
		&p.Address, &p.BloodGroup, &p.Allergies, &p.ExistingConditions, &p.CurrentMedications,
		&p.EmergencyContact, &p.PatientType, &p.IPDDetails, &p.OPDDetails,
		&p.AssignedDoctor, &p.MRN, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return p, nil
}

func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

func (r *PGRepository) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.q(ctx).QueryRow(ctx, `SELECT count(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patients
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Patient, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE assigned_doctor = $1 ORDER BY created_at DESC`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list patients by doctor: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepository) Update(ctx context.Context, p *Patient) error {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE patients SET name = $2, age = $3, gender = $4, dob = $5,
			phone = $6, email = $7, address = $8, blood_group = $9,
			allergies = $10, existing_conditions = $11, current_medications = $12,
			emergency_contact = $13, patient_type = $14, ipd_details = $15,
			opd_details = $16, assigned_doctor = $17, updated_at = now()
		WHERE id = $1`,
		p.ID, p.Name, p.Age, p.Gender, p.DOB, p.Phone, p.Email,
		p.Address, p.BloodGroup, p.Allergies, p.ExistingConditions, p.CurrentMedications,
		p.EmergencyContact, p.PatientType, p.IPDDetails, p.OPDDetails, p.AssignedDoctor)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q(ctx).QueryRow(ctx, `SELECT count(*) FROM patients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return n, nil
}

func (r *PGRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := r.q(ctx).QueryRow(ctx,
		`SELECT count(*) FROM patients WHERE created_at >= $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recent patients: %w", err)
	}
	return n, nil
}

func (r *PGRepository) Recent(ctx context.Context, limit int) ([]Summary, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, name, age, gender, patient_type, created_at
		FROM patients ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent patients: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.Age, &s.Gender, &s.PatientType, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan patient summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
