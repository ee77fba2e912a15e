package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/db"
)

// tables maps a role to its credential table. Each role keeps its own table
// so email uniqueness is scoped per role, matching how the collections are
// used by the login endpoints.
var tables = map[string]string{
	auth.RoleAdmin:        "admins",
	auth.RoleDoctor:       "doctors",
	auth.RoleReceptionist: "receptionists",
	auth.RoleScanner:      "scanners",
	auth.RoleBiller:       "billers",
	auth.RoleLab:          "lab_technicians",
}

func tableFor(role string) (string, error) {
	t, ok := tables[role]
	if !ok {
		return "", fmt.Errorf("staff: unknown role %q", role)
	}
	return t, nil
}

func hasDepartment(role string) bool {
	return role == auth.RoleScanner || role == auth.RoleLab
}

// PGRepository stores credentials in Postgres, one table per role.
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

const doctorCols = `specialization, phone, gender, age, experience, qualification,
		registration_number, clinic_address, consultation_fee,
		availability_days, availability_from, availability_to,
		profile_image, bio, is_active, rating_average, rating_count`

func (r *PGRepository) Create(ctx context.Context, c *Credential) error {
	table, err := tableFor(c.Role)
	if err != nil {
		return err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	switch {
	case c.Role == auth.RoleDoctor:
		d := c.Doctor
		if d == nil {
			d = &DoctorProfile{}
		}
		_, err = r.q(ctx).Exec(ctx, `
			INSERT INTO doctors (id, name, email, password_hash, `+doctorCols+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
			c.ID, c.Name, c.Email, c.PasswordHash,
			d.Specialization, d.Phone, d.Gender, d.Age, d.Experience, d.Qualification,
			d.RegistrationNumber, d.ClinicAddress, d.ConsultationFee,
			d.Availability.Days, d.Availability.From, d.Availability.To,
			d.ProfileImage, d.Bio, d.IsActive, d.Rating.Average, d.Rating.Count)
	case hasDepartment(c.Role):
		_, err = r.q(ctx).Exec(ctx, `
			INSERT INTO `+table+` (id, name, email, password_hash, department)
			VALUES ($1, $2, $3, $4, $5)`,
			c.ID, c.Name, c.Email, c.PasswordHash, c.Department)
	default:
		_, err = r.q(ctx).Exec(ctx, `
			INSERT INTO `+table+` (id, name, email, password_hash)
			VALUES ($1, $2, $3, $4)`,
			c.ID, c.Name, c.Email, c.PasswordHash)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (r *PGRepository) selectCols(role string) string {
	switch {
	case role == auth.RoleDoctor:
		return "id, name, email, password_hash, created_at, updated_at, " + doctorCols
	case hasDepartment(role):
		return "id, name, email, password_hash, created_at, updated_at, department"
	default:
		return "id, name, email, password_hash, created_at, updated_at"
	}
}

func (r *PGRepository) scanRow(role string, row pgx.Row) (*Credential, error) {
	c := &Credential{Role: role}
	var err error
	switch {
	case role == auth.RoleDoctor:
		d := &DoctorProfile{}
		err = row.Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt,
			&d.Specialization, &d.Phone, &d.Gender, &d.Age, &d.Experience, &d.Qualification,
			&d.RegistrationNumber, &d.ClinicAddress, &d.ConsultationFee,
			&d.Availability.Days, &d.Availability.From, &d.Availability.To,
			&d.ProfileImage, &d.Bio, &d.IsActive, &d.Rating.Average, &d.Rating.Count)
		c.Doctor = d
	case hasDepartment(role):
		err = row.Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt, &c.Department)
	default:
		err = row.Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan %s credential: %w", role, err)
	}
	return c, nil
}

func (r *PGRepository) FindByID(ctx context.Context, role string, id uuid.UUID) (*Credential, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, err
	}
	row := r.q(ctx).QueryRow(ctx,
		`SELECT `+r.selectCols(role)+` FROM `+table+` WHERE id = $1`, id)
	return r.scanRow(role, row)
}

func (r *PGRepository) FindByEmail(ctx context.Context, role, email string) (*Credential, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, err
	}
	row := r.q(ctx).QueryRow(ctx,
		`SELECT `+r.selectCols(role)+` FROM `+table+` WHERE lower(email) = lower($1)`, email)
	return r.scanRow(role, row)
}

func (r *PGRepository) List(ctx context.Context, role string) ([]*Credential, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, err
	}
	rows, err := r.q(ctx).Query(ctx,
		`SELECT `+r.selectCols(role)+` FROM `+table+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var out []*Credential
	for rows.Next() {
		c, err := r.scanRow(role, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepository) Update(ctx context.Context, c *Credential) error {
	table, err := tableFor(c.Role)
	if err != nil {
		return err
	}

	var tag pgconn.CommandTag
	switch {
	case c.Role == auth.RoleDoctor:
		d := c.Doctor
		if d == nil {
			d = &DoctorProfile{}
		}
		tag, err = r.q(ctx).Exec(ctx, `
			UPDATE doctors SET name = $2,
				specialization = $3, phone = $4, gender = $5, age = $6,
				experience = $7, qualification = $8, registration_number = $9,
				clinic_address = $10, consultation_fee = $11,
				availability_days = $12, availability_from = $13, availability_to = $14,
				profile_image = $15, bio = $16, is_active = $17,
				rating_average = $18, rating_count = $19,
				updated_at = now()
			WHERE id = $1`,
			c.ID, c.Name,
			d.Specialization, d.Phone, d.Gender, d.Age, d.Experience, d.Qualification,
			d.RegistrationNumber, d.ClinicAddress, d.ConsultationFee,
			d.Availability.Days, d.Availability.From, d.Availability.To,
			d.ProfileImage, d.Bio, d.IsActive, d.Rating.Average, d.Rating.Count)
	case hasDepartment(c.Role):
		tag, err = r.q(ctx).Exec(ctx, `
			UPDATE `+table+` SET name = $2, department = $3, updated_at = now()
			WHERE id = $1`,
			c.ID, c.Name, c.Department)
	default:
		tag, err = r.q(ctx).Exec(ctx, `
			UPDATE `+table+` SET name = $2, updated_at = now() WHERE id = $1`,
			c.ID, c.Name)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, role string, id uuid.UUID) error {
	table, err := tableFor(role)
	if err != nil {
		return err
	}
	tag, err := r.q(ctx).Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) Count(ctx context.Context, role string) (int, error) {
	table, err := tableFor(role)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.q(ctx).QueryRow(ctx, `SELECT count(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
