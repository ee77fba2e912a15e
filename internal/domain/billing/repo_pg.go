package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

// PGRepository stores bills in Postgres. Items live in a jsonb column; the
// scan report links use a uuid array so the set travels with the bill row.
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

const billCols = `id, patient_id, doctor_id, prescription_id, report_id,
		scan_report_ids, treatment, bill_items, amount, pdf_file, paid,
		payment_mode, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, b *Bill) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.ScanReportIDs == nil {
		b.ScanReportIDs = []uuid.UUID{}
	}
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO bills (id, patient_id, doctor_id, prescription_id, report_id,
			scan_report_ids, treatment, bill_items, amount, pdf_file, paid, payment_mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		b.ID, b.PatientID, b.DoctorID, b.PrescriptionID, b.ReportID,
		b.ScanReportIDs, b.Treatment, b.Items, b.Amount, b.PDFFile, b.Paid, b.PaymentMode)
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}
	return nil
}

func scanBill(row pgx.Row) (*Bill, error) {
	b := &Bill{}
	err := row.Scan(&b.ID, &b.PatientID, &b.DoctorID, &b.PrescriptionID, &b.ReportID,
		&b.ScanReportIDs, &b.Treatment, &b.Items, &b.Amount, &b.PDFFile, &b.Paid,
		&b.PaymentMode, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan bill: %w", err)
	}
	return b, nil
}

func collectBills(rows pgx.Rows) ([]*Bill, error) {
	var out []*Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM bills WHERE id = $1`, id)
	return scanBill(row)
}

func (r *PGRepository) List(ctx context.Context) ([]*Bill, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT `+billCols+` FROM bills ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()
	return collectBills(rows)
}

func (r *PGRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Bill, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT `+billCols+` FROM bills WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()
	return collectBills(rows)
}

func (r *PGRepository) LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Bill, error) {
	row := r.q(ctx).QueryRow(ctx, `
		SELECT `+billCols+` FROM bills
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`, patientID)
	return scanBill(row)
}

func (r *PGRepository) FindOpenByPatient(ctx context.Context, patientID uuid.UUID) (*Bill, error) {
	row := r.q(ctx).QueryRow(ctx, `
		SELECT `+billCols+` FROM bills
		WHERE patient_id = $1 AND NOT paid ORDER BY created_at DESC LIMIT 1`, patientID)
	return scanBill(row)
}

func (r *PGRepository) Update(ctx context.Context, b *Bill) error {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE bills SET prescription_id = $2, report_id = $3, scan_report_ids = $4,
			treatment = $5, bill_items = $6, amount = $7, paid = $8,
			payment_mode = $9, updated_at = now()
		WHERE id = $1`,
		b.ID, b.PrescriptionID, b.ReportID, b.ScanReportIDs,
		b.Treatment, b.Items, b.Amount, b.Paid, b.PaymentMode)
	if err != nil {
		return fmt.Errorf("update bill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) UpdatePDFPath(ctx context.Context, id uuid.UUID, path string) error {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE bills SET pdf_file = $2, updated_at = now() WHERE id = $1`, id, path)
	if err != nil {
		return fmt.Errorf("update bill pdf path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q(ctx).Exec(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{}
	err := r.q(ctx).QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE paid),
		       coalesce(sum(amount), 0)
		FROM bills`).Scan(&s.TotalBills, &s.PaidBills, &s.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("bill stats: %w", err)
	}
	return s, nil
}
