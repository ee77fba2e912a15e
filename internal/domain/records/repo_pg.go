package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

func querier(ctx context.Context, pool *pgxpool.Pool) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- Reports --

type PGReportRepository struct {
	pool *pgxpool.Pool
}

func NewPGReportRepository(pool *pgxpool.Pool) *PGReportRepository {
	return &PGReportRepository{pool: pool}
}

const reportCols = `id, patient_id, doctor_id, report_title, report_details,
		symptoms, physical_examination, clinical_findings, diagnosis, vitals,
		advised_investigations, treatment_advice, lifestyle_advice,
		follow_up_date, additional_notes, doctor_signature, is_final, date,
		created_at, updated_at`

func (r *PGReportRepository) Create(ctx context.Context, rep *Report) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	_, err := querier(ctx, r.pool).Exec(ctx, `
		INSERT INTO reports (id, patient_id, doctor_id, report_title, report_details,
			symptoms, physical_examination, clinical_findings, diagnosis, vitals,
			advised_investigations, treatment_advice, lifestyle_advice,
			follow_up_date, additional_notes, doctor_signature, is_final, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		rep.ID, rep.PatientID, rep.DoctorID, rep.ReportTitle, rep.ReportDetails,
		rep.Symptoms, rep.PhysicalExamination, rep.ClinicalFindings, rep.Diagnosis, rep.Vitals,
		rep.AdvisedInvestigations, rep.TreatmentAdvice, rep.LifestyleAdvice,
		rep.FollowUpDate, rep.AdditionalNotes, rep.DoctorSignature, rep.IsFinal, rep.Date)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func scanReportRow(row pgx.Row) (*Report, error) {
	rep := &Report{}
	err := row.Scan(&rep.ID, &rep.PatientID, &rep.DoctorID, &rep.ReportTitle, &rep.ReportDetails,
		&rep.Symptoms, &rep.PhysicalExamination, &rep.ClinicalFindings, &rep.Diagnosis, &rep.Vitals,
		&rep.AdvisedInvestigations, &rep.TreatmentAdvice, &rep.LifestyleAdvice,
		&rep.FollowUpDate, &rep.AdditionalNotes, &rep.DoctorSignature, &rep.IsFinal, &rep.Date,
		&rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	return rep, nil
}

func (r *PGReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	row := querier(ctx, r.pool).QueryRow(ctx, `SELECT `+reportCols+` FROM reports WHERE id = $1`, id)
	return scanReportRow(row)
}

func (r *PGReportRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Report, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT `+reportCols+` FROM reports WHERE patient_id = $1 ORDER BY date DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

func (r *PGReportRepository) ListAll(ctx context.Context, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := querier(ctx, r.pool).QueryRow(ctx, `SELECT count(*) FROM reports`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT `+reportCols+` FROM reports ORDER BY date DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()
	out, err := collectReports(rows)
	return out, total, err
}

func (r *PGReportRepository) LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Report, error) {
	row := querier(ctx, r.pool).QueryRow(ctx, `
		SELECT `+reportCols+` FROM reports WHERE patient_id = $1 ORDER BY date DESC LIMIT 1`, patientID)
	return scanReportRow(row)
}

func collectReports(rows pgx.Rows) ([]*Report, error) {
	var out []*Report
	for rows.Next() {
		rep, err := scanReportRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *PGReportRepository) Update(ctx context.Context, rep *Report) error {
	tag, err := querier(ctx, r.pool).Exec(ctx, `
		UPDATE reports SET report_title = $2, report_details = $3, symptoms = $4,
			physical_examination = $5, clinical_findings = $6, diagnosis = $7,
			vitals = $8, advised_investigations = $9, treatment_advice = $10,
			lifestyle_advice = $11, follow_up_date = $12, additional_notes = $13,
			doctor_signature = $14, is_final = $15, updated_at = now()
		WHERE id = $1`,
		rep.ID, rep.ReportTitle, rep.ReportDetails, rep.Symptoms,
		rep.PhysicalExamination, rep.ClinicalFindings, rep.Diagnosis,
		rep.Vitals, rep.AdvisedInvestigations, rep.TreatmentAdvice,
		rep.LifestyleAdvice, rep.FollowUpDate, rep.AdditionalNotes,
		rep.DoctorSignature, rep.IsFinal)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// -- Prescriptions --

type PGPrescriptionRepository struct {
	pool *pgxpool.Pool
}

func NewPGPrescriptionRepository(pool *pgxpool.Pool) *PGPrescriptionRepository {
	return &PGPrescriptionRepository{pool: pool}
}

const prescriptionCols = `id, patient_id, doctor_id, prescription_no, symptoms,
		diagnosis, department, medicines, notes, follow_up_date, bill_id,
		created_at, updated_at`

func (r *PGPrescriptionRepository) Create(ctx context.Context, p *Prescription) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := querier(ctx, r.pool).Exec(ctx, `
		INSERT INTO prescriptions (id, patient_id, doctor_id, prescription_no,
			symptoms, diagnosis, department, medicines, notes, follow_up_date, bill_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.PatientID, p.DoctorID, p.PrescriptionNo,
		p.Symptoms, p.Diagnosis, p.Department, p.Medicines, p.Notes, p.FollowUpDate, p.BillID)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

func scanPrescriptionRow(row pgx.Row) (*Prescription, error) {
	p := &Prescription{}
	err := row.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.PrescriptionNo, &p.Symptoms,
		&p.Diagnosis, &p.Department, &p.Medicines, &p.Notes, &p.FollowUpDate, &p.BillID,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan prescription: %w", err)
	}
	return p, nil
}

func (r *PGPrescriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	row := querier(ctx, r.pool).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE id = $1`, id)
	return scanPrescriptionRow(row)
}

func (r *PGPrescriptionRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT `+prescriptionCols+` FROM prescriptions
		WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		p, err := scanPrescriptionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGPrescriptionRepository) LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Prescription, error) {
	row := querier(ctx, r.pool).QueryRow(ctx, `
		SELECT `+prescriptionCols+` FROM prescriptions
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`, patientID)
	return scanPrescriptionRow(row)
}

func (r *PGPrescriptionRepository) Update(ctx context.Context, p *Prescription) error {
	tag, err := querier(ctx, r.pool).Exec(ctx, `
		UPDATE prescriptions SET symptoms = $2, diagnosis = $3, department = $4,
			medicines = $5, notes = $6, follow_up_date = $7, bill_id = $8,
			updated_at = now()
		WHERE id = $1`,
		p.ID, p.Symptoms, p.Diagnosis, p.Department,
		p.Medicines, p.Notes, p.FollowUpDate, p.BillID)
	if err != nil {
		return fmt.Errorf("update prescription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// -- Scan reports --

type PGScanReportRepository struct {
	pool *pgxpool.Pool
}

func NewPGScanReportRepository(pool *pgxpool.Pool) *PGScanReportRepository {
	return &PGScanReportRepository{pool: pool}
}

const scanReportCols = `id, patient_id, doctor_id, assigned_to, type, scan_name,
		description, indication, impression, findings, result_status, pdf_file,
		lab_name, technician_name, scan_date, report_generated_date, cost,
		created_by, is_verified, verified_by, is_billed, created_at, updated_at`

func (r *PGScanReportRepository) Create(ctx context.Context, s *ScanReport) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := querier(ctx, r.pool).Exec(ctx, `
		INSERT INTO scan_reports (id, patient_id, doctor_id, assigned_to, type,
			scan_name, description, indication, impression, findings,
			result_status, pdf_file, lab_name, technician_name, scan_date,
			report_generated_date, cost, created_by, is_verified, verified_by, is_billed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		s.ID, s.PatientID, s.DoctorID, s.AssignedTo, s.Type,
		s.ScanName, s.Description, s.Indication, s.Impression, s.Findings,
		s.ResultStatus, s.PDFFile, s.LabName, s.TechnicianName, s.ScanDate,
		s.ReportGeneratedDate, s.Cost, s.CreatedBy, s.IsVerified, s.VerifiedBy, s.IsBilled)
	if err != nil {
		return fmt.Errorf("insert scan report: %w", err)
	}
	return nil
}

func scanScanReportRow(row pgx.Row) (*ScanReport, error) {
	s := &ScanReport{}
	err := row.Scan(&s.ID, &s.PatientID, &s.DoctorID, &s.AssignedTo, &s.Type, &s.ScanName,
		&s.Description, &s.Indication, &s.Impression, &s.Findings, &s.ResultStatus, &s.PDFFile,
		&s.LabName, &s.TechnicianName, &s.ScanDate, &s.ReportGeneratedDate, &s.Cost,
		&s.CreatedBy, &s.IsVerified, &s.VerifiedBy, &s.IsBilled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan scan report: %w", err)
	}
	return s, nil
}

func collectScanReports(rows pgx.Rows) ([]*ScanReport, error) {
	var out []*ScanReport
	for rows.Next() {
		s, err := scanScanReportRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGScanReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*ScanReport, error) {
	row := querier(ctx, r.pool).QueryRow(ctx,
		`SELECT `+scanReportCols+` FROM scan_reports WHERE id = $1`, id)
	return scanScanReportRow(row)
}

func (r *PGScanReportRepository) List(ctx context.Context) ([]*ScanReport, error) {
	rows, err := querier(ctx, r.pool).Query(ctx,
		`SELECT `+scanReportCols+` FROM scan_reports ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list scan reports: %w", err)
	}
	defer rows.Close()
	return collectScanReports(rows)
}

func (r *PGScanReportRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ScanReport, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT `+scanReportCols+` FROM scan_reports
		WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list scan reports: %w", err)
	}
	defer rows.Close()
	return collectScanReports(rows)
}

func (r *PGScanReportRepository) UnbilledByPatient(ctx context.Context, patientID uuid.UUID) ([]*ScanReport, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT `+scanReportCols+` FROM scan_reports
		WHERE patient_id = $1 AND NOT is_billed ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list unbilled scan reports: %w", err)
	}
	defer rows.Close()
	return collectScanReports(rows)
}

func (r *PGScanReportRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*ScanReport, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := querier(ctx, r.pool).Query(ctx,
		`SELECT `+scanReportCols+` FROM scan_reports WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("find scan reports: %w", err)
	}
	defer rows.Close()
	return collectScanReports(rows)
}

func (r *PGScanReportRepository) MarkBilled(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := querier(ctx, r.pool).Exec(ctx,
		`UPDATE scan_reports SET is_billed = true, updated_at = now() WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("mark scan reports billed: %w", err)
	}
	return nil
}

func (r *PGScanReportRepository) Update(ctx context.Context, s *ScanReport) error {
	tag, err := querier(ctx, r.pool).Exec(ctx, `
		UPDATE scan_reports SET type = $2, scan_name = $3, description = $4,
			indication = $5, impression = $6, findings = $7, result_status = $8,
			pdf_file = $9, lab_name = $10, technician_name = $11, scan_date = $12,
			report_generated_date = $13, cost = $14, is_verified = $15,
			verified_by = $16, updated_at = now()
		WHERE id = $1`,
		s.ID, s.Type, s.ScanName, s.Description, s.Indication, s.Impression,
		s.Findings, s.ResultStatus, s.PDFFile, s.LabName, s.TechnicianName,
		s.ScanDate, s.ReportGeneratedDate, s.Cost, s.IsVerified, s.VerifiedBy)
	if err != nil {
		return fmt.Errorf("update scan report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGScanReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM scan_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete scan report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// -- Lab reports --

type PGLabReportRepository struct {
	pool *pgxpool.Pool
}

func NewPGLabReportRepository(pool *pgxpool.Pool) *PGLabReportRepository {
	return &PGLabReportRepository{pool: pool}
}

const labReportCols = `id, patient_id, doctor_id, assigned_to, test_type, test_name,
		description, result_details, result_status, reference_range, pdf_file,
		lab_name, technician_name, test_date, report_generated_date, cost,
		created_by, is_verified, verified_by, is_billed, created_at, updated_at`

func (r *PGLabReportRepository) Create(ctx context.Context, l *LabReport) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	_, err := querier(ctx, r.pool).Exec(ctx, `
		INSERT INTO lab_reports (id, patient_id, doctor_id, assigned_to, test_type,
			test_name, description, result_details, result_status, reference_range,
			pdf_file, lab_name, technician_name, test_date, report_generated_date,
			cost, created_by, is_verified, verified_by, is_billed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		l.ID, l.PatientID, l.DoctorID, l.AssignedTo, l.TestType,
		l.TestName, l.Description, l.ResultDetails, l.ResultStatus, l.ReferenceRange,
		l.PDFFile, l.LabName, l.TechnicianName, l.TestDate, l.ReportGeneratedDate,
		l.Cost, l.CreatedBy, l.IsVerified, l.VerifiedBy, l.IsBilled)
	if err != nil {
		return fmt.Errorf("insert lab report: %w", err)
	}
	return nil
}

func scanLabReportRow(row pgx.Row) (*LabReport, error) {
	l := &LabReport{}
	err := row.Scan(&l.ID, &l.PatientID, &l.DoctorID, &l.AssignedTo, &l.TestType, &l.TestName,
		&l.Description, &l.ResultDetails, &l.ResultStatus, &l.ReferenceRange, &l.PDFFile,
		&l.LabName, &l.TechnicianName, &l.TestDate, &l.ReportGeneratedDate, &l.Cost,
		&l.CreatedBy, &l.IsVerified, &l.VerifiedBy, &l.IsBilled, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan lab report: %w", err)
	}
	return l, nil
}

func collectLabReports(rows pgx.Rows) ([]*LabReport, error) {
	var out []*LabReport
	for rows.Next() {
		l, err := scanLabReportRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PGLabReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*LabReport, error) {
	row := querier(ctx, r.pool).QueryRow(ctx,
		`SELECT `+labReportCols+` FROM lab_reports WHERE id = $1`, id)
	return scanLabReportRow(row)
}

func (r *PGLabReportRepository) List(ctx context.Context) ([]*LabReport, error) {
	rows, err := querier(ctx, r.pool).Query(ctx,
		`SELECT `+labReportCols+` FROM lab_reports ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list lab reports: %w", err)
	}
	defer rows.Close()
	return collectLabReports(rows)
}

func (r *PGLabReportRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*LabReport, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT `+labReportCols+` FROM lab_reports
		WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list lab reports: %w", err)
	}
	defer rows.Close()
	return collectLabReports(rows)
}

func (r *PGLabReportRepository) Update(ctx context.Context, l *LabReport) error {
	tag, err := querier(ctx, r.pool).Exec(ctx, `
		UPDATE lab_reports SET test_type = $2, test_name = $3, description = $4,
			result_details = $5, result_status = $6, reference_range = $7,
			pdf_file = $8, lab_name = $9, technician_name = $10, test_date = $11,
			report_generated_date = $12, cost = $13, is_verified = $14,
			verified_by = $15, updated_at = now()
		WHERE id = $1`,
		l.ID, l.TestType, l.TestName, l.Description, l.ResultDetails,
		l.ResultStatus, l.ReferenceRange, l.PDFFile, l.LabName, l.TechnicianName,
		l.TestDate, l.ReportGeneratedDate, l.Cost, l.IsVerified, l.VerifiedBy)
	if err != nil {
		return fmt.Errorf("update lab report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGLabReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM lab_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lab report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGLabReportRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := querier(ctx, r.pool).Query(ctx,
		`SELECT result_status, count(*) FROM lab_reports GROUP BY result_status`)
	if err != nil {
		return nil, fmt.Errorf("count lab reports: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan lab report count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}
