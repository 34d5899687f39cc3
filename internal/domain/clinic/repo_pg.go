package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicare/voiceclinic/internal/platform/db"
)

// containsPattern builds an ILIKE pattern matching s anywhere, with LIKE
// metacharacters in s escaped.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func limitClause(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

func notFound(err error, what string, id interface{}) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return err
}

// -- Branch --

type branchRepoPG struct{ pool *pgxpool.Pool }

func NewBranchRepoPG(pool *pgxpool.Pool) BranchRepository {
	return &branchRepoPG{pool: pool}
}

func (r *branchRepoPG) List(ctx context.Context, limit, offset int) ([]*Branch, int, error) {
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM branch`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count branches: %w", err)
	}

	rows, err := conn.Query(ctx, `SELECT id, name, location FROM branch ORDER BY id`+limitClause(limit, offset))
	if err != nil {
		return nil, 0, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	var items []*Branch
	for rows.Next() {
		b := &Branch{}
		if err := rows.Scan(&b.ID, &b.Name, &b.Location); err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

// -- Doctor --

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

const doctorCols = `d.id, d.name, d.specialization, d.branch_id, b.name`

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	d := &Doctor{}
	if err := row.Scan(&d.ID, &d.Name, &d.Specialization, &d.BranchID, &d.BranchName); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	d, err := r.scanDoctor(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctor d JOIN branch b ON b.id = d.branch_id WHERE d.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "doctor", id)
	}
	return d, nil
}

func (r *doctorRepoPG) List(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	where := []string{"1=1"}
	var args []interface{}
	idx := 1

	if f.BranchID != nil {
		where = append(where, fmt.Sprintf("d.branch_id = $%d", idx))
		args = append(args, *f.BranchID)
		idx++
	}
	if f.NameContains != "" {
		where = append(where, fmt.Sprintf("d.name ILIKE $%d", idx))
		args = append(args, containsPattern(f.NameContains))
		idx++
	}
	if f.Speciality != "" {
		where = append(where, fmt.Sprintf("d.specialization ILIKE $%d", idx))
		args = append(args, containsPattern(f.Speciality))
		idx++
	}
	whereClause := strings.Join(where, " AND ")
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM doctor d WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}

	rows, err := conn.Query(ctx,
		`SELECT `+doctorCols+` FROM doctor d JOIN branch b ON b.id = d.branch_id WHERE `+whereClause+
			` ORDER BY d.id`+limitClause(limit, offset), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

// -- Patient --

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, name, phone, email, gender_id, created_by, created_ip_address, created_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	p := &Patient{}
	if err := row.Scan(&p.ID, &p.Name, &p.Phone, &p.Email, &p.GenderID,
		&p.CreatedBy, &p.CreatedIP, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	p, err := r.scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "patient", id)
	}
	return p, nil
}

func (r *patientRepoPG) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	p, err := r.scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE phone = $1`, phone))
	if err != nil {
		return nil, notFound(err, "patient with phone", phone)
	}
	return p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient (name, phone, email, gender_id, created_by, created_ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		p.Name, p.Phone, p.Email, p.GenderID, p.CreatedBy, p.CreatedIP, p.CreatedAt,
	).Scan(&p.ID)
	if db.IsUniqueViolation(err, "patient_phone_key") {
		return ErrDuplicatePhone
	}
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

// -- Diagnostic test --

type testRepoPG struct{ pool *pgxpool.Pool }

func NewTestRepoPG(pool *pgxpool.Pool) TestRepository {
	return &testRepoPG{pool: pool}
}

const testCols = `id, name, department, is_available, price::float8, schedule, referral_name, referral_contact`

func (r *testRepoPG) scanTest(row pgx.Row) (*DiagnosticTest, error) {
	t := &DiagnosticTest{}
	if err := row.Scan(&t.ID, &t.Name, &t.Department, &t.Available, &t.Price,
		&t.Schedule, &t.ReferralName, &t.ReferralContact); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *testRepoPG) GetByID(ctx context.Context, id int64) (*DiagnosticTest, error) {
	t, err := r.scanTest(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+testCols+` FROM diagnostic_test WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "diagnostic test", id)
	}
	return t, nil
}

func (r *testRepoPG) FindByName(ctx context.Context, name, department string) (*DiagnosticTest, error) {
	conn := db.Conn(ctx, r.pool)
	pattern := containsPattern(strings.TrimSpace(name))

	if department != "" {
		t, err := r.scanTest(conn.QueryRow(ctx,
			`SELECT `+testCols+` FROM diagnostic_test WHERE department ILIKE $1 AND name ILIKE $2 ORDER BY id LIMIT 1`,
			department, pattern))
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	t, err := r.scanTest(conn.QueryRow(ctx,
		`SELECT `+testCols+` FROM diagnostic_test WHERE name ILIKE $1 ORDER BY id LIMIT 1`, pattern))
	if err != nil {
		return nil, notFound(err, "diagnostic test", name)
	}
	return t, nil
}
