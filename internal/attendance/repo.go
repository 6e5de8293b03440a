package attendance

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordCols = `id, student_id, student_name, student_dept, status, attendance_date`

// UpdateTodayStatus sets the status of today's row for the student and
// returns the updated record, or nil when no row exists for today. If
// duplicate rows exist for the day (possible via the unconditional insert
// path) all of them are updated and the first is returned.
func (r *Repository) UpdateTodayStatus(ctx context.Context, studentID, status string) (*Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE attendance
		SET status = $1
		WHERE student_id = $2 AND attendance_date::date = CURRENT_DATE
		RETURNING `+recordCols+`
	`, status, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var rec Record
	if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.StudentName, &rec.StudentDept, &rec.Status, &rec.Date); err != nil {
		return nil, err
	}
	return &rec, rows.Err()
}

// StudentIdentity fetches the denormalized fields embedded in new rows.
func (r *Repository) StudentIdentity(ctx context.Context, studentID string) (name, dept string, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT student_name, student_dept FROM students WHERE student_id = $1
	`, studentID)
	err = row.Scan(&name, &dept)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", apperr.ErrStudentNotFound
	}
	return name, dept, err
}

// InsertRecord writes a new attendance row. No same-day check is performed
// here; that is the caller's concern.
func (r *Repository) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, student_id, student_name, student_dept, status, attendance_date)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING attendance_date
	`, rec.ID, rec.StudentID, rec.StudentName, rec.StudentDept, rec.Status)
	if err := row.Scan(&rec.Date); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// TodayStatuses returns the status values recorded for the student today.
// An empty slice means the student has not been marked yet.
func (r *Repository) TodayStatuses(ctx context.Context, studentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status FROM attendance
		WHERE student_id = $1 AND attendance_date::date = CURRENT_DATE
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// TodayByDept returns today's attendance rows for a department.
func (r *Repository) TodayByDept(ctx context.Context, dept string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordCols+` FROM attendance
		WHERE student_dept = $1 AND attendance_date::date = CURRENT_DATE
		ORDER BY attendance_date
	`, dept)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.StudentName, &rec.StudentDept, &rec.Status, &rec.Date); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
