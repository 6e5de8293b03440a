package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"rollcall/internal/apperr"
)

const uniqueViolation = "23505"

// Repository persists student and teacher data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const studentCols = `student_id, student_name, student_email, student_dept, student_password, student_device_id`

func scanStudent(row interface{ Scan(...any) error }) (*Student, error) {
	var s Student
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Dept, &s.Password, &s.DeviceID); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStudent returns a student by id.
func (r *Repository) GetStudent(ctx context.Context, id string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+studentCols+` FROM students WHERE student_id = $1
	`, id)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrStudentNotFound
	}
	return s, err
}

// ListStudentsByDept returns all students in a department.
func (r *Repository) ListStudentsByDept(ctx context.Context, dept string) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, student_name, student_email, student_dept
		FROM students
		WHERE student_dept = $1
	`, dept)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Dept); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// InsertStudent creates a student row. A duplicate id or email maps to
// apperr.ErrDuplicate.
func (r *Repository) InsertStudent(ctx context.Context, s Student) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (student_id, student_name, student_email, student_dept, student_password)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+studentCols+`
	`, s.ID, s.Name, s.Email, s.Dept, s.Password)
	created, err := scanStudent(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperr.ErrDuplicate
		}
		return nil, err
	}
	return created, nil
}

// StudentByCredentials returns the student matching (email, password)
// exactly, or nil when no row matches.
func (r *Repository) StudentByCredentials(ctx context.Context, email, password string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+studentCols+` FROM students
		WHERE student_email = $1 AND student_password = $2
	`, email, password)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// TeacherByCredentials returns the teacher matching (email, password)
// exactly, or nil when no row matches.
func (r *Repository) TeacherByCredentials(ctx context.Context, email, password string) (*Teacher, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT teacher_id, teacher_name, teacher_email, teacher_password
		FROM teachers
		WHERE teacher_email = $1 AND teacher_password = $2
	`, email, password)
	var t Teacher
	err := row.Scan(&t.ID, &t.Name, &t.Email, &t.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// BindDeviceIfAbsent binds deviceID to the student only when no device is
// currently bound. The guard lives in the statement itself, so two
// concurrent first logins cannot both win. An empty-string binding counts
// as unbound, the same as ShouldBind. Returns whether this call bound the
// device.
func (r *Repository) BindDeviceIfAbsent(ctx context.Context, studentID, deviceID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET student_device_id = $1
		WHERE student_id = $2 AND (student_device_id IS NULL OR student_device_id = '')
	`, deviceID, studentID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// DeviceID returns the student's bound device, nil when none is bound.
func (r *Repository) DeviceID(ctx context.Context, studentID string) (*string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT student_device_id FROM students WHERE student_id = $1
	`, studentID)
	var device *string
	err := row.Scan(&device)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrStudentNotFound
	}
	return device, err
}

// ResetDevice clears the student's device binding unconditionally.
func (r *Repository) ResetDevice(ctx context.Context, studentID string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE students SET student_device_id = NULL
		WHERE student_id = $1
		RETURNING `+studentCols+`
	`, studentID)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrStudentNotFound
	}
	return s, err
}

// OverwriteDevice force-sets the student's device binding, with no
// must-be-empty precondition.
func (r *Repository) OverwriteDevice(ctx context.Context, studentID, deviceID string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE students SET student_device_id = $1
		WHERE student_id = $2
		RETURNING `+studentCols+`
	`, deviceID, studentID)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrStudentNotFound
	}
	return s, err
}

// UpdateProfile applies a partial edit to a student row and, when name or
// department changed, cascades the new values to every attendance row
// belonging to the student. The cascade is deliberately unscoped by date.
// Both writes run in one transaction; an unknown student rolls back with
// apperr.ErrStudentNotFound and touches nothing.
func (r *Repository) UpdateProfile(ctx context.Context, studentID string, edit StudentEdit) (*Student, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE students
		SET student_name  = COALESCE($1, student_name),
		    student_email = COALESCE($2, student_email),
		    student_dept  = COALESCE($3, student_dept)
		WHERE student_id = $4
		RETURNING `+studentCols+`
	`, edit.Name, edit.Email, edit.Dept, studentID)
	updated, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}

	if edit.touchesIdentity() {
		if _, err := tx.ExecContext(ctx, `
			UPDATE attendance
			SET student_dept = COALESCE($1, student_dept),
			    student_name = COALESCE($2, student_name)
			WHERE student_id = $3
		`, edit.Dept, edit.Name, studentID); err != nil {
			return nil, fmt.Errorf("cascade attendance update: %w", err)
		}
	}

	return updated, tx.Commit()
}
