package attendance

import (
	"context"
	"time"

	"rollcall/internal/apperr"
)

// Record is one attendance row. StudentName and StudentDept are copies
// taken at write time; they are refreshed only by the student-edit cascade.
type Record struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	StudentDept string    `json:"student_dept"`
	Status      string    `json:"status"`
	Date        time.Time `json:"attendance_date"`
}

// Store is the persistence surface the service needs. Implemented by
// *Repository; fakes stand in for it in tests.
type Store interface {
	UpdateTodayStatus(ctx context.Context, studentID, status string) (*Record, error)
	StudentIdentity(ctx context.Context, studentID string) (name, dept string, err error)
	InsertRecord(ctx context.Context, rec Record) (Record, error)
	TodayStatuses(ctx context.Context, studentID string) ([]string, error)
	TodayByDept(ctx context.Context, dept string) ([]Record, error)
}

// Service drives the per-day attendance state machine.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Mark upserts today's attendance for a student. The update runs first: the
// common case is a re-mark of an existing row. Only when the update touches
// nothing is the student looked up (surfacing ErrStudentNotFound for unknown
// ids) and a fresh row inserted with the denormalized name and department.
// The returned flag is true when a new row was created.
func (s *Service) Mark(ctx context.Context, studentID, status string) (Record, bool, error) {
	if studentID == "" || status == "" {
		return Record{}, false, apperr.ErrMissingField
	}

	updated, err := s.store.UpdateTodayStatus(ctx, studentID, status)
	if err != nil {
		return Record{}, false, err
	}
	if updated != nil {
		return *updated, false, nil
	}

	name, dept, err := s.store.StudentIdentity(ctx, studentID)
	if err != nil {
		return Record{}, false, err
	}

	rec, err := s.store.InsertRecord(ctx, Record{
		StudentID:   studentID,
		StudentName: name,
		StudentDept: dept,
		Status:      status,
	})
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// Record inserts an attendance row unconditionally, with no same-day check.
// Callers own the denormalized fields here; repeated calls on the same day
// produce duplicate rows. Mark is the safe path.
func (s *Service) Record(ctx context.Context, studentID, studentName, studentDept, status string) (Record, error) {
	if studentID == "" || studentName == "" || studentDept == "" || status == "" {
		return Record{}, apperr.ErrMissingField
	}
	return s.store.InsertRecord(ctx, Record{
		StudentID:   studentID,
		StudentName: studentName,
		StudentDept: studentDept,
		Status:      status,
	})
}

// TodayStatus returns the status values recorded today for a student. An
// empty slice is the absent signal, not an error.
func (s *Service) TodayStatus(ctx context.Context, studentID string) ([]string, error) {
	if studentID == "" {
		return nil, apperr.ErrMissingField
	}
	return s.store.TodayStatuses(ctx, studentID)
}

// TodayByDept returns today's rows for a department.
func (s *Service) TodayByDept(ctx context.Context, dept string) ([]Record, error) {
	if dept == "" {
		return nil, apperr.ErrMissingField
	}
	return s.store.TodayByDept(ctx, dept)
}
