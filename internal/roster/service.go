package roster

import (
	"context"

	"rollcall/internal/apperr"
)

// Store is the persistence surface the directory service needs. Implemented
// by *Repository; fakes stand in for it in tests.
type Store interface {
	GetStudent(ctx context.Context, id string) (*Student, error)
	ListStudentsByDept(ctx context.Context, dept string) ([]Student, error)
	InsertStudent(ctx context.Context, s Student) (*Student, error)
	DeviceID(ctx context.Context, studentID string) (*string, error)
	ResetDevice(ctx context.Context, studentID string) (*Student, error)
	OverwriteDevice(ctx context.Context, studentID, deviceID string) (*Student, error)
	UpdateProfile(ctx context.Context, studentID string, edit StudentEdit) (*Student, error)
}

// Service exposes directory lookups, student registration and the explicit
// device management paths.
type Service struct {
	store           Store
	defaultPassword string
}

// NewService creates a directory service. New students are created with
// defaultPassword as their initial credential.
func NewService(store Store, defaultPassword string) *Service {
	return &Service{store: store, defaultPassword: defaultPassword}
}

// ShouldBind reports whether a login may bind the supplied device: only when
// the student has no binding yet and a device id was actually supplied.
func ShouldBind(current *string, supplied string) bool {
	if supplied == "" {
		return false
	}
	return current == nil || *current == ""
}

// Get returns a student by id.
func (s *Service) Get(ctx context.Context, id string) (*Student, error) {
	if id == "" {
		return nil, apperr.ErrMissingField
	}
	return s.store.GetStudent(ctx, id)
}

// ListByDept returns all students in a department.
func (s *Service) ListByDept(ctx context.Context, dept string) ([]Student, error) {
	if dept == "" {
		return nil, apperr.ErrMissingField
	}
	return s.store.ListStudentsByDept(ctx, dept)
}

// Add registers a new student with the configured default password.
func (s *Service) Add(ctx context.Context, id, name, email, dept string) (*Student, error) {
	if id == "" || name == "" || email == "" || dept == "" {
		return nil, apperr.ErrMissingField
	}
	return s.store.InsertStudent(ctx, Student{
		ID:       id,
		Name:     name,
		Email:    email,
		Dept:     dept,
		Password: s.defaultPassword,
	})
}

// Edit applies a partial update; omitted fields keep their stored values.
func (s *Service) Edit(ctx context.Context, id string, edit StudentEdit) (*Student, error) {
	if id == "" {
		return nil, apperr.ErrMissingField
	}
	return s.store.UpdateProfile(ctx, id, edit)
}

// Device returns the student's bound device id, nil when unbound.
func (s *Service) Device(ctx context.Context, studentID string) (*string, error) {
	if studentID == "" {
		return nil, apperr.ErrMissingField
	}
	return s.store.DeviceID(ctx, studentID)
}

// ResetDevice clears a student's device binding.
func (s *Service) ResetDevice(ctx context.Context, studentID string) (*Student, error) {
	if studentID == "" {
		return nil, apperr.ErrMissingField
	}
	return s.store.ResetDevice(ctx, studentID)
}

// SetDevice force-overwrites a student's device binding.
func (s *Service) SetDevice(ctx context.Context, studentID, deviceID string) (*Student, error) {
	if studentID == "" || deviceID == "" {
		return nil, apperr.ErrMissingField
	}
	return s.store.OverwriteDevice(ctx, studentID, deviceID)
}
