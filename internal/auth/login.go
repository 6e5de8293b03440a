// Package auth resolves logins against the student and teacher credential
// tables and issues session tokens.
package auth

import (
	"context"
	"strings"

	"rollcall/internal/apperr"
	"rollcall/internal/roster"
)

// User type tags returned alongside a resolved login.
const (
	UserTypeStudent = "STUDENT"
	UserTypeTeacher = "TEACHER"
)

// User is the normalized view returned on login. Dept and DeviceID are nil
// for teachers.
type User struct {
	ID       string  `json:"user_id"`
	Name     string  `json:"user_name"`
	Email    string  `json:"user_email"`
	Dept     *string `json:"user_dept"`
	DeviceID *string `json:"device_id"`
}

// CredentialStore is the slice of the roster the resolver needs.
type CredentialStore interface {
	StudentByCredentials(ctx context.Context, email, password string) (*roster.Student, error)
	TeacherByCredentials(ctx context.Context, email, password string) (*roster.Teacher, error)
	BindDeviceIfAbsent(ctx context.Context, studentID, deviceID string) (bool, error)
	DeviceID(ctx context.Context, studentID string) (*string, error)
}

// Service classifies logins by email domain, verifies credentials and binds
// a student's device on first login.
type Service struct {
	store         CredentialStore
	studentDomain string
	teacherDomain string
}

// NewService creates a login resolver. studentDomain and teacherDomain are
// the email suffixes that route a login to the respective credential table.
func NewService(store CredentialStore, studentDomain, teacherDomain string) *Service {
	return &Service{store: store, studentDomain: studentDomain, teacherDomain: teacherDomain}
}

// Login authenticates an email/password pair. For students with no bound
// device, a supplied deviceID is bound after the credential check succeeds;
// an already-bound device is reported back untouched.
func (s *Service) Login(ctx context.Context, email, password, deviceID string) (User, string, error) {
	if email == "" || password == "" {
		return User{}, "", apperr.ErrMissingField
	}

	switch {
	case strings.HasSuffix(email, s.studentDomain):
		return s.loginStudent(ctx, email, password, deviceID)
	case strings.HasSuffix(email, s.teacherDomain):
		return s.loginTeacher(ctx, email, password)
	default:
		return User{}, "", apperr.ErrInvalidDomain
	}
}

func (s *Service) loginStudent(ctx context.Context, email, password, deviceID string) (User, string, error) {
	student, err := s.store.StudentByCredentials(ctx, email, password)
	if err != nil {
		return User{}, "", err
	}
	if student == nil {
		return User{}, "", apperr.ErrInvalidCredentials
	}

	device := student.DeviceID
	if roster.ShouldBind(device, deviceID) {
		bound, err := s.store.BindDeviceIfAbsent(ctx, student.ID, deviceID)
		if err != nil {
			return User{}, "", err
		}
		if bound {
			device = &deviceID
		} else {
			// Lost a concurrent bind; report whatever won.
			device, err = s.store.DeviceID(ctx, student.ID)
			if err != nil {
				return User{}, "", err
			}
		}
	}

	dept := student.Dept
	return User{
		ID:       student.ID,
		Name:     student.Name,
		Email:    student.Email,
		Dept:     &dept,
		DeviceID: device,
	}, UserTypeStudent, nil
}

func (s *Service) loginTeacher(ctx context.Context, email, password string) (User, string, error) {
	teacher, err := s.store.TeacherByCredentials(ctx, email, password)
	if err != nil {
		return User{}, "", err
	}
	if teacher == nil {
		return User{}, "", apperr.ErrInvalidCredentials
	}
	return User{
		ID:    teacher.ID,
		Name:  teacher.Name,
		Email: teacher.Email,
	}, UserTypeTeacher, nil
}
