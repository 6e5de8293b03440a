package auth

import (
	"context"
	"errors"
	"testing"

	"rollcall/internal/apperr"
	"rollcall/internal/roster"
)

type fakeCredentialStore struct {
	students map[string]*roster.Student // keyed by email
	teachers map[string]*roster.Teacher
	binds    int

	// raceDevice, when set, makes the next conditional bind lose to this
	// device, as a concurrent first login would.
	raceDevice string
}

func (f *fakeCredentialStore) StudentByCredentials(_ context.Context, email, password string) (*roster.Student, error) {
	s, ok := f.students[email]
	if !ok || s.Password != password {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (f *fakeCredentialStore) TeacherByCredentials(_ context.Context, email, password string) (*roster.Teacher, error) {
	t, ok := f.teachers[email]
	if !ok || t.Password != password {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (f *fakeCredentialStore) BindDeviceIfAbsent(_ context.Context, studentID, deviceID string) (bool, error) {
	for _, s := range f.students {
		if s.ID == studentID {
			if f.raceDevice != "" {
				s.DeviceID = &f.raceDevice
				return false, nil
			}
			if s.DeviceID != nil && *s.DeviceID != "" {
				return false, nil
			}
			s.DeviceID = &deviceID
			f.binds++
			return true, nil
		}
	}
	return false, errors.New("no such student")
}

func (f *fakeCredentialStore) DeviceID(_ context.Context, studentID string) (*string, error) {
	for _, s := range f.students {
		if s.ID == studentID {
			return s.DeviceID, nil
		}
	}
	return nil, apperr.ErrStudentNotFound
}

func newFixture() (*fakeCredentialStore, *Service) {
	store := &fakeCredentialStore{
		students: map[string]*roster.Student{
			"s1@engg": {ID: "S1", Name: "Asha", Email: "s1@engg", Dept: "CSE", Password: "pw1"},
		},
		teachers: map[string]*roster.Teacher{
			"t1@ac.in": {ID: "T1", Name: "Rao", Email: "t1@ac.in", Password: "pw2"},
		},
	}
	return store, NewService(store, "@engg", "@ac.in")
}

func TestLoginMissingFields(t *testing.T) {
	_, svc := newFixture()
	cases := []struct{ email, password string }{
		{"", "pw"},
		{"s1@engg", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if _, _, err := svc.Login(context.Background(), tc.email, tc.password, ""); !errors.Is(err, apperr.ErrMissingField) {
			t.Fatalf("email=%q password=%q: expected ErrMissingField, got %v", tc.email, tc.password, err)
		}
	}
}

func TestLoginUnknownDomain(t *testing.T) {
	_, svc := newFixture()
	if _, _, err := svc.Login(context.Background(), "someone@gmail.com", "pw", ""); !errors.Is(err, apperr.ErrInvalidDomain) {
		t.Fatalf("expected ErrInvalidDomain, got %v", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	_, svc := newFixture()
	if _, _, err := svc.Login(context.Background(), "s1@engg", "wrong", ""); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Fatalf("student: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody@ac.in", "pw", ""); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Fatalf("teacher: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginBindsDeviceOnFirstLogin(t *testing.T) {
	store, svc := newFixture()

	user, userType, err := svc.Login(context.Background(), "s1@engg", "pw1", "DEV-9")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if userType != UserTypeStudent {
		t.Fatalf("expected STUDENT, got %s", userType)
	}
	if user.DeviceID == nil || *user.DeviceID != "DEV-9" {
		t.Fatalf("expected bound device DEV-9, got %v", user.DeviceID)
	}
	if store.binds != 1 {
		t.Fatalf("expected exactly one bind, got %d", store.binds)
	}

	// Second login with a different device must not rebind.
	user, _, err = svc.Login(context.Background(), "s1@engg", "pw1", "DEV-X")
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if user.DeviceID == nil || *user.DeviceID != "DEV-9" {
		t.Fatalf("expected device to stay DEV-9, got %v", user.DeviceID)
	}
	if store.binds != 1 {
		t.Fatalf("expected no second bind, got %d", store.binds)
	}
}

func TestLoginWithoutDeviceLeavesBindingEmpty(t *testing.T) {
	store, svc := newFixture()

	user, _, err := svc.Login(context.Background(), "s1@engg", "pw1", "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.DeviceID != nil {
		t.Fatalf("expected no device, got %v", *user.DeviceID)
	}
	if store.binds != 0 {
		t.Fatalf("expected no bind, got %d", store.binds)
	}
}

func TestLoginBindsOverEmptyStringDevice(t *testing.T) {
	store, svc := newFixture()
	// A stored empty string counts as unbound, same as NULL.
	empty := ""
	store.students["s1@engg"].DeviceID = &empty

	user, _, err := svc.Login(context.Background(), "s1@engg", "pw1", "DEV-9")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.DeviceID == nil || *user.DeviceID != "DEV-9" {
		t.Fatalf("expected empty binding to be replaced with DEV-9, got %v", user.DeviceID)
	}
	if store.binds != 1 {
		t.Fatalf("expected one bind, got %d", store.binds)
	}
}

func TestLoginLostBindRaceReportsWinner(t *testing.T) {
	store, svc := newFixture()
	store.raceDevice = "DEV-FIRST"

	user, _, err := svc.Login(context.Background(), "s1@engg", "pw1", "DEV-SECOND")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.DeviceID == nil || *user.DeviceID != "DEV-FIRST" {
		t.Fatalf("expected winning device DEV-FIRST, got %v", user.DeviceID)
	}
}

func TestLoginTeacher(t *testing.T) {
	_, svc := newFixture()

	user, userType, err := svc.Login(context.Background(), "t1@ac.in", "pw2", "DEV-9")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if userType != UserTypeTeacher {
		t.Fatalf("expected TEACHER, got %s", userType)
	}
	if user.Dept != nil || user.DeviceID != nil {
		t.Fatalf("teacher view must have nil dept and device, got %+v", user)
	}
}
