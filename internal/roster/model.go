package roster

// Student is a row in the students table. DeviceID is nil until a device is
// bound on first login (or set explicitly via the update-device path).
type Student struct {
	ID       string  `json:"student_id"`
	Name     string  `json:"student_name"`
	Email    string  `json:"student_email"`
	Dept     string  `json:"student_dept"`
	Password string  `json:"-"`
	DeviceID *string `json:"student_device_id"`
}

// Teacher is a row in the teachers table. Teachers carry no device binding.
type Teacher struct {
	ID       string `json:"teacher_id"`
	Name     string `json:"teacher_name"`
	Email    string `json:"teacher_email"`
	Password string `json:"-"`
}

// StudentEdit is a partial update of a student row. Nil fields keep the
// stored value.
type StudentEdit struct {
	Name  *string `json:"student_name"`
	Email *string `json:"student_email"`
	Dept  *string `json:"student_dept"`
}

// touchesIdentity reports whether the edit changes a field that is
// denormalized into attendance rows.
func (e StudentEdit) touchesIdentity() bool {
	return e.Name != nil || e.Dept != nil
}
