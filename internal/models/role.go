package models

// Role is the identity namespace an account belongs to. Doctors and patients
// live in separate collections, so the same email may exist once in each.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}

// Collection returns the name of the Mongo collection backing the role.
func (r Role) Collection() string {
	switch r {
	case RoleDoctor:
		return "doctors"
	case RolePatient:
		return "patients"
	}
	return ""
}

// Title returns the role name capitalized for user-facing messages.
func (r Role) Title() string {
	switch r {
	case RoleDoctor:
		return "Doctor"
	case RolePatient:
		return "Patient"
	}
	return string(r)
}
