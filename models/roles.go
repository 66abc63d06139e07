package models

import "fmt"

// Mode is the tenancy axis of an end-user session
type Mode string

const (
	ModeInstitution Mode = "institution"
	ModePersonal    Mode = "personal"
)

// ParseMode converts a stored or wire value into a Mode
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}

// Valid reports whether m is one of the declared modes
func (m Mode) Valid() bool {
	return m == ModeInstitution || m == ModePersonal
}

// MatchMode selects exactly one branch per mode. Every caller supplies every branch,
// so a new mode is a compile error at each call site.
func MatchMode[T any](m Mode, institution, personal func() T) T {
	switch m {
	case ModeInstitution:
		return institution()
	case ModePersonal:
		return personal()
	}
	panic(fmt.Sprintf("models: unmatched mode %q", m))
}

// UserRole is the capability axis of an end-user session
type UserRole string

const (
	UserRoleStudent UserRole = "student"
	UserRoleTeacher UserRole = "teacher"
	UserRoleAdmin   UserRole = "admin"
)

// ParseUserRole converts a stored or wire value into a UserRole
func ParseUserRole(s string) (UserRole, error) {
	r := UserRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown user role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the declared end-user roles
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleStudent, UserRoleTeacher, UserRoleAdmin:
		return true
	}
	return false
}

// MatchUserRole selects exactly one branch per end-user role
func MatchUserRole[T any](r UserRole, student, teacher, admin func() T) T {
	switch r {
	case UserRoleStudent:
		return student()
	case UserRoleTeacher:
		return teacher()
	case UserRoleAdmin:
		return admin()
	}
	panic(fmt.Sprintf("models: unmatched user role %q", r))
}

// AdminRole is the privilege level of an admin session
type AdminRole string

const (
	AdminRoleInstitution AdminRole = "institution_admin"
	AdminRoleDeveloper   AdminRole = "developer_admin"
)

// ParseAdminRole converts a stored or wire value into an AdminRole
func ParseAdminRole(s string) (AdminRole, error) {
	r := AdminRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown admin role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the declared admin roles
func (r AdminRole) Valid() bool {
	return r == AdminRoleInstitution || r == AdminRoleDeveloper
}

// MatchAdminRole selects exactly one branch per admin role
func MatchAdminRole[T any](r AdminRole, institution, developer func() T) T {
	switch r {
	case AdminRoleInstitution:
		return institution()
	case AdminRoleDeveloper:
		return developer()
	}
	panic(fmt.Sprintf("models: unmatched admin role %q", r))
}

// Role is the union of end-user and admin role names, used where both tracks are
// reported together (audit trail, logs).
type Role string

// RoleOf lifts either role enumeration into the shared Role name space
func RoleOf[R UserRole | AdminRole](r R) Role {
	return Role(r)
}
