// Package credentials holds the fixed demo allow-list used when demo login is
// enabled. It is not an authentication mechanism for real accounts.
package credentials

import (
	"crypto/subtle"

	"github.com/edulytics/portal/models"
)

// Store looks up demo credential records
type Store struct {
	records []models.DemoCredential
}

// DefaultDemoUsers returns the demo accounts shipped with the portal
func DefaultDemoUsers() []models.DemoCredential {
	return []models.DemoCredential{
		{
			Email:    "student.xyz@academy.edu",
			Password: "DemoStudent123!",
			Mode:     models.ModeInstitution,
			Role:     models.UserRoleStudent,
		},
		{
			Email:    "teacher.xyz@academy.edu",
			Password: "DemoTeacher123!",
			Mode:     models.ModeInstitution,
			Role:     models.UserRoleTeacher,
		},
		{
			Email:    "demo.personal@edulytics.app",
			Password: "DemoPersonal123!",
			Mode:     models.ModePersonal,
			Role:     models.UserRoleStudent,
		},
	}
}

// NewStore creates a store over the given records
func NewStore(records []models.DemoCredential) *Store {
	cp := make([]models.DemoCredential, len(records))
	copy(cp, records)
	return &Store{records: cp}
}

// NewDefaultStore creates a store over DefaultDemoUsers
func NewDefaultStore() *Store {
	return NewStore(DefaultDemoUsers())
}

// Lookup returns the record whose email and password both equal the input
// exactly. No trimming and no case folding.
func (s *Store) Lookup(email, password string) (models.DemoCredential, bool) {
	for _, r := range s.records {
		if r.Email == email && subtle.ConstantTimeCompare([]byte(r.Password), []byte(password)) == 1 {
			return r, true
		}
	}
	return models.DemoCredential{}, false
}

// Len returns the number of records
func (s *Store) Len() int {
	return len(s.records)
}
