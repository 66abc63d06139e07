package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AdminUser is the admin record returned by the backend's admin login
type AdminUser struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            AdminRole `json:"role"`
	InstitutionID   *string   `json:"institution_id,omitempty"`
	InstitutionName *string   `json:"institution_name,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
}

// Normalize drops institution fields that carry no meaning for the role
func (a AdminUser) Normalize() AdminUser {
	if a.Role == AdminRoleDeveloper {
		a.InstitutionID = nil
		a.InstitutionName = nil
	}
	return a
}

// DecodeAdminUser parses a persisted admin record, rejecting unknown roles
func DecodeAdminUser(raw string) (AdminUser, error) {
	var a AdminUser
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return AdminUser{}, fmt.Errorf("decode admin user: %w", err)
	}
	if a.ID == "" || a.Email == "" {
		return AdminUser{}, errors.New("decode admin user: missing id or email")
	}
	if !a.Role.Valid() {
		return AdminUser{}, fmt.Errorf("decode admin user: unknown role %q", a.Role)
	}
	return a.Normalize(), nil
}

// AdminSession pairs an admin record with its opaque bearer token
type AdminSession struct {
	User  AdminUser
	Token string
}

// AdminPortal identifies which login screen an admin login came from
type AdminPortal string

const (
	AdminPortalInstitution AdminPortal = "institution"
	AdminPortalDeveloper   AdminPortal = "developer"
)

// LandingPath is where an admin of the given role lands after login
func LandingPath(role AdminRole) string {
	return MatchAdminRole(role,
		func() string { return "/admin/institution/dashboard" },
		func() string { return "/admin/developer/dashboard" },
	)
}

// Institution is a tenant record managed through the admin console
type Institution struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// DirectoryUser is a row from the backend's admin user listings
type DirectoryUser struct {
	ID            string  `json:"id"`
	Name          *string `json:"name,omitempty"`
	Email         string  `json:"email"`
	MobileNumber  *string `json:"mobile_number,omitempty"`
	Role          string  `json:"role,omitempty"`
	InstitutionID *string `json:"institution_id,omitempty"`
	UserID        *string `json:"user_id,omitempty"`
}
