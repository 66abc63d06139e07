package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionSource records how an end-user session was established
type SessionSource string

const (
	SessionSourceDemo    SessionSource = "demo"
	SessionSourceBackend SessionSource = "backend"
)

// DemoCredential is one record of the fixed demo allow-list.
// Password is compared verbatim; it is never persisted with a session.
type DemoCredential struct {
	Email    string
	Password string
	Mode     Mode
	Role     UserRole
}

// Session is the active end-user identity of one browser profile.
// Fields are unexported: mode and role are fixed by the record the session was
// built from and cannot be changed afterwards.
type Session struct {
	email  string
	mode   Mode
	role   UserRole
	source SessionSource
	userID string
	name   string
}

// NewDemoSession adopts a matched demo credential record as a session
func NewDemoSession(c DemoCredential) Session {
	return Session{
		email:  c.Email,
		mode:   c.Mode,
		role:   c.Role,
		source: SessionSourceDemo,
	}
}

// NewBackendSession builds a personal-mode session from a profile the backend
// returned for a verified bearer token.
func NewBackendSession(p UserProfile) (Session, error) {
	if p.ID == "" || p.Email == "" {
		return Session{}, errors.New("backend profile missing id or email")
	}
	s := Session{
		email:  p.Email,
		mode:   ModePersonal,
		role:   RoleForAccountType(p.AccountType),
		source: SessionSourceBackend,
		userID: p.ID,
	}
	if p.Name != nil {
		s.name = *p.Name
	}
	return s, nil
}

func (s Session) Email() string         { return s.email }
func (s Session) Mode() Mode            { return s.mode }
func (s Session) Role() UserRole        { return s.role }
func (s Session) Source() SessionSource { return s.source }
func (s Session) UserID() string        { return s.userID }
func (s Session) Name() string          { return s.name }
func (s Session) IsZero() bool          { return s.email == "" }

// sessionRecord is the persisted and wire form of a Session
type sessionRecord struct {
	Email  string        `json:"email"`
	Mode   Mode          `json:"mode"`
	Role   UserRole      `json:"role"`
	Source SessionSource `json:"source,omitempty"`
	UserID string        `json:"user_id,omitempty"`
	Name   string        `json:"name,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionRecord{
		Email:  s.email,
		Mode:   s.mode,
		Role:   s.role,
		Source: s.source,
		UserID: s.userID,
		Name:   s.name,
	})
}

// DecodeSession parses a persisted session record. Any failure, including an
// unknown mode or role, is returned as an error and never as a partial session.
func DecodeSession(raw string) (Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if strings.TrimSpace(rec.Email) == "" {
		return Session{}, errors.New("decode session: missing email")
	}
	mode, err := ParseMode(string(rec.Mode))
	if err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	role, err := ParseUserRole(string(rec.Role))
	if err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	source := rec.Source
	if source == "" {
		source = SessionSourceDemo
	}
	if source != SessionSourceDemo && source != SessionSourceBackend {
		return Session{}, fmt.Errorf("decode session: unknown source %q", source)
	}
	return Session{
		email:  rec.Email,
		mode:   mode,
		role:   role,
		source: source,
		userID: rec.UserID,
		name:   rec.Name,
	}, nil
}

// UserProfile is the record returned by the backend's GET /auth/me
type UserProfile struct {
	ID           string    `json:"id"`
	Name         *string   `json:"name,omitempty"`
	Email        string    `json:"email"`
	MobileNumber *string   `json:"mobile_number,omitempty"`
	AccountType  *string   `json:"account_type,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoleForAccountType maps the backend account_type column onto an end-user role.
// Personal accounts and rows without a type are learners.
func RoleForAccountType(accountType *string) UserRole {
	if accountType == nil {
		return UserRoleStudent
	}
	switch UserRole(*accountType) {
	case UserRoleTeacher:
		return UserRoleTeacher
	case UserRoleAdmin:
		return UserRoleAdmin
	default:
		return UserRoleStudent
	}
}
