package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of auth event being audited
type AuditAction string

const (
	AuditActionUserLogin        AuditAction = "user_login"
	AuditActionUserLoginFailed  AuditAction = "user_login_failed"
	AuditActionUserLogout       AuditAction = "user_logout"
	AuditActionAdminLogin       AuditAction = "admin_login"
	AuditActionAdminLoginFailed AuditAction = "admin_login_failed"
	AuditActionAdminLogout      AuditAction = "admin_logout"
	AuditActionGatePassed       AuditAction = "gate_passed"
	AuditActionGateDenied       AuditAction = "gate_denied"
	AuditActionGuardDenied      AuditAction = "guard_denied"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	ProfileID string          `json:"profile_id" db:"profile_id"`
	Action    AuditAction     `json:"action" db:"action"`
	Email     *string         `json:"email,omitempty" db:"email"`
	Role      *Role           `json:"role,omitempty" db:"role"`
	Details   json.RawMessage `json:"details,omitempty" db:"details"`
	IPAddress string          `json:"ip_address" db:"ip_address"`
	UserAgent string          `json:"user_agent" db:"user_agent"`
	RequestID string          `json:"request_id" db:"request_id"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "auth_audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(profileID string, action AuditAction) *AuditLog {
	return &AuditLog{
		ID:        uuid.New(),
		ProfileID: profileID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

// WithIdentity sets who the event concerns
func (a *AuditLog) WithIdentity(email string, role Role) *AuditLog {
	if email != "" {
		a.Email = &email
	}
	if role != "" {
		a.Role = &role
	}
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}
