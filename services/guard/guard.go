// Package guard decides whether a request may reach a protected view. It is a
// pure function of a snapshot of the profile's two sessions; waiting for the
// sessions to settle and writing redirects is the middleware's job.
package guard

import (
	"slices"

	"github.com/edulytics/portal/models"
)

// State is the outcome of a guard evaluation
type State string

const (
	StateChecking State = "checking"
	StateDenied   State = "denied"
	StateAllowed  State = "allowed"
)

// Redirect targets
const (
	PersonalLoginPath = "/personal/login"
	AdminLoginPath    = "/admin/login"
	DeveloperGatePath = "/admin/developer"
)

// Provider names the session a policy depends on
type Provider int

const (
	ProviderUser Provider = iota
	ProviderAdmin
)

// PermissionFunc reports whether the admin session holds one of required.
// It is the admin manager's HasPermission.
type PermissionFunc func(required ...models.AdminRole) bool

// Snapshot is the session state a guard decides on
type Snapshot struct {
	UserReady      bool
	HasUserSession bool
	HasUserToken   bool

	AdminReady    bool
	HasPermission PermissionFunc
}

// Decision is the result of Evaluate. Redirect is set only when denied.
type Decision struct {
	State    State  `json:"state"`
	Redirect string `json:"redirect,omitempty"`
}

// Policy is one guard kind
type Policy struct {
	name           string
	provider       Provider
	redirect       string
	acceptRawToken bool
	roles          []models.AdminRole
}

// EndUser admits any end-user session. With acceptRawToken a bare persisted
// backend token also admits, matching older clients that only stored the token.
// Denials always go to the personal login, institution routes included.
func EndUser(acceptRawToken bool) Policy {
	return Policy{
		name:           "end_user",
		provider:       ProviderUser,
		redirect:       PersonalLoginPath,
		acceptRawToken: acceptRawToken,
	}
}

// InstitutionAdmin admits only institution_admin sessions
func InstitutionAdmin() Policy {
	return Policy{
		name:     "institution_admin",
		provider: ProviderAdmin,
		redirect: AdminLoginPath,
		roles:    []models.AdminRole{models.AdminRoleInstitution},
	}
}

// DeveloperAdmin admits only developer_admin sessions and sends everyone else
// back to the developer gate
func DeveloperAdmin() Policy {
	return Policy{
		name:     "developer_admin",
		provider: ProviderAdmin,
		redirect: DeveloperGatePath,
		roles:    []models.AdminRole{models.AdminRoleDeveloper},
	}
}

// Role admits an admin session whose role is one of roles
func Role(roles ...models.AdminRole) Policy {
	return Policy{
		name:     "admin_role",
		provider: ProviderAdmin,
		redirect: AdminLoginPath,
		roles:    slices.Clone(roles),
	}
}

// Name identifies the policy in logs and audit records
func (p Policy) Name() string { return p.name }

// Provider is the session the policy waits on
func (p Policy) Provider() Provider { return p.provider }

// Evaluate applies the policy to a snapshot
func Evaluate(p Policy, s Snapshot) Decision {
	switch p.provider {
	case ProviderUser:
		if !s.UserReady {
			return Decision{State: StateChecking}
		}
		if s.HasUserSession || (p.acceptRawToken && s.HasUserToken) {
			return Decision{State: StateAllowed}
		}
	case ProviderAdmin:
		if !s.AdminReady {
			return Decision{State: StateChecking}
		}
		if s.HasPermission != nil && s.HasPermission(p.roles...) {
			return Decision{State: StateAllowed}
		}
	}
	return Decision{State: StateDenied, Redirect: p.redirect}
}
