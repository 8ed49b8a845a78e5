package domain

import "time"

// PrincipalKind discriminates the two account variants. Admins self-register
// and stay disabled until they confirm their email; users are provisioned by
// an admin and are usable immediately.
type PrincipalKind string

const (
	KindAdmin PrincipalKind = "ADMIN"
	KindUser  PrincipalKind = "USER"
)

// Principal models an authenticatable identity, admin or user.
type Principal struct {
	ID           string        `json:"id"`
	Kind         PrincipalKind `json:"kind"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	FirstName    string        `json:"first_name,omitempty"`
	LastName     string        `json:"last_name,omitempty"`
	FullName     string        `json:"full_name,omitempty"`
	PhoneNumber  string        `json:"phone_number,omitempty"`
	JobTitle     string        `json:"job_title,omitempty"`
	Department   string        `json:"department,omitempty"`
	Roles        []Role        `json:"roles"`
	Enabled      bool          `json:"enabled"`
	// CreatedUnder holds the provisioning admin's ID. Empty for admins.
	CreatedUnder string `json:"created_under,omitempty"`
	// ResetToken records the value of an outstanding password-reset token.
	ResetToken string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName prefers the explicit full name, falling back to first+last.
func (p *Principal) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// HasRole reports whether the principal holds the named role.
func (p *Principal) HasRole(name string) bool {
	for _, r := range p.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// AssignRole adds a role, keeping the set unique by name.
func (p *Principal) AssignRole(r Role) {
	if !p.HasRole(r.Name) {
		p.Roles = append(p.Roles, r)
	}
}

// RoleNames returns the names of all assigned roles.
func (p *Principal) RoleNames() []string {
	names := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		names = append(names, r.Name)
	}
	return names
}
