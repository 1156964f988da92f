package domain

// Role is the account role carried in the caller context.
type Role string

const (
	RoleIssuer   Role = "issuer"
	RoleHolder   Role = "holder"
	RoleVerifier Role = "verifier"
)

// IsValid returns true if the role is a known valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleIssuer, RoleHolder, RoleVerifier:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Caller is the verified identity of the account performing an operation.
// It is produced by the authentication layer and trusted as-is.
type Caller struct {
	UserID UserID
	Role   Role
	OrgID  OrgID
}

// HasRole reports whether the caller carries the given role.
func (c Caller) HasRole(r Role) bool {
	return c.Role == r
}

// IsZero reports whether no caller was resolved.
func (c Caller) IsZero() bool {
	return c.UserID.IsNil()
}
