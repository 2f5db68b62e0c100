package domain

import "time"

// Role is the closed set of privilege levels a user can hold.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes a role string coming from an untrusted boundary
// (stored data, server responses). Anything that is not exactly "admin"
// degrades to RoleUser so role handling stays exhaustive downstream.
func ParseRole(s string) Role {
	if s == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// AuthProvider identifies how an account authenticates.
type AuthProvider string

const (
	ProviderLocal    AuthProvider = "local"
	ProviderGoogle   AuthProvider = "google"
	ProviderFacebook AuthProvider = "facebook"
)

// User represents a registered user of the system.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	AvatarURL    string
	Provider     AuthProvider
	// ProviderSubject is the identity provider's stable account id for
	// federated users; empty for local accounts.
	ProviderSubject string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Summary is the identity snapshot embedded in a session. It is taken at
// login time and may go stale relative to the server's record.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	AvatarURL string `json:"avatar,omitempty"`
}

// Session pairs a server-issued bearer token with the user summary captured
// when the token was minted. At most one session is active per device;
// writing a new session fully replaces the prior one.
type Session struct {
	Token string  `json:"token"`
	User  Summary `json:"user"`
}
