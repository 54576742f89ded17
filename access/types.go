package access

import (
	"encoding/json"
	"strings"
)

// Role is the closed set of actors the policy knows about.
type Role int

const (
	Guest Role = iota
	Client
	Provider
	Admin
)

func (r Role) String() string {
	switch r {
	case Client:
		return "client"
	case Provider:
		return "provider"
	case Admin:
		return "admin"
	default:
		return "guest"
	}
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// NormalizeRole maps a role claim from the identity provider onto a Role.
// Unknown or empty claims on an authenticated account fall back to Client.
func NormalizeRole(claim string) Role {
	switch strings.ToLower(strings.TrimSpace(claim)) {
	case "admin":
		return Admin
	case "provider", "barber", "barbeiro", "barbeiros":
		return Provider
	default:
		return Client
	}
}

// ParseAssignableRole accepts the roles an admin may hand out.
func ParseAssignableRole(claim string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(claim)) {
	case "client", "cliente":
		return Client, true
	case "provider", "barber", "barbeiro", "barbeiros":
		return Provider, true
	}
	return Guest, false
}

// User is the caller of an operation. The zero value is a guest.
type User struct {
	AccountID   string `json:"account_id,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Role        Role   `json:"role"`
}

func (u User) Authenticated() bool {
	return u.AccountID != "" && u.Role != Guest
}
