package personnel

import (
	"fmt"
	"strings"
	"time"
)

// Role decides which views and mutations a person may use.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleGuard      Role = "guard"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleSupervisor, RoleGuard:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// CanReview reports whether the role may see other people's attendance.
func (r Role) CanReview() bool {
	return r == RoleAdmin || r == RoleSupervisor
}

// Person is a user of the system.
type Person struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IDNumber  *string   `json:"id_number,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName is the "first last" form used on rosters.
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
