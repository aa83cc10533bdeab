// internal/types/models.go
package types

import "strings"

// UserRole is the portal role that scopes what the assistant may disclose.
type UserRole string

const (
	RoleGuest   UserRole = "Guest"
	RoleStudent UserRole = "Student"
	RoleTeacher UserRole = "Teacher"
	RoleAdmin   UserRole = "Admin"
)

// ParseRole maps a case-insensitive role name to a UserRole. Unknown
// values map to RoleGuest.
func ParseRole(s string) UserRole {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin", "administrator":
		return RoleAdmin
	case "teacher", "faculty":
		return RoleTeacher
	case "student":
		return RoleStudent
	default:
		return RoleGuest
	}
}

// User is the authenticated caller. A nil *User means a guest.
type User struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email,omitempty"`
	Role       UserRole `json:"role"`
	Branch     string   `json:"branch,omitempty"`
	Department string   `json:"department,omitempty"`
	Semester   string   `json:"semester,omitempty"`
	Section    string   `json:"section,omitempty"`
}

// RoleOf returns the user's role, treating nil as a guest.
func RoleOf(u *User) UserRole {
	if u == nil || u.Role == "" {
		return RoleGuest
	}
	return u.Role
}

// IdentityOf returns the identity key for u. Users without a stable
// identifier share the guest key.
func IdentityOf(u *User) IdentityKey {
	if u == nil {
		return GuestIdentity
	}
	return NewIdentityKey(u.ID)
}
