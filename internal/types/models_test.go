// internal/types/models_test.go
package types

import (
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := map[string]UserRole{
		"Admin":     RoleAdmin,
		"teacher":   RoleTeacher,
		" STUDENT ": RoleStudent,
		"":          RoleGuest,
		"janitor":   RoleGuest,
	}
	for in, want := range tests {
		if got := ParseRole(in); got != want {
			t.Errorf("ParseRole(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestIdentityOf(t *testing.T) {
	if got := IdentityOf(nil); got != GuestIdentity {
		t.Errorf("expected guest for nil user, got %s", got)
	}
	if got := IdentityOf(&User{ID: "telegram:42", Role: RoleGuest}); got != "telegram:42" {
		t.Errorf("expected guest with an id to keep it, got %s", got)
	}
	if got := IdentityOf(&User{ID: "u1", Role: RoleStudent}); got != "u1" {
		t.Errorf("expected u1, got %s", got)
	}
	if got := IdentityOf(&User{Role: RoleStudent}); got != GuestIdentity {
		t.Errorf("expected guest when id is missing, got %s", got)
	}
}
