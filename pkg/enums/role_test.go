package enums

import "testing"

func TestRoleHierarchy(t *testing.T) {
	if !RoleSuperAdmin.AtLeast(RoleAdmin) {
		t.Fatal("super_admin should satisfy admin")
	}
	if !RoleChurchAdmin.AtLeast(RolePriest) {
		t.Fatal("church_admin should satisfy priest")
	}
	if RoleEditor.AtLeast(RolePriest) {
		t.Fatal("editor must not satisfy priest")
	}
	if Role("bogus").AtLeast(RoleGuest) {
		t.Fatal("unknown roles satisfy nothing")
	}
	if !RoleAdmin.IsPlatformAdmin() || RoleChurchAdmin.IsPlatformAdmin() {
		t.Fatal("platform admin boundary is admin")
	}
}

func TestNormalizeRole(t *testing.T) {
	cases := map[string]Role{
		"":              RoleGuest,
		"super_admin":   RoleSuperAdmin,
		" Priest ":      RolePriest,
		"manager":       RoleChurchAdmin,
		"owner":         RoleChurchAdmin,
		"clergy":        RolePriest,
		"user":          RoleEditor,
		"secretary":     RoleEditor,
		"something_odd": RoleViewer,
	}
	for in, want := range cases {
		if got := NormalizeRole(in); got != want {
			t.Fatalf("NormalizeRole(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseRoleRejectsLegacyNames(t *testing.T) {
	if _, err := ParseRole("manager"); err == nil {
		t.Fatal("expected legacy name to be rejected")
	}
	if r, err := ParseRole("deacon"); err != nil || r != RoleDeacon {
		t.Fatalf("unexpected parse result %s %v", r, err)
	}
}

func TestOCRJobTransitions(t *testing.T) {
	if !OCRJobStatusPending.CanTransitionTo(OCRJobStatusProcessing) {
		t.Fatal("pending -> processing must be allowed")
	}
	if !OCRJobStatusFailed.CanTransitionTo(OCRJobStatusPending) {
		t.Fatal("failed -> pending retry must be allowed")
	}
	if OCRJobStatusCompleted.CanTransitionTo(OCRJobStatusPending) {
		t.Fatal("completed is terminal")
	}
	if OCRJobStatusPending.CanTransitionTo(OCRJobStatusCompleted) {
		t.Fatal("pending cannot skip processing")
	}
}
