package user

import "testing"

func TestCanAddRole(t *testing.T) {
	const unknown = Role("principal")

	tests := []struct {
		acting Role
		target Role
		want   bool
	}{
		{RoleSuperAdmin, RoleSuperAdmin, false},
		{RoleSuperAdmin, RoleAdmin, true},
		{RoleSuperAdmin, RoleTeacher, true},
		{RoleSuperAdmin, RoleStudent, true},

		{RoleAdmin, RoleSuperAdmin, false},
		{RoleAdmin, RoleAdmin, false},
		{RoleAdmin, RoleTeacher, true},
		{RoleAdmin, RoleStudent, true},

		{RoleTeacher, RoleSuperAdmin, false},
		{RoleTeacher, RoleAdmin, false},
		{RoleTeacher, RoleTeacher, false},
		{RoleTeacher, RoleStudent, true},

		// legacy student-only fallback for students and unrecognized roles
		{RoleStudent, RoleSuperAdmin, false},
		{RoleStudent, RoleAdmin, false},
		{RoleStudent, RoleTeacher, false},
		{RoleStudent, RoleStudent, true},

		{unknown, RoleSuperAdmin, false},
		{unknown, RoleAdmin, false},
		{unknown, RoleTeacher, false},
		{unknown, RoleStudent, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.acting)+"->"+string(tt.target), func(t *testing.T) {
			if got := CanAddRole(tt.acting, tt.target); got != tt.want {
				t.Errorf("CanAddRole(%q, %q) = %v; want %v", tt.acting, tt.target, got, tt.want)
			}
		})
	}
}

func TestRolePriority(t *testing.T) {
	if !(RoleSuperAdmin.Priority() > RoleAdmin.Priority() &&
		RoleAdmin.Priority() > RoleTeacher.Priority() &&
		RoleTeacher.Priority() > RoleStudent.Priority()) {
		t.Error("role priorities are not strictly ordered")
	}
	if Role("principal").Known() {
		t.Error("unknown role reported as known")
	}
}
