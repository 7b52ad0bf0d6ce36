package rbac

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// ValidRole reports whether r is one of the three account roles.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleTeacher || r == RoleStudent
}

// Default policy. Attempt and submission permissions are student-only; admins
// get no wildcard so they cannot sit tests.
var RolePermissions = map[string][]string{
	RoleStudent: {
		"subject:view",
		"assessment:list",
		"attempt:start",
		"result:submit",
		"result:view-own",
		"dashboard:view",
	},
	RoleTeacher: {
		"subject:view",
		"question:view",
		"question:create",
		"question:update-own",
		"question:delete",
		"assessment:*",
		"result:view-student",
		"users:list",
		"users:view",
	},
	RoleAdmin: {
		"subject:*",
		"question:view",
		"question:delete",
		"assessment:*",
		"result:view-student",
		"users:*",
		"events:read",
	},
}
