package context

import (
	"slices"

	"github.com/user/campuschat/internal/types"
)

const (
	PermReadPublicInfo          = "read_public_info"
	PermReadPublicAnnouncements = "read_public_announcements"

	PermReadOwnSchedule   = "read_own_schedule"
	PermReadOwnGrades     = "read_own_grades"
	PermReadOwnAttendance = "read_own_attendance"
	PermReadCourseInfo    = "read_course_info"

	PermReadAssignedCourses          = "read_assigned_courses"
	PermReadStudentsInCourses        = "read_students_in_courses"
	PermReadStudentAttendanceCourses = "read_student_attendance_in_courses"

	PermReadAllUsers         = "read_all_users"
	PermReadAllDocuments     = "read_all_documents"
	PermReadSystemStatus     = "read_system_status"
	PermReadAllFinancials    = "read_all_financials"
	PermReadAllAnnouncements = "read_all_announcements"
)

var rolePermissions = map[types.UserRole][]string{
	types.RoleGuest: {
		PermReadPublicInfo,
		PermReadPublicAnnouncements,
	},
	types.RoleStudent: {
		PermReadOwnSchedule,
		PermReadOwnGrades,
		PermReadOwnAttendance,
		PermReadCourseInfo,
		PermReadPublicAnnouncements,
	},
	types.RoleTeacher: {
		PermReadOwnSchedule,
		PermReadAssignedCourses,
		PermReadStudentsInCourses,
		PermReadStudentAttendanceCourses,
		PermReadPublicAnnouncements,
	},
}

var adminOnly = []string{
	PermReadAllUsers,
	PermReadAllDocuments,
	PermReadSystemStatus,
	PermReadAllFinancials,
	PermReadAllAnnouncements,
}

// Permissions returns the fixed permission set for role, sorted. Admin
// holds every other role's permissions plus the admin-only set. Unknown
// roles get the guest set.
func Permissions(role types.UserRole) []string {
	var perms []string
	switch role {
	case types.RoleAdmin:
		for _, r := range []types.UserRole{types.RoleGuest, types.RoleStudent, types.RoleTeacher} {
			perms = append(perms, rolePermissions[r]...)
		}
		perms = append(perms, adminOnly...)
	case types.RoleStudent, types.RoleTeacher:
		perms = append(perms, rolePermissions[role]...)
	default:
		perms = append(perms, rolePermissions[types.RoleGuest]...)
	}
	slices.Sort(perms)
	return slices.Compact(perms)
}

// AdminOnly returns the permissions no role but Admin may hold.
func AdminOnly() []string {
	return slices.Clone(adminOnly)
}
