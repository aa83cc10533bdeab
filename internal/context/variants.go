package context

import (
	"github.com/user/campuschat/internal/types"
)

// NA replaces any value the portal could not supply.
const NA = "N/A"

// Variant is one role's context. Each implementation carries exactly the
// fields that role may expose; Data renders them as the wire mapping.
type Variant interface {
	Role() types.UserRole
	Data() map[string]any
}

type AnnouncementBrief struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

type DocumentBrief struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Subject  string `json:"subject"`
	Uploaded string `json:"uploadDate"`
}

type SubjectBrief struct {
	Subject    string `json:"subject"`
	Percentage string `json:"percentage"`
}

type UserBrief struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Branch string `json:"branch"`
}

// GuestContext exposes public campus information only.
type GuestContext struct {
	GeneralInfo   CampusInfo
	Announcements []AnnouncementBrief
}

func (GuestContext) Role() types.UserRole { return types.RoleGuest }

func (c GuestContext) Data() map[string]any {
	return map[string]any{
		"generalInfo":   c.GeneralInfo.data(),
		"announcements": listOrNA(c.Announcements),
	}
}

// StudentContext exposes the caller's own academic record.
type StudentContext struct {
	GeneralInfo       CampusInfo
	Name              string
	Email             string
	Department        string
	Semester          string
	Section           string
	CGPA              string
	CurrentSGPA       string
	SGPA              map[string]string
	Attendance        string
	SubjectAttendance []SubjectBrief
	Timetable         map[string][]string
	Announcements     []AnnouncementBrief
	Documents         []DocumentBrief
}

func (StudentContext) Role() types.UserRole { return types.RoleStudent }

func (c StudentContext) Data() map[string]any {
	return map[string]any{
		"generalInfo":         c.GeneralInfo.data(),
		"name":                orNA(c.Name),
		"email":               orNA(c.Email),
		"department":          orNA(c.Department),
		"semester":            orNA(c.Semester),
		"section":             orNA(c.Section),
		"cgpa":                orNA(c.CGPA),
		"currentSemesterSGPA": orNA(c.CurrentSGPA),
		"sgpaHistory":         mapOrNA(c.SGPA),
		"overallAttendance":   orNA(c.Attendance),
		"subjectAttendance":   listOrNA(c.SubjectAttendance),
		"timetable":           mapOrNA(c.Timetable),
		"announcements":       listOrNA(c.Announcements),
		"documents":           listOrNA(c.Documents),
	}
}

// TeacherContext exposes the caller's own teaching schedule and courses.
type TeacherContext struct {
	GeneralInfo   CampusInfo
	Name          string
	Email         string
	Department    string
	Schedule      map[string][]string
	Courses       []string
	Sections      []string
	Announcements []AnnouncementBrief
	Documents     []DocumentBrief
}

func (TeacherContext) Role() types.UserRole { return types.RoleTeacher }

func (c TeacherContext) Data() map[string]any {
	return map[string]any{
		"generalInfo":      c.GeneralInfo.data(),
		"name":             orNA(c.Name),
		"email":            orNA(c.Email),
		"department":       orNA(c.Department),
		"teachingSchedule": mapOrNA(c.Schedule),
		"assignedCourses":  listOrNA(c.Courses),
		"sections":         listOrNA(c.Sections),
		// The portal exposes no roster endpoint to teachers.
		"studentsInCourses":          NA,
		"studentAttendanceInCourses": NA,
		"announcements":              listOrNA(c.Announcements),
		"documents":                  listOrNA(c.Documents),
	}
}

// AdminContext exposes aggregate counts and the full listings. Counts are
// negative when the listing could not be fetched.
type AdminContext struct {
	GeneralInfo        CampusInfo
	Name               string
	Email              string
	TotalUsers         int
	UsersByRole        map[string]int
	Users              []UserBrief
	TotalDocuments     int
	Documents          []DocumentBrief
	TotalAnnouncements int
	Announcements      []AnnouncementBrief
	FailedSources      []string
}

func (AdminContext) Role() types.UserRole { return types.RoleAdmin }

func (c AdminContext) Data() map[string]any {
	status := map[string]any{
		"contextSources": "ok",
		"failedSources":  listOrNA(c.FailedSources),
	}
	if len(c.FailedSources) > 0 {
		status["contextSources"] = "degraded"
	}
	return map[string]any{
		"generalInfo":        c.GeneralInfo.data(),
		"name":               orNA(c.Name),
		"email":              orNA(c.Email),
		"totalUsers":         countOrNA(c.TotalUsers),
		"usersByRole":        fetchedMap(c.UsersByRole, c.TotalUsers),
		"users":              fetchedList(c.Users, c.TotalUsers),
		"totalDocuments":     countOrNA(c.TotalDocuments),
		"documents":          fetchedList(c.Documents, c.TotalDocuments),
		"totalAnnouncements": countOrNA(c.TotalAnnouncements),
		"announcements":      fetchedList(c.Announcements, c.TotalAnnouncements),
		"systemStatus":       status,
		"financials":         NA,
	}
}

func orNA(s string) any {
	if s == "" {
		return NA
	}
	return s
}

func countOrNA(n int) any {
	if n < 0 {
		return NA
	}
	return n
}

func listOrNA[T any](items []T) any {
	if len(items) == 0 {
		return NA
	}
	return items
}

// fetchedList is N/A only when the listing was not fetched (n < 0). A
// fetched but empty listing is an empty list, consistent with its count.
func fetchedList[T any](items []T, n int) any {
	if n < 0 {
		return NA
	}
	if items == nil {
		return []T{}
	}
	return items
}

func fetchedMap[V any](m map[string]V, n int) any {
	if n < 0 {
		return NA
	}
	if m == nil {
		return map[string]V{}
	}
	return m
}

func mapOrNA[V any](m map[string]V) any {
	if len(m) == 0 {
		return NA
	}
	return m
}
