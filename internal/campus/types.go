package campus

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexString accepts a JSON string, number or boolean and keeps its text
// form. null decodes to the empty string. The portal stores semesters and
// grades as either strings or numbers depending on the record's age.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	*f = FlexString(data)
	return nil
}

func (f FlexString) String() string { return string(f) }

// Profile mirrors GET /api/user/profile.
type Profile struct {
	Basic         Basic          `json:"basic"`
	Academic      *Academic      `json:"academic,omitempty"`
	Attendance    *Attendance    `json:"attendance,omitempty"`
	Timetable     *Timetable     `json:"timetable,omitempty"`
	Announcements []Announcement `json:"announcements,omitempty"`
	Documents     []Document     `json:"documents,omitempty"`
}

type Basic struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Role     string     `json:"role"`
	Branch   string     `json:"branch"`
	Semester FlexString `json:"semester"`
	Section  string     `json:"section"`
}

type Academic struct {
	CGPA                FlexString            `json:"cgpa"`
	SGPA                map[string]FlexString `json:"sgpa,omitempty"`
	CurrentSemesterSGPA FlexString            `json:"currentSemesterSGPA"`
}

type Attendance struct {
	Overall  FlexString          `json:"overall"`
	Subjects []SubjectAttendance `json:"subjects,omitempty"`
}

type SubjectAttendance struct {
	Subject    string     `json:"subject"`
	Attended   FlexString `json:"attended,omitempty"`
	Total      FlexString `json:"total,omitempty"`
	Percentage FlexString `json:"percentage,omitempty"`
}

// Timetable covers both the student class timetable and a teacher's
// personal teaching schedule (TeacherName set).
type Timetable struct {
	Branch      string            `json:"branch"`
	Section     string            `json:"section,omitempty"`
	Semester    FlexString        `json:"semester,omitempty"`
	TeacherName string            `json:"teacherName,omitempty"`
	Schedule    map[string][]Slot `json:"schedule,omitempty"`
}

type Slot struct {
	Period  FlexString `json:"period,omitempty"`
	Time    string     `json:"time,omitempty"`
	Subject string     `json:"subject,omitempty"`
	Teacher string     `json:"teacher,omitempty"`
	Room    string     `json:"room,omitempty"`
	Branch  string     `json:"branch,omitempty"`
	Section string     `json:"section,omitempty"`
}

type Announcement struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Date       string     `json:"date,omitempty"`
	TargetRole string     `json:"targetRole,omitempty"`
	Branch     string     `json:"branch,omitempty"`
	Semester   FlexString `json:"semester,omitempty"`
}

// Document is a portal document as listed by either the profile endpoint
// (name/type) or GET /api/documents (originalname/documentType).
type Document struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Subject    string     `json:"subject,omitempty"`
	Semester   FlexString `json:"semester,omitempty"`
	Branch     string     `json:"branch,omitempty"`
	UploadDate string     `json:"uploadDate,omitempty"`
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           string     `json:"id"`
		Name         string     `json:"name"`
		OriginalName string     `json:"originalname"`
		Type         string     `json:"type"`
		DocumentType string     `json:"documentType"`
		Subject      string     `json:"subject"`
		Semester     FlexString `json:"semester"`
		Branch       string     `json:"branch"`
		UploadDate   string     `json:"uploadDate"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Document{
		ID:         raw.ID,
		Name:       firstNonEmpty(raw.Name, raw.OriginalName),
		Type:       firstNonEmpty(raw.Type, raw.DocumentType),
		Subject:    raw.Subject,
		Semester:   raw.Semester,
		Branch:     raw.Branch,
		UploadDate: raw.UploadDate,
	}
	return nil
}

// UserSummary is one row of the admin-only GET /api/users listing.
type UserSummary struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Role     string     `json:"role"`
	Branch   string     `json:"branch,omitempty"`
	Semester FlexString `json:"semester,omitempty"`
	Section  string     `json:"section,omitempty"`
}

// Bundle is everything fetched for one context assembly. Nil fields were
// either not requested for the role or failed to load.
type Bundle struct {
	Profile       *Profile
	Announcements []Announcement
	Documents     []Document
	Users         []UserSummary
	// Failed lists the endpoints that could not be fetched.
	Failed []string
}

// Empty reports whether nothing was fetched.
func (b *Bundle) Empty() bool {
	return b == nil || (b.Profile == nil && b.Announcements == nil && b.Documents == nil && b.Users == nil)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
