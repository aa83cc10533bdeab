package session

import (
	"strings"
	"text/template"

	"github.com/user/campuschat/internal/campus"
	"github.com/user/campuschat/internal/types"
	"github.com/user/campuschat/pkg/assistant"
)

// welcomeKind marks the seeded welcome message in Message.Metadata.
const welcomeKind = "welcome"

var welcomeTemplates = map[types.UserRole]*template.Template{
	types.RoleGuest: template.Must(template.New("guest").Parse(
		`Hello! I'm the Campus Assistant. I can answer questions about the campus, its departments and facilities, and public announcements. Sign in to ask about your own schedule, grades and attendance.`)),
	types.RoleStudent: template.Must(template.New("student").Parse(
		`Hi {{.Name}}! I'm your Campus Assistant.
{{- if or .Department .Semester}} I see you're in{{if .Department}} {{.Department}}{{end}}{{if .Semester}}{{if .Department}},{{end}} Semester {{.Semester}}{{end}}{{if .Section}}, Section {{.Section}}{{end}}.{{end}} Ask me about your timetable, grades, attendance, course documents or the latest announcements.`)),
	types.RoleTeacher: template.Must(template.New("teacher").Parse(
		`Welcome, {{.Name}}! I'm your Campus Assistant.
{{- if .Department}} Department: {{.Department}}.{{end}} I can help with your teaching schedule, assigned courses and the announcements for your classes.`)),
	types.RoleAdmin: template.Must(template.New("admin").Parse(
		`Welcome, {{.Name}}! Administrator Access is enabled. I can summarise users, documents, announcements and system status across the portal.`)),
}

type welcomeData struct {
	Name       string
	Department string
	Semester   string
	Section    string
}

// WelcomeText renders the welcome message for user. Profile values, when
// present, take precedence over the user record.
func WelcomeText(user *types.User, profile *campus.Profile) string {
	role := types.RoleOf(user)
	tmpl, ok := welcomeTemplates[role]
	if !ok {
		tmpl = welcomeTemplates[types.RoleGuest]
	}

	data := welcomeData{Name: "there"}
	if user != nil {
		data = welcomeData{
			Name:       firstSet(user.Name, "there"),
			Department: firstSet(user.Department, user.Branch),
			Semester:   user.Semester,
			Section:    user.Section,
		}
	}
	if profile != nil {
		data.Name = firstSet(profile.Basic.Name, data.Name)
		data.Department = firstSet(profile.Basic.Branch, data.Department)
		data.Semester = firstSet(profile.Basic.Semester.String(), data.Semester)
		data.Section = firstSet(profile.Basic.Section, data.Section)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "Hello! I'm the Campus Assistant. How can I help?"
	}
	return b.String()
}

// WelcomeMessage returns the seeded first message of a session.
func WelcomeMessage(user *types.User, profile *campus.Profile) assistant.Message {
	return assistant.Message{
		Role:     assistant.RoleModel,
		Content:  WelcomeText(user, profile),
		Metadata: map[string]any{"kind": welcomeKind},
	}
}

// IsWelcome reports whether m is a seeded welcome message.
func IsWelcome(m assistant.Message) bool {
	kind, _ := m.Metadata["kind"].(string)
	return m.Role == assistant.RoleModel && kind == welcomeKind
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
