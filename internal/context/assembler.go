package context

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/user/campuschat/internal/campus"
	"github.com/user/campuschat/internal/types"
	"github.com/user/campuschat/pkg/assistant"
)

// Payload is the permission-scoped context attached to one chat request.
type Payload struct {
	Role        types.UserRole `json:"role"`
	Name        string         `json:"name"`
	Permissions []string       `json:"permissions"`
	Data        map[string]any `json:"data"`
}

// Wire converts the payload into the request body's context object.
func (p *Payload) Wire() assistant.RequestContext {
	return assistant.RequestContext{
		Role:        string(p.Role),
		Name:        p.Name,
		Permissions: p.Permissions,
		Data:        p.Data,
	}
}

// Assembler builds context payloads. It holds no per-user state, so one
// Assembler serves every session.
type Assembler struct {
	info   CampusInfo
	engine *Engine
}

// NewAssembler creates an assembler. engine may be nil, in which case
// free-text values are normalised but not trimmed.
func NewAssembler(info CampusInfo, engine *Engine) *Assembler {
	return &Assembler{info: info, engine: engine}
}

// Assemble returns the context for user, preferring the fetched bundle and
// falling back to what the user record alone provides. It never fails.
func (a *Assembler) Assemble(user *types.User, bundle *campus.Bundle) (payload Payload) {
	role := types.RoleOf(user)
	payload = Payload{
		Role:        role,
		Name:        displayName(user),
		Permissions: Permissions(role),
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("context assembly failed, using static context", "role", string(role), "panic", fmt.Sprint(r))
			payload.Data = a.StaticData(user).Data()
		}
	}()

	var v Variant
	if bundle.Empty() {
		v = a.StaticData(user)
	} else {
		v = a.FlattenBundle(user, bundle)
	}
	payload.Data = v.Data()
	return payload
}

// StaticData builds the role's context from the user record only. Every
// value the record cannot supply is N/A.
func (a *Assembler) StaticData(user *types.User) Variant {
	switch types.RoleOf(user) {
	case types.RoleStudent:
		return StudentContext{
			GeneralInfo: a.info,
			Name:        user.Name,
			Email:       user.Email,
			Department:  department(user),
			Semester:    user.Semester,
			Section:     user.Section,
		}
	case types.RoleTeacher:
		return TeacherContext{
			GeneralInfo: a.info,
			Name:        user.Name,
			Email:       user.Email,
			Department:  department(user),
		}
	case types.RoleAdmin:
		return AdminContext{
			GeneralInfo:        a.info,
			Name:               user.Name,
			Email:              user.Email,
			TotalUsers:         -1,
			TotalDocuments:     -1,
			TotalAnnouncements: -1,
		}
	default:
		return GuestContext{GeneralInfo: a.info}
	}
}

// FlattenBundle builds the role's context from a fetched bundle. Sources
// the role may not see are ignored even when present in the bundle.
func (a *Assembler) FlattenBundle(user *types.User, bundle *campus.Bundle) Variant {
	role := types.RoleOf(user)
	if bundle == nil {
		bundle = &campus.Bundle{}
	}
	profile := ownProfile(user, bundle.Profile)

	switch role {
	case types.RoleStudent:
		return a.student(user, profile, bundle)
	case types.RoleTeacher:
		return a.teacher(user, profile, bundle)
	case types.RoleAdmin:
		return a.admin(user, profile, bundle)
	default:
		return GuestContext{
			GeneralInfo:   a.info,
			Announcements: a.announcements(publicAnnouncements(bundle.Announcements, types.RoleGuest, nil)),
		}
	}
}

func (a *Assembler) student(user *types.User, p *campus.Profile, bundle *campus.Bundle) StudentContext {
	c := a.StaticData(user).(StudentContext)
	anns := bundle.Announcements
	if p != nil {
		c.Name = firstSet(p.Basic.Name, c.Name)
		c.Email = firstSet(p.Basic.Email, c.Email)
		c.Department = firstSet(p.Basic.Branch, c.Department)
		c.Semester = firstSet(p.Basic.Semester.String(), c.Semester)
		c.Section = firstSet(p.Basic.Section, c.Section)
		if p.Academic != nil {
			c.CGPA = p.Academic.CGPA.String()
			c.CurrentSGPA = p.Academic.CurrentSemesterSGPA.String()
			c.SGPA = make(map[string]string, len(p.Academic.SGPA))
			for sem, v := range p.Academic.SGPA {
				if v != "" {
					c.SGPA[sem] = v.String()
				}
			}
			if c.CurrentSGPA == "" && c.Semester != "" {
				c.CurrentSGPA = c.SGPA["sem"+c.Semester]
			}
		}
		if p.Attendance != nil {
			c.Attendance = p.Attendance.Overall.String()
			for _, s := range p.Attendance.Subjects {
				c.SubjectAttendance = append(c.SubjectAttendance, SubjectBrief{
					Subject:    orNAString(s.Subject),
					Percentage: orNAString(attendancePercentage(s)),
				})
			}
		}
		if p.Timetable != nil {
			c.Timetable = schedule(p.Timetable.Schedule)
		}
		if p.Announcements != nil {
			anns = p.Announcements
		}
		c.Documents = documents(p.Documents)
	}
	c.Announcements = a.announcements(publicAnnouncements(anns, types.RoleStudent, &c))
	return c
}

func (a *Assembler) teacher(user *types.User, p *campus.Profile, bundle *campus.Bundle) TeacherContext {
	c := a.StaticData(user).(TeacherContext)
	anns := bundle.Announcements
	if p != nil {
		c.Name = firstSet(p.Basic.Name, c.Name)
		c.Email = firstSet(p.Basic.Email, c.Email)
		c.Department = firstSet(p.Basic.Branch, c.Department)
		if p.Timetable != nil {
			if c.Department == "" {
				c.Department = p.Timetable.Branch
			}
			c.Schedule = schedule(p.Timetable.Schedule)
			c.Courses, c.Sections = courses(p.Timetable.Schedule)
		}
		if p.Announcements != nil {
			anns = p.Announcements
		}
		c.Documents = documents(p.Documents)
	}
	c.Announcements = a.announcements(publicAnnouncements(anns, types.RoleTeacher, nil))
	return c
}

func (a *Assembler) admin(user *types.User, p *campus.Profile, bundle *campus.Bundle) AdminContext {
	c := a.StaticData(user).(AdminContext)
	if p != nil {
		c.Name = firstSet(p.Basic.Name, c.Name)
		c.Email = firstSet(p.Basic.Email, c.Email)
	}
	if bundle.Users != nil {
		c.TotalUsers = len(bundle.Users)
		c.UsersByRole = make(map[string]int)
		for _, u := range bundle.Users {
			role := string(types.ParseRole(u.Role))
			c.UsersByRole[role]++
			c.Users = append(c.Users, UserBrief{
				Name:   orNAString(u.Name),
				Email:  orNAString(u.Email),
				Role:   role,
				Branch: orNAString(u.Branch),
			})
		}
	}
	if bundle.Documents != nil {
		c.TotalDocuments = len(bundle.Documents)
		c.Documents = documents(bundle.Documents)
	}
	if bundle.Announcements != nil {
		c.TotalAnnouncements = len(bundle.Announcements)
		c.Announcements = a.announcements(bundle.Announcements)
	}
	c.FailedSources = slices.Clone(bundle.Failed)
	slices.Sort(c.FailedSources)
	return c
}

// announcements normalises each announcement and keeps as many as fit the
// token budget, newest first as delivered by the portal.
func (a *Assembler) announcements(anns []campus.Announcement) []AnnouncementBrief {
	if len(anns) == 0 {
		return nil
	}
	briefs := make([]AnnouncementBrief, 0, len(anns))
	texts := make([]string, 0, len(anns))
	for _, ann := range anns {
		b := AnnouncementBrief{
			Title:   orNAString(a.engine.text(ann.Title)),
			Content: orNAString(a.engine.text(ann.Content)),
			Date:    orNAString(ann.Date),
		}
		briefs = append(briefs, b)
		texts = append(texts, b.Title+"\n"+b.Content)
	}
	return briefs[:a.engine.fit(texts)]
}

// ownProfile discards a profile that does not belong to user.
func ownProfile(user *types.User, p *campus.Profile) *campus.Profile {
	if p == nil || user == nil {
		return nil
	}
	if p.Basic.Role != "" && types.ParseRole(p.Basic.Role) != types.RoleOf(user) {
		slog.Warn("discarding profile with mismatched role", "role", string(types.RoleOf(user)), "profile_role", p.Basic.Role)
		return nil
	}
	if user.Email != "" && p.Basic.Email != "" && !strings.EqualFold(user.Email, p.Basic.Email) {
		slog.Warn("discarding profile for another user", "role", string(types.RoleOf(user)))
		return nil
	}
	return p
}

// publicAnnouncements keeps the announcements addressed to role. For
// students, branch and semester targeting is honoured when known.
func publicAnnouncements(anns []campus.Announcement, role types.UserRole, student *StudentContext) []campus.Announcement {
	var out []campus.Announcement
	for _, ann := range anns {
		target := strings.ToLower(ann.TargetRole)
		switch role {
		case types.RoleGuest:
			if target != "" && target != "both" && target != "all" {
				continue
			}
		case types.RoleStudent:
			if target == "teachers" {
				continue
			}
			if student != nil {
				if ann.Branch != "" && student.Department != "" && !strings.EqualFold(ann.Branch, student.Department) {
					continue
				}
				if ann.Semester != "" && student.Semester != "" && ann.Semester.String() != student.Semester {
					continue
				}
			}
		case types.RoleTeacher:
			if target == "students" {
				continue
			}
		}
		out = append(out, ann)
	}
	return out
}

func documents(docs []campus.Document) []DocumentBrief {
	var out []DocumentBrief
	for _, d := range docs {
		out = append(out, DocumentBrief{
			Name:     orNAString(d.Name),
			Type:     orNAString(d.Type),
			Subject:  orNAString(d.Subject),
			Uploaded: orNAString(d.UploadDate),
		})
	}
	return out
}

func schedule(days map[string][]campus.Slot) map[string][]string {
	if len(days) == 0 {
		return nil
	}
	out := make(map[string][]string, len(days))
	for day, slots := range days {
		for _, s := range slots {
			out[day] = append(out[day], formatSlot(s))
		}
	}
	return out
}

func formatSlot(s campus.Slot) string {
	var parts []string
	if t := firstSet(s.Time, s.Period.String()); t != "" {
		parts = append(parts, t)
	}
	parts = append(parts, orNAString(s.Subject))
	var where []string
	if s.Room != "" {
		where = append(where, s.Room)
	}
	if s.Branch != "" || s.Section != "" {
		where = append(where, strings.TrimSpace(s.Branch+" "+s.Section))
	}
	if s.Teacher != "" {
		where = append(where, s.Teacher)
	}
	line := strings.Join(parts, " ")
	if len(where) > 0 {
		line += " (" + strings.Join(where, ", ") + ")"
	}
	return line
}

// courses derives the distinct subjects and class sections a teacher's
// schedule covers.
func courses(days map[string][]campus.Slot) (subjects, sections []string) {
	seenSubject := map[string]bool{}
	seenSection := map[string]bool{}
	for _, slots := range days {
		for _, s := range slots {
			if s.Subject != "" && !seenSubject[s.Subject] {
				seenSubject[s.Subject] = true
				subjects = append(subjects, s.Subject)
			}
			if sec := strings.TrimSpace(s.Branch + " " + s.Section); sec != "" && !seenSection[sec] {
				seenSection[sec] = true
				sections = append(sections, sec)
			}
		}
	}
	sort.Strings(subjects)
	sort.Strings(sections)
	return subjects, sections
}

func attendancePercentage(s campus.SubjectAttendance) string {
	if s.Percentage != "" {
		return s.Percentage.String()
	}
	if s.Attended != "" && s.Total != "" {
		return s.Attended.String() + "/" + s.Total.String()
	}
	return ""
}

func department(u *types.User) string {
	if u == nil {
		return ""
	}
	return firstSet(u.Department, u.Branch)
}

func displayName(u *types.User) string {
	if u == nil || u.Name == "" {
		return string(types.RoleGuest)
	}
	return u.Name
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func orNAString(s string) string {
	if s == "" {
		return NA
	}
	return s
}
