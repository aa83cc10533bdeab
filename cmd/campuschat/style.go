package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/campuschat/pkg/assistant"
)

var (
	userLabel   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	modelLabel  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

func label(role assistant.Role) string {
	if role == assistant.RoleUser {
		return userLabel.Render("you")
	}
	return modelLabel.Render("assistant")
}

// printMessage writes one message with its role label and sources.
func printMessage(w io.Writer, m assistant.Message) {
	content := m.Content
	if isFailure(m) {
		content = errorStyle.Render(content)
	}
	fmt.Fprintf(w, "%s %s\n", label(m.Role), content)
	printSources(w, m)
}

func printSources(w io.Writer, m assistant.Message) {
	if len(m.Sources) == 0 {
		return
	}
	var b strings.Builder
	for _, src := range m.Sources {
		b.WriteString("  - ")
		b.WriteString(src.Title)
		if src.URL != "" {
			b.WriteString(" <" + src.URL + ">")
		}
		b.WriteString("\n")
	}
	fmt.Fprint(w, dimStyle.Render("sources:\n"+strings.TrimRight(b.String(), "\n")), "\n")
}

func isFailure(m assistant.Message) bool {
	failed, _ := m.Metadata["error"].(bool)
	return failed
}

func isCancelled(m assistant.Message) bool {
	cancelled, _ := m.Metadata["cancelled"].(bool)
	return cancelled
}
