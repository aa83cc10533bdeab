package session

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/campuschat/pkg/assistant"
)

// Formats supported by Export.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

type exportSource struct {
	Title    string  `yaml:"title,omitempty"`
	URL      string  `yaml:"url,omitempty"`
	Category string  `yaml:"category,omitempty"`
	Snippet  string  `yaml:"snippet,omitempty"`
	Score    float64 `yaml:"score,omitempty"`
}

type exportMessage struct {
	Role     string         `yaml:"role"`
	Content  string         `yaml:"content"`
	Sources  []exportSource `yaml:"sources,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

// Export writes messages to w in the given format.
func Export(w io.Writer, messages []assistant.Message, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if messages == nil {
			messages = []assistant.Message{}
		}
		return enc.Encode(messages)
	case FormatYAML, "yml":
		out := make([]exportMessage, 0, len(messages))
		for _, m := range messages {
			em := exportMessage{Role: string(m.Role), Content: m.Content, Metadata: m.Metadata}
			for _, src := range m.Sources {
				em.Sources = append(em.Sources, exportSource(src))
			}
			out = append(out, em)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatMarkdown, "md":
		return writeMarkdown(w, messages)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func writeMarkdown(w io.Writer, messages []assistant.Message) error {
	var b strings.Builder
	b.WriteString("# Conversation\n")
	for _, m := range messages {
		label := "Assistant"
		if m.Role == assistant.RoleUser {
			label = "You"
		}
		fmt.Fprintf(&b, "\n**%s:**\n\n%s\n", label, m.Content)
		if len(m.Sources) > 0 {
			b.WriteString("\nSources:\n")
			for _, src := range m.Sources {
				if src.URL != "" {
					fmt.Fprintf(&b, "- [%s](%s)\n", src.Title, src.URL)
				} else {
					fmt.Fprintf(&b, "- %s\n", src.Title)
				}
			}
		}
		if len(m.Metadata) > 0 && !IsWelcome(m) {
			keys := make([]string, 0, len(m.Metadata))
			for k := range m.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			pairs := make([]string, 0, len(keys))
			for _, k := range keys {
				pairs = append(pairs, fmt.Sprintf("%s=%v", k, m.Metadata[k]))
			}
			fmt.Fprintf(&b, "\n_%s_\n", strings.Join(pairs, ", "))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
