package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/user/campuschat/internal/types"
)

type valueKind int

const (
	kindString valueKind = iota
	kindSecret
	kindInt
	kindBool
	kindEnum
	kindRole
)

type keySpec struct {
	kind    valueKind
	choices []string
}

// schema lists every settable key. It mirrors the json tags on Config.
var schema = map[string]keySpec{
	"data_dir":  {kind: kindString},
	"log_level": {kind: kindEnum, choices: []string{"debug", "info", "warn", "error"}},

	"portal.base_url":        {kind: kindString},
	"portal.token":           {kind: kindSecret},
	"portal.timeout_seconds": {kind: kindInt},

	"chat.stream":         {kind: kindBool},
	"chat.cache":          {kind: kindBool},
	"chat.history_limit":  {kind: kindInt},
	"chat.max_concurrent": {kind: kindInt},

	"context.model":       {kind: kindString},
	"context.max_tokens":  {kind: kindInt},
	"context.item_tokens": {kind: kindInt},

	"campus.name":     {kind: kindString},
	"campus.location": {kind: kindString},
	"campus.website":  {kind: kindString},
	"campus.contact":  {kind: kindString},

	"storage.backend": {kind: kindEnum, choices: []string{"file", "sqlite", "memory"}},

	"user.id":         {kind: kindString},
	"user.name":       {kind: kindString},
	"user.email":      {kind: kindString},
	"user.role":       {kind: kindRole},
	"user.branch":     {kind: kindString},
	"user.department": {kind: kindString},
	"user.semester":   {kind: kindString},
	"user.section":    {kind: kindString},

	"voice.enabled":           {kind: kindBool},
	"voice.command":           {kind: kindString},
	"voice.recognize_command": {kind: kindString},

	"telegram.token": {kind: kindSecret},
	"telegram.role":  {kind: kindRole},

	"ui.banner_seconds": {kind: kindInt},
}

// Keys returns every settable key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return schema[key].kind == kindSecret
}

// ParseValue converts the command-line text for key into the value stored
// in the config file. Unknown keys and values the key cannot hold are
// rejected so a typo never reaches the file.
func ParseValue(key, text string) (any, error) {
	spec, ok := schema[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	text = strings.TrimSpace(text)
	switch spec.kind {
	case kindInt:
		n, err := strconv.Atoi(text)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s: expected a non-negative whole number, got %q", key, text)
		}
		return n, nil
	case kindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("%s: expected true or false, got %q", key, text)
		}
		return b, nil
	case kindEnum:
		v := strings.ToLower(text)
		if !slices.Contains(spec.choices, v) {
			return nil, fmt.Errorf("%s: expected one of %s, got %q", key, strings.Join(spec.choices, ", "), text)
		}
		return v, nil
	case kindRole:
		role := types.ParseRole(text)
		if role == types.RoleGuest && !strings.EqualFold(text, string(types.RoleGuest)) {
			return nil, fmt.Errorf("%s: expected Guest, Student, Teacher or Admin, got %q", key, text)
		}
		return string(role), nil
	default:
		return text, nil
	}
}

// Flatten turns the nested config map into dot-separated keys, e.g.
// {"portal": {"base_url": "x"}} becomes {"portal.base_url": "x"}.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	flatten("", m, out)
	return out
}

func flatten(prefix string, m map[string]any, out map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = v
	}
}

// Unflatten is the inverse of Flatten. A section that was overwritten by a
// scalar is replaced with a map when a nested key needs it.
func Unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range flat {
		setPath(out, strings.Split(k, "."), v)
	}
	return out
}

func setPath(m map[string]any, parts []string, v any) {
	for _, part := range parts[:len(parts)-1] {
		child, ok := m[part].(map[string]any)
		if !ok {
			child = make(map[string]any)
			m[part] = child
		}
		m = child
	}
	m[parts[len(parts)-1]] = v
}

// MaskSecrets returns a copy of flat with credential values reduced to
// "***" plus their last four characters. Empty credentials stay empty.
func MaskSecrets(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		out[k] = v
		s, ok := v.(string)
		if !IsSecretKey(k) || !ok || s == "" {
			continue
		}
		if len(s) > 4 {
			s = s[len(s)-4:]
		}
		out[k] = "***" + s
	}
	return out
}
