package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/campuschat/internal/types"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.json")
}

func writeTestConfig(t *testing.T, path string, cfg *Config) {
	t.Helper()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	path := tempConfigPath(t)

	original := &Config{
		DataDir:  "/tmp/test-data",
		LogLevel: "debug",
	}
	original.Portal.BaseURL = "https://portal.example.edu"
	original.Portal.Token = "jwt-round-trip"
	original.Portal.TimeoutSeconds = 30
	original.Chat.Stream = true
	original.Chat.HistoryLimit = 6
	original.Chat.MaxConcurrent = 4
	original.Context.Model = "gpt-4"
	original.Context.MaxTokens = 4000
	original.Storage.Backend = "sqlite"
	original.User.ID = "u-42"
	original.User.Role = "Student"
	original.Telegram.Token = "bot-token-456"

	// Save
	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file does not exist after Save: %v", err)
	}

	// Reload
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Compare key fields
	if loaded.DataDir != original.DataDir {
		t.Errorf("DataDir mismatch: %v != %v", loaded.DataDir, original.DataDir)
	}
	if loaded.LogLevel != original.LogLevel {
		t.Errorf("LogLevel mismatch: %v != %v", loaded.LogLevel, original.LogLevel)
	}
	if loaded.Chat.MaxConcurrent != original.Chat.MaxConcurrent {
		t.Errorf("Chat.MaxConcurrent mismatch: %v != %v", loaded.Chat.MaxConcurrent, original.Chat.MaxConcurrent)
	}
	if loaded.Chat.HistoryLimit != original.Chat.HistoryLimit {
		t.Errorf("Chat.HistoryLimit mismatch: %v != %v", loaded.Chat.HistoryLimit, original.Chat.HistoryLimit)
	}
	if loaded.Portal.BaseURL != original.Portal.BaseURL {
		t.Errorf("Portal.BaseURL mismatch: %v != %v", loaded.Portal.BaseURL, original.Portal.BaseURL)
	}
	if loaded.Portal.Token != original.Portal.Token {
		t.Errorf("Portal.Token mismatch: %v != %v", loaded.Portal.Token, original.Portal.Token)
	}
	if loaded.Context.Model != original.Context.Model {
		t.Errorf("Context.Model mismatch: %v != %v", loaded.Context.Model, original.Context.Model)
	}
	if loaded.Storage.Backend != original.Storage.Backend {
		t.Errorf("Storage.Backend mismatch: %v != %v", loaded.Storage.Backend, original.Storage.Backend)
	}
	if loaded.User.Role != original.User.Role {
		t.Errorf("User.Role mismatch: %v != %v", loaded.User.Role, original.User.Role)
	}
	if loaded.Telegram.Token != original.Telegram.Token {
		t.Errorf("Telegram.Token mismatch: %v != %v", loaded.Telegram.Token, original.Telegram.Token)
	}
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify no temp file left behind
	tmpPath := path + ".tmp"
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Errorf("temp file should not exist after successful save")
	}

	// Verify the file is valid JSON
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("saved file is not valid JSON: %v", err)
	}
}

func TestToMap(t *testing.T) {
	cfg := &Config{
		DataDir:  "/tmp/test",
		LogLevel: "debug",
	}
	cfg.Portal.BaseURL = "https://portal.example.edu"
	cfg.Context.Model = "gpt-4"
	cfg.Context.MaxTokens = 2000

	m, err := ToMap(cfg)
	if err != nil {
		t.Fatalf("ToMap failed: %v", err)
	}

	if m["data_dir"] != "/tmp/test" {
		t.Errorf("expected data_dir=/tmp/test, got %v", m["data_dir"])
	}
	if m["log_level"] != "debug" {
		t.Errorf("expected log_level=debug, got %v", m["log_level"])
	}

	portal, ok := m["portal"].(map[string]any)
	if !ok {
		t.Fatalf("expected portal to be map, got %T", m["portal"])
	}
	if portal["base_url"] != "https://portal.example.edu" {
		t.Errorf("expected portal.base_url, got %v", portal["base_url"])
	}
	ctx, ok := m["context"].(map[string]any)
	if !ok {
		t.Fatalf("expected context to be map, got %T", m["context"])
	}
	if ctx["model"] != "gpt-4" {
		t.Errorf("expected context.model=gpt-4, got %v", ctx["model"])
	}
	// JSON numbers are float64
	if ctx["max_tokens"] != float64(2000) {
		t.Errorf("expected context.max_tokens=2000, got %v", ctx["max_tokens"])
	}
}

func TestListValues_NoMask(t *testing.T) {
	cfg := &Config{
		LogLevel: "info",
	}
	cfg.Portal.Token = "jwt-secret-1234"
	cfg.Telegram.Token = "bot-token-abcd"

	flat, err := ListValues(cfg, false)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}

	// Secrets should be unmasked
	if flat["portal.token"] != "jwt-secret-1234" {
		t.Errorf("expected unmasked portal.token, got %v", flat["portal.token"])
	}
	if flat["telegram.token"] != "bot-token-abcd" {
		t.Errorf("expected unmasked telegram.token, got %v", flat["telegram.token"])
	}
	if flat["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", flat["log_level"])
	}
}

func TestListValues_WithMask(t *testing.T) {
	cfg := &Config{
		LogLevel: "info",
	}
	cfg.Portal.Token = "jwt-secret-1234"
	cfg.Telegram.Token = "bot-token-abcd"

	flat, err := ListValues(cfg, true)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}

	// Secrets should be masked
	if flat["portal.token"] != "***1234" {
		t.Errorf("expected masked portal.token=***1234, got %v", flat["portal.token"])
	}
	if flat["telegram.token"] != "***abcd" {
		t.Errorf("expected masked telegram.token=***abcd, got %v", flat["telegram.token"])
	}

	// Non-secrets should be unchanged
	if flat["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", flat["log_level"])
	}
}

func TestGetValue_ExistingKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "debug"}
	cfg.Chat.MaxConcurrent = 8
	cfg.Context.Model = "gpt-4"
	writeTestConfig(t, path, cfg)

	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected log_level=debug, got %v", v)
	}

	v, err = GetValue(path, "context.model")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "gpt-4" {
		t.Errorf("expected context.model=gpt-4, got %v", v)
	}

	v, err = GetValue(path, "chat.max_concurrent")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	// JSON numbers are float64
	if v != float64(8) {
		t.Errorf("expected chat.max_concurrent=8, got %v (%T)", v, v)
	}
}

func TestGetValue_UnknownKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	writeTestConfig(t, path, cfg)

	_, err := GetValue(path, "nonexistent.key")
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	expected := "unknown config key: nonexistent.key"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestSetValue_String(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	cfg.Portal.BaseURL = "https://portal.example.edu"
	writeTestConfig(t, path, cfg)

	// Set a string value
	if err := SetValue(path, "log_level", "debug"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	// Verify it was set
	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected log_level=debug after set, got %v", v)
	}

	// Verify other values are preserved
	v, err = GetValue(path, "portal.base_url")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "https://portal.example.edu" {
		t.Errorf("expected portal.base_url preserved, got %v", v)
	}
}

func TestSetValue_Numeric(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.Chat.HistoryLimit = 10
	writeTestConfig(t, path, cfg)

	// Set a numeric value (JSON parseable)
	if err := SetValue(path, "chat.history_limit", "16"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "chat.history_limit")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != float64(16) {
		t.Errorf("expected chat.history_limit=16, got %v (%T)", v, v)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Chat.HistoryLimit != 16 {
		t.Errorf("expected reloaded history limit 16, got %d", loaded.Chat.HistoryLimit)
	}
}

func TestSetValue_Boolean(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	writeTestConfig(t, path, cfg)

	// Set a boolean value (JSON parseable)
	if err := SetValue(path, "voice.enabled", "true"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "voice.enabled")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != true {
		t.Errorf("expected voice.enabled=true, got %v (%T)", v, v)
	}
}

func TestSetValue_RejectsFraction(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.Context.MaxTokens = 2000
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "context.max_tokens", "0.3"); err == nil {
		t.Fatal("expected error for fractional token budget")
	}

	v, err := GetValue(path, "context.max_tokens")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != float64(2000) {
		t.Errorf("expected context.max_tokens unchanged, got %v", v)
	}
}

func TestSetValue_NestedKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.User.Role = "Guest"
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "user.role", "Teacher"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "user.role")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "Teacher" {
		t.Errorf("expected user.role=Teacher, got %v", v)
	}
}

func TestSetValue_UnknownKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	writeTestConfig(t, path, cfg)

	err := SetValue(path, "custom.setting", "value")
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if err.Error() != "unknown config key: custom.setting" {
		t.Errorf("unexpected error %q", err.Error())
	}

	raw, err := readRaw(path)
	if err != nil {
		t.Fatalf("readRaw failed: %v", err)
	}
	if _, ok := raw["custom"]; ok {
		t.Error("expected unknown key not to be written")
	}
}

func TestSetValue_InvalidBackendLeavesFile(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.Storage.Backend = "sqlite"
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "storage.backend", "postgres"); err == nil {
		t.Fatal("expected error for unsupported backend")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Storage.Backend != "sqlite" {
		t.Errorf("expected backend to stay sqlite, got %q", loaded.Storage.Backend)
	}
}

func TestSetValue_SemesterStaysString(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, &Config{})

	if err := SetValue(path, "user.semester", "5"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.User.Semester != "5" {
		t.Errorf("expected semester \"5\", got %q", loaded.User.Semester)
	}
}

func TestSetValue_NonexistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist", "config.json")
	err := SetValue(path, "log_level", "debug")
	if err == nil {
		t.Fatal("expected error for nonexistent file, got nil")
	}
}

func TestGetValue_NonexistentFile(t *testing.T) {
	path := tempConfigPath(t)

	// File doesn't exist yet; Load will create it with defaults
	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue on new config failed: %v", err)
	}
	// Default log_level is "info"
	if v != "info" {
		t.Errorf("expected default log_level=info, got %v", v)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.json")

	cfg := &Config{LogLevel: "warn"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save should create parent directory, got: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file should exist: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CAMPUSCHAT_BASE_URL", "")
	t.Setenv("CAMPUSCHAT_TOKEN", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Chat.Stream || !cfg.Chat.Cache {
		t.Error("expected streaming and cache enabled by default")
	}
	if cfg.Chat.HistoryLimit != 10 {
		t.Errorf("expected history limit 10, got %d", cfg.Chat.HistoryLimit)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("expected file backend, got %q", cfg.Storage.Backend)
	}
	if cfg.BannerDelay() != 5*time.Second {
		t.Errorf("expected 5s banner, got %v", cfg.BannerDelay())
	}
	if cfg.CurrentUser() != nil {
		t.Error("expected guest (nil user) by default")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected defaults written to disk: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CAMPUSCHAT_BASE_URL", "https://env.example.edu")
	t.Setenv("CAMPUSCHAT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-bot")
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.Portal.BaseURL = "https://file.example.edu"
	writeTestConfig(t, path, cfg)

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Portal.BaseURL != "https://env.example.edu" {
		t.Errorf("expected env base url, got %q", loaded.Portal.BaseURL)
	}
	if loaded.Portal.Token != "env-token" {
		t.Errorf("expected env token, got %q", loaded.Portal.Token)
	}
	if loaded.Telegram.Token != "env-bot" {
		t.Errorf("expected env bot token, got %q", loaded.Telegram.Token)
	}

	// env values must not leak into the file
	v, err := GetValue(path, "portal.base_url")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "https://file.example.edu" {
		t.Errorf("expected file value preserved, got %v", v)
	}
}

func TestCurrentUser(t *testing.T) {
	cfg := &Config{}
	cfg.User.ID = "s-1"
	cfg.User.Name = "Asha"
	cfg.User.Role = "student"
	cfg.User.Semester = "5"

	u := cfg.CurrentUser()
	if u == nil {
		t.Fatal("expected a user")
	}
	if u.Role != types.RoleStudent {
		t.Errorf("expected Student role, got %q", u.Role)
	}
	if u.Semester != "5" {
		t.Errorf("expected semester 5, got %q", u.Semester)
	}

	cfg.User.ID = ""
	if cfg.CurrentUser() != nil {
		t.Error("expected nil user without an id")
	}
}

func TestPortalTimeout(t *testing.T) {
	cfg := &Config{}
	if cfg.PortalTimeout() != 60*time.Second {
		t.Errorf("expected 60s default, got %v", cfg.PortalTimeout())
	}
	cfg.Portal.TimeoutSeconds = 15
	if cfg.PortalTimeout() != 15*time.Second {
		t.Errorf("expected 15s, got %v", cfg.PortalTimeout())
	}
}
