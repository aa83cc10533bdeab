package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/user/campuschat/internal/types"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	Portal   struct {
		BaseURL        string `json:"base_url"`
		Token          string `json:"token"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	} `json:"portal"`
	Chat struct {
		Stream        bool `json:"stream"`
		Cache         bool `json:"cache"`
		HistoryLimit  int  `json:"history_limit"`
		MaxConcurrent int  `json:"max_concurrent"`
	} `json:"chat"`
	Context struct {
		Model      string `json:"model"`
		MaxTokens  int    `json:"max_tokens"`
		ItemTokens int    `json:"item_tokens"`
	} `json:"context"`
	Campus struct {
		Name     string `json:"name"`
		Location string `json:"location"`
		Website  string `json:"website"`
		Contact  string `json:"contact"`
	} `json:"campus"`
	Storage struct {
		Backend string `json:"backend"`
	} `json:"storage"`
	User struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		Role       string `json:"role"`
		Branch     string `json:"branch"`
		Department string `json:"department"`
		Semester   string `json:"semester"`
		Section    string `json:"section"`
	} `json:"user"`
	Voice struct {
		Enabled          bool   `json:"enabled"`
		Command          string `json:"command"`
		RecognizeCommand string `json:"recognize_command"`
	} `json:"voice"`
	Telegram struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	} `json:"telegram"`
	UI struct {
		BannerSeconds int `json:"banner_seconds"`
	} `json:"ui"`
}

// DefaultPath returns ~/.campuschat/config.json.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".campuschat", "config.json")
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".campuschat"),
		LogLevel: "info",
	}
	cfg.Portal.BaseURL = "http://localhost:8000"
	cfg.Portal.TimeoutSeconds = 60
	cfg.Chat.Stream = true
	cfg.Chat.Cache = true
	cfg.Chat.HistoryLimit = 10
	cfg.Chat.MaxConcurrent = 2
	cfg.Context.Model = "gpt-4"
	cfg.Context.MaxTokens = 2000
	cfg.Context.ItemTokens = 200
	cfg.Storage.Backend = "file"
	cfg.Telegram.Role = string(types.RoleGuest)
	cfg.UI.BannerSeconds = 5

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if baseURL := os.Getenv("CAMPUSCHAT_BASE_URL"); baseURL != "" {
		cfg.Portal.BaseURL = baseURL
	}
	if token := os.Getenv("CAMPUSCHAT_TOKEN"); token != "" {
		cfg.Portal.Token = token
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}

	return cfg, nil
}

// PortalTimeout bounds the wait for portal response headers.
func (c *Config) PortalTimeout() time.Duration {
	if c.Portal.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Portal.TimeoutSeconds) * time.Second
}

// BannerDelay is how long the welcome banner is shown.
func (c *Config) BannerDelay() time.Duration {
	if c.UI.BannerSeconds <= 0 {
		return -1
	}
	return time.Duration(c.UI.BannerSeconds) * time.Second
}

// CurrentUser returns the configured user, or nil for a guest.
func (c *Config) CurrentUser() *types.User {
	role := types.ParseRole(c.User.Role)
	if c.User.ID == "" || role == types.RoleGuest {
		return nil
	}
	return &types.User{
		ID:         c.User.ID,
		Name:       c.User.Name,
		Email:      c.User.Email,
		Role:       role,
		Branch:     c.User.Branch,
		Department: c.User.Department,
		Semester:   c.User.Semester,
		Section:    c.User.Section,
	}
}

// Save writes cfg to path atomically.
func Save(path string, cfg *Config) error {
	return writeDefaults(path, cfg)
}

// ToMap converts cfg into its nested JSON map form.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return m, nil
}

// ListValues returns cfg as a flat dot-keyed map, optionally masking secrets.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue reads one dot-separated key from the config file at path. A
// missing file is created with defaults first.
func GetValue(path, key string) (any, error) {
	if _, err := Load(path); err != nil {
		return nil, err
	}
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	v, ok := Flatten(raw)[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue sets one dot-separated key in the config file at path. value is
// checked against the key's type with ParseValue before anything is
// written.
func SetValue(path, key, value string) error {
	parsed, err := ParseValue(key, value)
	if err != nil {
		return err
	}
	raw, err := readRaw(path)
	if err != nil {
		return err
	}
	flat := Flatten(raw)
	flat[key] = parsed

	data, err := json.MarshalIndent(Unflatten(flat), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

func readRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return raw, nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
