package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server  ServerSettings  `json:"server"`
	Addon   AddonSettings   `json:"addon"`
	Resolve ResolveSettings `json:"resolve"`
	Log     LogSettings     `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// AddonSettings configures the outward-facing surface of the addon.
type AddonSettings struct {
	// PublicHost is the externally reachable base URL used when building
	// proxied /resolve links. Empty means raw host references are handed out.
	PublicHost string `json:"publicHost"`
}

// ResolveSettings bounds the magnet resolution workflow.
type ResolveSettings struct {
	PollIntervalSeconds int   `json:"pollIntervalSeconds"`
	MaxPollAttempts     int   `json:"maxPollAttempts"`
	MinFileSizeBytes    int64 `json:"minFileSizeBytes"`
}

// PollInterval returns the configured poll interval as a duration.
func (r ResolveSettings) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalSeconds) * time.Second
}

type LogSettings struct {
	File       string `json:"file"`
	MaxSizeMB  int    `json:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays"`
}

// DefaultSettings returns the settings written the first time the service
// starts without a config file.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: 7000,
		},
		Resolve: ResolveSettings{
			PollIntervalSeconds: 5,
			MaxPollAttempts:     10,
			MinFileSizeBytes:    50 * 1024 * 1024,
		},
		Log: LogSettings{
			File:       filepath.Join("cache", "sootio.log"),
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Manager loads and persists Settings at a fixed path.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures the parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings from disk, creating defaults if the file is missing.
// Environment overrides are applied after decoding so deployments can set
// the public host without editing the file.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return applyEnvOverrides(defaults), nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var settings Settings
	if err := json.NewDecoder(f).Decode(&settings); err != nil {
		return Settings{}, err
	}
	normalize(&settings)
	return applyEnvOverrides(settings), nil
}

// Save writes settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.path)
}

func normalize(s *Settings) {
	defaults := DefaultSettings()
	if s.Server.Port == 0 {
		s.Server.Port = defaults.Server.Port
	}
	if s.Server.Host == "" {
		s.Server.Host = defaults.Server.Host
	}
	if s.Resolve.PollIntervalSeconds <= 0 {
		s.Resolve.PollIntervalSeconds = defaults.Resolve.PollIntervalSeconds
	}
	if s.Resolve.MaxPollAttempts <= 0 {
		s.Resolve.MaxPollAttempts = defaults.Resolve.MaxPollAttempts
	}
	if s.Resolve.MinFileSizeBytes <= 0 {
		s.Resolve.MinFileSizeBytes = defaults.Resolve.MinFileSizeBytes
	}
	if s.Log.File == "" {
		s.Log.File = defaults.Log.File
	}
}

func applyEnvOverrides(s Settings) Settings {
	if host := strings.TrimSpace(os.Getenv("ADDON_URL")); host != "" {
		s.Addon.PublicHost = strings.TrimRight(host, "/")
	}
	return s
}
