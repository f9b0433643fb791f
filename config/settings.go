package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Metadata MetadataSettings `json:"metadata"`
	Storage  StorageSettings  `json:"storage"`
	Cache    CacheSettings    `json:"cache"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// MetadataSettings carries the catalog API credentials and the display
// language used for every upstream request.
type MetadataSettings struct {
	TMDBAPIKey string `json:"tmdbApiKey"`
	Language   string `json:"language"`
}

// StorageSettings locates the directory holding the user-state records
// (seen ledger, favorites, watched, preferences).
type StorageSettings struct {
	Directory string `json:"directory"`
}

type CacheSettings struct {
	ProviderEntries int `json:"providerEntries"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns the configuration written on first start.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: 8585,
		},
		Metadata: MetadataSettings{
			Language: "en-US",
		},
		Storage: StorageSettings{
			Directory: "data",
		},
		Cache: CacheSettings{
			ProviderEntries: 512,
		},
		Log: LogConfig{
			File:       filepath.Join("data", "logs", "movemovies.log"),
			Level:      "info",
			MaxSize:    10,
			MaxAge:     14,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// Manager loads and persists Settings at a fixed path.
type Manager struct {
	mu   sync.Mutex
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads the settings file, creating it with defaults when missing.
// Fields absent from an existing file are backfilled from the defaults and
// the file is rewritten so it always reflects the full schema.
func (m *Manager) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.saveLocked(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return Settings{}, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, err
	}

	changed := false
	defaults := DefaultSettings()
	if strings.TrimSpace(settings.Server.Host) == "" {
		settings.Server.Host = defaults.Server.Host
		changed = true
	}
	if settings.Server.Port <= 0 {
		settings.Server.Port = defaults.Server.Port
		changed = true
	}
	if strings.TrimSpace(settings.Metadata.Language) == "" {
		settings.Metadata.Language = defaults.Metadata.Language
		changed = true
	}
	if strings.TrimSpace(settings.Storage.Directory) == "" {
		settings.Storage.Directory = defaults.Storage.Directory
		changed = true
	}
	if settings.Cache.ProviderEntries <= 0 {
		settings.Cache.ProviderEntries = defaults.Cache.ProviderEntries
		changed = true
	}
	if changed {
		if err := m.saveLocked(settings); err != nil {
			return Settings{}, err
		}
	}

	return settings, nil
}

// Save persists the settings atomically.
func (m *Manager) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(s)
}

func (m *Manager) saveLocked(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if dir := filepath.Dir(m.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
